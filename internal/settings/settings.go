// Package settings loads the landlord profile and extraction credentials
// used across billing runs.
package settings

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds everything a billing run needs about the landlord and
// the submeter export format. Values load from yaml and can be overridden
// per-field through the environment.
type Settings struct {
	LandlordName    string `yaml:"landlord_name" json:"landlord_name"`
	LandlordAddress string `yaml:"landlord_address" json:"landlord_address"`
	LandlordPhone   string `yaml:"landlord_phone" json:"landlord_phone"`

	// Header names matched against the submeter CSV export.
	SubmeterColumn1 string `yaml:"submeter_column_1" json:"submeter_column_1"`
	SubmeterColumn2 string `yaml:"submeter_column_2" json:"submeter_column_2"`

	ExtractionAPIKey string `yaml:"extraction_api_key" json:"extraction_api_key"`
}

// Defaults returns settings with the stock submeter column names.
func Defaults() Settings {
	return Settings{
		SubmeterColumn1: "Mains_A",
		SubmeterColumn2: "Mains_B",
	}
}

// Load reads settings from the yaml file at path, then applies environment
// overrides. An empty path skips the file and uses defaults plus env.
func Load(path string) (Settings, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg.LandlordName, "LANDLORD_NAME")
	applyEnv(&cfg.LandlordAddress, "LANDLORD_ADDRESS")
	applyEnv(&cfg.LandlordPhone, "LANDLORD_PHONE")
	applyEnv(&cfg.SubmeterColumn1, "SUBMETER_COLUMN_1")
	applyEnv(&cfg.SubmeterColumn2, "SUBMETER_COLUMN_2")
	applyEnv(&cfg.ExtractionAPIKey, "EXTRACTION_API_KEY")

	if cfg.SubmeterColumn1 == "" {
		cfg.SubmeterColumn1 = "Mains_A"
	}
	if cfg.SubmeterColumn2 == "" {
		cfg.SubmeterColumn2 = "Mains_B"
	}
	return cfg, nil
}

func applyEnv(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

// Complete reports whether runs can start. The landlord name is the one
// field the invoice cannot do without.
func (s Settings) Complete() bool {
	return s.LandlordName != ""
}
