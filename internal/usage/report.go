// Package usage aggregates submeter usage reports exported as CSV.
package usage

import (
	"math"
	"strconv"
	"strings"
)

// ParseReport sums the two configured columns across all data rows and
// returns the total kWh rounded to two decimal places.
//
// The first line is the header. Column names resolve by case-insensitive
// substring match against each header cell. Unparsable, empty or negative
// cells contribute zero; blank lines are skipped.
func ParseReport(text, column1, column2 string) (float64, error) {
	if column1 == "" || column2 == "" {
		return 0, ErrColumnsNotConfigured
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return 0, ErrEmptyReport
	}

	header := splitLine(lines[0])
	col1 := findColumn(header, column1)
	col2 := findColumn(header, column2)
	if col1 < 0 || col2 < 0 {
		missing := make([]string, 0, 2)
		if col1 < 0 {
			missing = append(missing, column1)
		}
		if col2 < 0 {
			missing = append(missing, column2)
		}
		return 0, &MissingColumnsError{Columns: missing}
	}

	var total float64
	for _, raw := range lines[1:] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		values := splitLine(line)
		total += cellValue(values, col1) + cellValue(values, col2)
	}

	return math.Round(total*100) / 100, nil
}

func findColumn(header []string, name string) int {
	lowered := strings.ToLower(name)
	for i, cell := range header {
		if strings.Contains(strings.ToLower(cell), lowered) {
			return i
		}
	}
	return -1
}

func cellValue(values []string, index int) float64 {
	if index >= len(values) {
		return 0
	}
	parsed, err := strconv.ParseFloat(values[index], 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

// splitLine tokenizes one delimited line. A quote character toggles quoted
// mode, during which commas are literal text. There is no escaped-quote
// handling: an odd number of quotes leaves the rest of the line in the
// wrong mode, matching the exports this parser targets.
func splitLine(line string) []string {
	var values []string
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			values = append(values, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}

	values = append(values, strings.TrimSpace(current.String()))
	return values
}
