// Package invoice renders the tenant-facing utility invoice in PDF and
// spreadsheet form.
package invoice

import (
	"time"

	"utility-billing/internal/billing"
)

// Invoice carries everything the rendered document shows. The workflow
// assembles it from scraped portal data, the parsed bill and the landlord
// settings; rendering never reaches back into those systems.
type Invoice struct {
	Number      string
	GeneratedAt time.Time
	Period      string
	DueDate     time.Time

	LandlordName    string
	LandlordAddress string
	LandlordPhone   string

	TenantNames     []string
	PropertyName    string
	PropertyAddress string

	Mode         billing.Mode
	TotalKwh     float64
	AduKwh       float64
	BilledKwh    float64
	Rate         float64
	TotalAmount  float64
	BilledAmount float64
}
