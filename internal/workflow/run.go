package workflow

import (
	"time"

	"github.com/google/uuid"

	"utility-billing/internal/billing"
	"utility-billing/internal/observability/metrics"
	"utility-billing/internal/portal"
)

// Run is one billing run from lease selection to a staged charge. All
// figures on it derive from the bill and the submeter report; the charge
// is recomputed after every edit, never patched in place.
type Run struct {
	ID        string    `json:"id"`
	Panel     Panel     `json:"panel"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Lease portal.Lease `json:"lease"`

	// PeriodLabel keeps the billing period exactly as extracted or typed;
	// Bill holds the parsed bounds when parsing succeeded.
	PeriodLabel string                   `json:"periodLabel,omitempty"`
	Bill        billing.BillRecord       `json:"bill"`
	AduKwh      float64                  `json:"aduKwh"`
	Mode        billing.Mode             `json:"mode"`
	Charge      billing.CalculatedCharge `json:"charge"`

	Tenants         []string `json:"tenants,omitempty"`
	PropertyName    string   `json:"propertyName,omitempty"`
	PropertyAddress string   `json:"propertyAddress,omitempty"`

	// Warnings records fallbacks taken while generating, e.g. tenant names
	// that never arrived. They surface on the review screen, not as errors.
	Warnings []string `json:"warnings,omitempty"`

	InvoicePDF  []byte `json:"-"`
	InvoiceXLSX []byte `json:"-"`
	BillPDF     []byte `json:"-"`
	SubmeterCSV []byte `json:"-"`

	ChargeID              string `json:"chargeId,omitempty"`
	ChargeStaged          bool   `json:"chargeStaged"`
	RequiresManualAccount bool   `json:"requiresManualAccount"`
}

func newRun(startPanel Panel, now time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Panel:     startPanel,
		CreatedAt: now,
		UpdatedAt: now,
		Mode:      billing.ModeMainHouse,
	}
}

// advance moves the run to the next panel, enforcing the transition table.
func (r *Run) advance(to Panel, now time.Time) error {
	if !IsValidTransition(r.Panel, to) {
		return &InvalidTransitionError{From: r.Panel, To: to}
	}
	r.Panel = to
	r.UpdatedAt = now
	metrics.IncPanelTransition(string(to))
	return nil
}

// recalculate rederives the charge from the run's current figures.
func (r *Run) recalculate() {
	r.Charge = billing.Calculate(r.Bill.TotalAmount, r.Bill.TotalKwh, r.AduKwh, r.Mode)
}

func (r *Run) warn(message string) {
	r.Warnings = append(r.Warnings, message)
}
