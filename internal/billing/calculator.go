// Package billing computes the tenant's prorated share of a utility bill.
package billing

// Mode selects which side of the meter the charge bills for.
type Mode string

const (
	// ModeMainHouse bills the remainder after subtracting submeter usage.
	ModeMainHouse Mode = "main_house"
	// ModeSubmeterOnly bills the submetered usage itself.
	ModeSubmeterOnly Mode = "submeter_only"
)

// CalculatedCharge is the derived charge for one billing period. It is
// always recomputed from its inputs and never cached.
type CalculatedCharge struct {
	BilledKwh    float64
	Rate         float64
	BilledAmount float64
	Mode         Mode
}

// Calculate derives the prorated charge. The function is pure: identical
// inputs always produce identical outputs, since the result becomes a
// financial charge.
//
// BilledKwh may go negative when the submeter total exceeds the bill
// total; that is surfaced to the caller rather than clamped.
func Calculate(totalAmount, totalKwh, aduKwh float64, mode Mode) CalculatedCharge {
	var rate float64
	if totalKwh > 0 {
		rate = totalAmount / totalKwh
	}

	charge := CalculatedCharge{Rate: rate, Mode: mode}
	switch mode {
	case ModeSubmeterOnly:
		charge.BilledKwh = aduKwh
	default:
		charge.Mode = ModeMainHouse
		charge.BilledKwh = totalKwh - aduKwh
	}
	charge.BilledAmount = charge.BilledKwh * rate
	return charge
}
