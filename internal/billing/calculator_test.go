package billing

import (
	"math"
	"testing"
)

func TestCalculate_MainHouse(t *testing.T) {
	charge := Calculate(253.48, 1668, 200, ModeMainHouse)

	if math.Abs(charge.Rate-0.15196642685851318) > 1e-12 {
		t.Fatalf("unexpected rate %v", charge.Rate)
	}
	if charge.BilledKwh != 1468 {
		t.Fatalf("expected billed 1468 kWh, got %v", charge.BilledKwh)
	}
	if got := math.Round(charge.BilledAmount*100) / 100; got != 223.09 {
		t.Fatalf("expected display amount 223.09, got %v", got)
	}
	if charge.Mode != ModeMainHouse {
		t.Fatalf("unexpected mode %q", charge.Mode)
	}
}

func TestCalculate_SubmeterOnly(t *testing.T) {
	charge := Calculate(253.48, 1668, 200, ModeSubmeterOnly)

	if charge.BilledKwh != 200 {
		t.Fatalf("expected billed 200 kWh, got %v", charge.BilledKwh)
	}
	want := 200 * (253.48 / 1668)
	if charge.BilledAmount != want {
		t.Fatalf("expected %v, got %v", want, charge.BilledAmount)
	}
}

func TestCalculate_ZeroTotalKwh(t *testing.T) {
	charge := Calculate(100, 0, 350, ModeMainHouse)

	if charge.Rate != 0 {
		t.Fatalf("expected zero rate, got %v", charge.Rate)
	}
	if charge.BilledAmount != 0 {
		t.Fatalf("expected zero amount, got %v", charge.BilledAmount)
	}
}

func TestCalculate_NegativeUsagePassesThrough(t *testing.T) {
	charge := Calculate(100, 500, 600, ModeMainHouse)

	if charge.BilledKwh != -100 {
		t.Fatalf("expected -100 kWh surfaced, got %v", charge.BilledKwh)
	}
	if charge.BilledAmount >= 0 {
		t.Fatalf("expected negative amount, got %v", charge.BilledAmount)
	}
}

func TestCalculate_UnknownModeDefaultsToMainHouse(t *testing.T) {
	charge := Calculate(100, 500, 100, Mode(""))

	if charge.Mode != ModeMainHouse {
		t.Fatalf("expected main house default, got %q", charge.Mode)
	}
	if charge.BilledKwh != 400 {
		t.Fatalf("expected 400 kWh, got %v", charge.BilledKwh)
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	first := Calculate(253.48, 1668, 200.37, ModeMainHouse)
	for i := 0; i < 100; i++ {
		again := Calculate(253.48, 1668, 200.37, ModeMainHouse)
		if again != first {
			t.Fatalf("calculate not pure: %+v vs %+v", again, first)
		}
	}
}
