package billing

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in         string
		start, end time.Time
	}{
		{"Dec 19, 2025 - Jan 22, 2026", date(2025, 12, 19), date(2026, 1, 22)},
		{"December 19, 2025 to January 22, 2026", date(2025, 12, 19), date(2026, 1, 22)},
		{"2025-12-19 - 2026-01-22", date(2025, 12, 19), date(2026, 1, 22)},
		{"12/19/2025-1/22/2026", date(2025, 12, 19), date(2026, 1, 22)},
		{"Dec 19, 2025 – Jan 22, 2026", date(2025, 12, 19), date(2026, 1, 22)},
	}

	for _, tc := range cases {
		start, end, err := ParsePeriod(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if !start.Equal(tc.start) || !end.Equal(tc.end) {
			t.Fatalf("%q: got %v .. %v", tc.in, start, end)
		}
	}
}

func TestParsePeriod_Invalid(t *testing.T) {
	for _, in := range []string{"", "Dec 19, 2025", "soon - later", "a - b - c"} {
		if _, _, err := ParsePeriod(in); !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("%q: expected ErrInvalidPeriod, got %v", in, err)
		}
	}
}

func TestBillRecord_Period(t *testing.T) {
	rec := BillRecord{PeriodStart: date(2025, 12, 19), PeriodEnd: date(2026, 1, 22)}
	if got := rec.Period(); got != "Dec 19, 2025 - Jan 22, 2026" {
		t.Fatalf("unexpected period %q", got)
	}
	if got := (BillRecord{}).Period(); got != "" {
		t.Fatalf("expected empty period, got %q", got)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
