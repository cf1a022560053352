package usage

import (
	"errors"
	"strings"
	"testing"
)

func TestParseReport_SumsConfiguredColumns(t *testing.T) {
	report := strings.Join([]string{
		"Date,Mains_A,Mains_B,Voltage",
		"1/1,10,5,240",
		"1/2,3,4,241",
	}, "\n")

	got, err := ParseReport(report, "Mains_A", "Mains_B")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 22 {
		t.Fatalf("expected 22, got %v", got)
	}
}

func TestParseReport_PinnedRounding(t *testing.T) {
	// 10.005+5+3+4 accumulates to just under 22.005 in binary floating
	// point, so the x*100 rounding lands on 22.0. Pinned on purpose.
	report := strings.Join([]string{
		"Date,Mains_A,Mains_B",
		`"1/1",10.005,5`,
		`"1/2",3,4`,
	}, "\n")

	got, err := ParseReport(report, "Mains_A", "Mains_B")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 22.0 {
		t.Fatalf("expected pinned 22.0, got %v", got)
	}
}

func TestParseReport_HeaderOnly(t *testing.T) {
	_, err := ParseReport("Date,Mains_A,Mains_B", "Mains_A", "Mains_B")
	if !errors.Is(err, ErrEmptyReport) {
		t.Fatalf("expected ErrEmptyReport, got %v", err)
	}
}

func TestParseReport_MissingColumns(t *testing.T) {
	report := "Date,Mains_A\n1/1,10"

	_, err := ParseReport(report, "Mains_A", "Mains_B")
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	if len(missing.Columns) != 1 || missing.Columns[0] != "Mains_B" {
		t.Fatalf("expected only Mains_B reported missing, got %v", missing.Columns)
	}

	_, err = ParseReport("Date,Other\n1/1,10", "Mains_A", "Mains_B")
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	if len(missing.Columns) != 2 {
		t.Fatalf("expected both columns reported missing, got %v", missing.Columns)
	}
}

func TestParseReport_ColumnMatchIsSubstringCaseInsensitive(t *testing.T) {
	report := "Timestamp,Total mains_a (kWh),Total mains_b (kWh)\n1/1,2,3"

	got, err := ParseReport(report, "Mains_A", "Mains_B")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 5 {
		t.Fatalf("expected 5, got %v", got)
	}
}

func TestParseReport_UnparsableCellsContributeZero(t *testing.T) {
	report := strings.Join([]string{
		"Date,Mains_A,Mains_B",
		"1/1,n/a,4",
		"1/2,,6",
		"",
		"1/3,1.5,x",
	}, "\n")

	got, err := ParseReport(report, "Mains_A", "Mains_B")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 11.5 {
		t.Fatalf("expected 11.5, got %v", got)
	}
}

func TestParseReport_NegativeCellsContributeZero(t *testing.T) {
	report := strings.Join([]string{
		"Date,Mains_A,Mains_B",
		"1/1,-3,4",
		"1/2,2,-0.5",
	}, "\n")

	got, err := ParseReport(report, "Mains_A", "Mains_B")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 6 {
		t.Fatalf("expected 6, got %v", got)
	}
}

func TestParseReport_QuotedDelimiters(t *testing.T) {
	report := strings.Join([]string{
		"Label,Mains_A,Mains_B",
		`"Jan 1, 2026",7,3`,
	}, "\n")

	got, err := ParseReport(report, "Mains_A", "Mains_B")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
}

func TestParseReport_OddQuoteDesyncPinned(t *testing.T) {
	// A lone quote swallows the rest of the line into one cell. The row
	// then has no parsable value in either column and contributes zero.
	// Existing quirk, pinned rather than fixed.
	report := strings.Join([]string{
		"Date,Mains_A,Mains_B",
		`1/1,"3,4`,
		"1/2,2,2",
	}, "\n")

	got, err := ParseReport(report, "Mains_A", "Mains_B")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
}

func TestParseReport_Deterministic(t *testing.T) {
	report := "Date,Mains_A,Mains_B\n1/1,1.13,2.29\n1/2,0.07,9.91"

	first, err := ParseReport(report, "Mains_A", "Mains_B")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := ParseReport(report, "Mains_A", "Mains_B")
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if again != first {
			t.Fatalf("parse not deterministic: %v vs %v", again, first)
		}
	}
}
