package billing

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// BillRecord holds the figures read off one utility bill. Fields stay
// editable during review; the charge is rederived after every change.
type BillRecord struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	TotalAmount float64
	TotalKwh    float64
}

// ErrInvalidPeriod is returned when a billing period string cannot be parsed.
var ErrInvalidPeriod = errors.New("billing: invalid billing period")

// Separators with surrounding whitespace are tried first so dashes inside
// ISO dates survive; a bare dash only counts when nothing else matched.
var (
	periodSeparator   = regexp.MustCompile(`\s+(?:[-–—]|to)\s+`)
	bareDashSeparator = regexp.MustCompile(`[-–—]`)
)

// Bills arrive with periods like "Dec 19, 2025 - Jan 22, 2026".
var periodDateLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// ParsePeriod splits a billing period string on a dash or "to" and parses
// both sides with a small set of accepted date layouts.
func ParsePeriod(period string) (time.Time, time.Time, error) {
	trimmed := strings.TrimSpace(period)
	parts := periodSeparator.Split(trimmed, -1)
	if len(parts) != 2 {
		parts = bareDashSeparator.Split(trimmed, -1)
	}
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	start, err := parseFlexibleDate(parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseFlexibleDate(parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseFlexibleDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range periodDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, ErrInvalidPeriod
}

// Period renders the billing period in the invoice's display form, or ""
// when either bound is missing.
func (b BillRecord) Period() string {
	if b.PeriodStart.IsZero() || b.PeriodEnd.IsZero() {
		return ""
	}
	return b.PeriodStart.Format("Jan 2, 2006") + " - " + b.PeriodEnd.Format("Jan 2, 2006")
}
