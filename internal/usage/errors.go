package usage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyReport is returned when the report has no data rows.
	ErrEmptyReport = errors.New("usage: report appears to be empty")
	// ErrColumnsNotConfigured is returned when column names are blank.
	ErrColumnsNotConfigured = errors.New("usage: report column names are not configured")
)

// MissingColumnsError reports configured columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("usage: could not find columns including %q in report", strings.Join(e.Columns, `" and "`))
}
