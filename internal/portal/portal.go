// Package portal reads and drives the rental portal's owner pages over
// HTTP. It owns the selectors, routes and form conventions; callers deal
// in leases, tenants and charge drafts.
package portal

import (
	"context"
	"errors"
	"fmt"
)

// Lease is one lease row from the portal's lease list.
type Lease struct {
	ID          string `json:"id"`
	TenantName  string `json:"tenantName"`
	Unit        string `json:"unit"`
	DisplayName string `json:"displayName"`
	Address     string `json:"address"`
}

// LeaseSource lists the leases an account can bill against. The workflow
// depends on this capability rather than on the whole portal client.
type LeaseSource interface {
	Leases(ctx context.Context) ([]Lease, error)
}

// ErrWrongPage is returned when a read expects a page the client is not on.
var ErrWrongPage = errors.New("portal: not on the expected page")

// ElementNotFoundError reports a selector that never appeared on a page,
// usually because the portal changed its markup or the page never loaded.
type ElementNotFoundError struct {
	Selector string
	Route    string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("portal: element %q not found on %s", e.Selector, e.Route)
}
