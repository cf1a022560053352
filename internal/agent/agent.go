// Package agent serves mailbox requests against the rental portal. It is
// the only process that touches the portal; the workflow only ever talks
// to the mailbox.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"utility-billing/internal/mailbox"
	"utility-billing/internal/portal"
)

// Page waits, matching how long each portal page is given to render
// before the request fails with an element-not-found error.
const (
	leaseListWait  = 10 * time.Second
	tenantWait     = 10 * time.Second
	propertyWait   = 10 * time.Second
	addressWait    = 5 * time.Second
	chargeFormWait = 10 * time.Second
)

// Agent polls the mailbox and executes portal work.
type Agent struct {
	client  *portal.Client
	courier *mailbox.Courier
	logger  *log.Logger

	pollInterval time.Duration
	pageInterval time.Duration

	leaseWait    time.Duration
	tenantWait   time.Duration
	propertyWait time.Duration
	addressWait  time.Duration
	chargeWait   time.Duration
}

// Option adjusts agent construction.
type Option func(*Agent)

// WithPollInterval sets how often the mailbox is checked for work.
func WithPollInterval(d time.Duration) Option {
	return func(a *Agent) { a.pollInterval = d }
}

// WithPageInterval sets how often a slow page is refetched while waiting
// for it to render.
func WithPageInterval(d time.Duration) Option {
	return func(a *Agent) { a.pageInterval = d }
}

// WithPageWaits caps every page render wait at d, used by tests.
func WithPageWaits(d time.Duration) Option {
	return func(a *Agent) {
		a.leaseWait = d
		a.tenantWait = d
		a.propertyWait = d
		a.addressWait = d
		a.chargeWait = d
	}
}

// New constructs an agent over a portal client and a mailbox courier.
func New(client *portal.Client, courier *mailbox.Courier, logger *log.Logger, opts ...Option) (*Agent, error) {
	if client == nil {
		return nil, errors.New("agent: portal client is required")
	}
	if courier == nil {
		return nil, errors.New("agent: courier is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	a := &Agent{
		client:       client,
		courier:      courier,
		logger:       logger,
		pollInterval: 300 * time.Millisecond,
		pageInterval: 500 * time.Millisecond,
		leaseWait:    leaseListWait,
		tenantWait:   tenantWait,
		propertyWait: propertyWait,
		addressWait:  addressWait,
		chargeWait:   chargeFormWait,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run serves mailbox requests until ctx is cancelled. Request failures are
// reported back through the mailbox and never stop the loop.
func (a *Agent) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := a.Step(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			a.logger.Printf("agent: step failed: %v", err)
		}
	}
}

// Step serves at most one pending request per kind. Exported so tests and
// in-process deployments can drive the agent without the ticker.
func (a *Agent) Step(ctx context.Context) error {
	for _, kind := range mailbox.Kinds {
		req, ok, err := a.courier.TakeRequest(ctx, kind)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		a.logger.Printf("agent: serving %s request %s", req.Kind, req.RequestID)

		payload, handleErr := a.handle(ctx, req)
		if handleErr != nil {
			a.logger.Printf("agent: %s request %s failed: %v", req.Kind, req.RequestID, handleErr)
		}
		if err := a.courier.PostResult(ctx, req, payload, handleErr); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) handle(ctx context.Context, req mailbox.Request) (any, error) {
	switch req.Kind {
	case mailbox.KindListLeases:
		return a.listLeases(ctx)
	case mailbox.KindCheckPage:
		return PageStatus{Route: a.client.CurrentRoute(), OnPortal: true}, nil
	case mailbox.KindTenantScrape:
		return a.scrapeTenants(ctx, req.LeaseID)
	case mailbox.KindFindProperty:
		return a.findProperty(ctx, req.LeaseID)
	case mailbox.KindAddressScrape:
		return a.scrapeAddress(ctx, req.LeaseID)
	case mailbox.KindFillCharge:
		return a.fillCharge(ctx, req)
	default:
		return nil, fmt.Errorf("agent: unknown request kind %q", req.Kind)
	}
}

func (a *Agent) listLeases(ctx context.Context) (LeaseListResult, error) {
	page, err := a.waitFor(ctx, portal.RouteLeases, (*portal.Page).HasLeaseRows, a.leaseWait)
	if err != nil {
		return LeaseListResult{}, err
	}
	leases, err := page.Leases()
	if err != nil {
		return LeaseListResult{}, err
	}
	return LeaseListResult{Leases: leases}, nil
}

// scrapeTenants reads the tenants page and then moves on to the
// properties page, the next stop in the billing flow.
func (a *Agent) scrapeTenants(ctx context.Context, leaseID string) (TenantScrapeResult, error) {
	page, err := a.waitFor(ctx, portal.RouteTenants, (*portal.Page).HasTenantTable, a.tenantWait)
	if err != nil {
		return TenantScrapeResult{}, err
	}
	tenants, err := page.TenantNames(leaseID)
	if err != nil {
		return TenantScrapeResult{}, err
	}
	if _, err := a.client.Navigate(ctx, portal.RouteProperties); err != nil {
		a.logger.Printf("agent: advance to properties failed: %v", err)
	}
	return TenantScrapeResult{LeaseID: leaseID, Tenants: tenants}, nil
}

func (a *Agent) findProperty(ctx context.Context, leaseID string) (FindPropertyResult, error) {
	page, err := a.waitFor(ctx, portal.RouteProperties, (*portal.Page).HasPropertyTiles, a.propertyWait)
	if err != nil {
		return FindPropertyResult{}, err
	}
	tile, found, err := page.FindPropertyTile(leaseID)
	if err != nil {
		return FindPropertyResult{}, err
	}
	if !found {
		return FindPropertyResult{Found: false}, nil
	}
	return FindPropertyResult{Found: true, PropertyName: tile.Name}, nil
}

// scrapeAddress follows the lease's property card to the detail page. A
// detail page without a recognizable address block still answers, with an
// empty address, so the workflow can fall back instead of stalling.
func (a *Agent) scrapeAddress(ctx context.Context, leaseID string) (AddressScrapeResult, error) {
	page, err := a.waitFor(ctx, portal.RouteProperties, (*portal.Page).HasPropertyTiles, a.propertyWait)
	if err != nil {
		return AddressScrapeResult{}, err
	}
	tile, found, err := page.FindPropertyTile(leaseID)
	if err != nil {
		return AddressScrapeResult{}, err
	}
	if !found || tile.DetailRoute == "" {
		return AddressScrapeResult{}, fmt.Errorf("agent: no property card links lease %s", leaseID)
	}

	detail, err := a.waitFor(ctx, tile.DetailRoute, (*portal.Page).HasAddress, a.addressWait)
	if err != nil {
		return AddressScrapeResult{}, err
	}
	address, err := detail.Address()
	if err != nil {
		var notFound *portal.ElementNotFoundError
		if errors.As(err, &notFound) {
			return AddressScrapeResult{LeaseID: leaseID, Address: ""}, nil
		}
		return AddressScrapeResult{}, err
	}
	return AddressScrapeResult{LeaseID: leaseID, Address: address}, nil
}

func (a *Agent) fillCharge(ctx context.Context, req mailbox.Request) (ChargeResult, error) {
	var order ChargeOrder
	if err := json.Unmarshal(req.Payload, &order); err != nil {
		return ChargeResult{}, fmt.Errorf("agent: decode charge order: %w", err)
	}
	if order.LeaseID == "" {
		order.LeaseID = req.LeaseID
	}

	route := portal.RouteChargeCreate + order.LeaseID
	page, err := a.waitFor(ctx, route, (*portal.Page).HasChargeForm, a.chargeWait)
	if err != nil {
		return ChargeResult{}, err
	}

	accounts, err := page.FundingAccounts()
	if err != nil {
		return ChargeResult{}, err
	}
	var account string
	if len(accounts) > 0 {
		account = accounts[0].Value
	}

	chargeID, err := a.client.StageCharge(ctx, portal.ChargeDraft{
		LeaseID:       order.LeaseID,
		Description:   order.Description,
		Amount:        order.Amount,
		DueDate:       order.DueDate,
		DestinationID: account,
		Attachments:   order.Attachments,
	})
	if err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{
		ChargeID:              chargeID,
		Staged:                true,
		FundingAccount:        account,
		RequiresManualAccount: account == "",
	}, nil
}

// waitFor refetches the route until the predicate holds or the timeout
// passes. The last fetched page is returned either way, so the caller's
// read produces the selector-specific error on timeout.
func (a *Agent) waitFor(ctx context.Context, route string, present func(*portal.Page) bool, timeout time.Duration) (*portal.Page, error) {
	deadline := time.Now().Add(timeout)
	for {
		page, err := a.client.Navigate(ctx, route)
		if err != nil {
			return nil, err
		}
		if present(page) || time.Now().After(deadline) {
			return page, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.pageInterval):
		}
	}
}
