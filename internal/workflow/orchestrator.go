// Package workflow runs the landlord's billing flow: pick a lease, read
// the bill and submeter report, review the derived charge, gather tenant
// and property details through the mailbox, render the invoice and stage
// the charge.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"utility-billing/internal/agent"
	"utility-billing/internal/audit"
	"utility-billing/internal/billing"
	"utility-billing/internal/extraction"
	"utility-billing/internal/invoice"
	"utility-billing/internal/mailbox"
	"utility-billing/internal/observability/metrics"
	"utility-billing/internal/portal"
	"utility-billing/internal/settings"
	"utility-billing/internal/usage"
	"utility-billing/internal/workflow/notify"
)

// Scrape waits. Tenant names are a nicety with a fallback, so they get a
// shorter wait than the property lookups the invoice depends on.
const (
	defaultTenantWait   = 15 * time.Second
	defaultPropertyWait = 20 * time.Second
	defaultAddressWait  = 20 * time.Second
	defaultChargeWait   = 30 * time.Second
)

const maxChargeDescription = 50

const agentPingWait = 5 * time.Second

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// BillExtractor pulls structured data out of a bill PDF.
type BillExtractor interface {
	ExtractBill(ctx context.Context, pdf []byte) (extraction.BillData, error)
}

// Orchestrator owns billing runs. Portal work goes through the mailbox;
// the orchestrator never talks to the portal directly.
type Orchestrator struct {
	courier   *mailbox.Courier
	lock      *mailbox.RunLock
	leases    portal.LeaseSource
	extractor BillExtractor
	notifier  notify.Notifier
	audit     audit.Logger
	logger    *log.Logger
	clock     Clock

	tenantWait   time.Duration
	propertyWait time.Duration
	addressWait  time.Duration
	chargeWait   time.Duration

	mu       sync.Mutex
	settings settings.Settings
	runs     map[string]*Run
}

// Option adjusts orchestrator construction.
type Option func(*Orchestrator)

// WithClock injects a clock, used by tests.
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithNotifier announces staged charges through the given notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithAuditLogger records staged charges in the audit log.
func WithAuditLogger(l audit.Logger) Option {
	return func(o *Orchestrator) { o.audit = l }
}

// WithScrapeWaits overrides the per-step scrape waits, used by tests.
func WithScrapeWaits(tenant, property, address, charge time.Duration) Option {
	return func(o *Orchestrator) {
		o.tenantWait = tenant
		o.propertyWait = property
		o.addressWait = address
		o.chargeWait = charge
	}
}

// NewOrchestrator constructs the billing workflow service.
func NewOrchestrator(courier *mailbox.Courier, lock *mailbox.RunLock, leases portal.LeaseSource, extractor BillExtractor, cfg settings.Settings, logger *log.Logger, opts ...Option) (*Orchestrator, error) {
	if courier == nil {
		return nil, errors.New("workflow: courier is required")
	}
	if lock == nil {
		return nil, errors.New("workflow: run lock is required")
	}
	if leases == nil {
		return nil, errors.New("workflow: lease source is required")
	}
	if extractor == nil {
		return nil, errors.New("workflow: bill extractor is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	o := &Orchestrator{
		courier:      courier,
		lock:         lock,
		leases:       leases,
		extractor:    extractor,
		logger:       logger,
		clock:        systemClock{},
		settings:     cfg,
		runs:         make(map[string]*Run),
		tenantWait:   defaultTenantWait,
		propertyWait: defaultPropertyWait,
		addressWait:  defaultAddressWait,
		chargeWait:   defaultChargeWait,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// UpdateSettings swaps the landlord profile used by subsequent steps.
func (o *Orchestrator) UpdateSettings(cfg settings.Settings) {
	o.mu.Lock()
	o.settings = cfg
	o.mu.Unlock()
}

// Settings returns the current landlord profile.
func (o *Orchestrator) Settings() settings.Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

// StartRun creates a run. It opens on the home panel, or on the settings
// panel when the landlord profile is still empty.
func (o *Orchestrator) StartRun(ctx context.Context) (Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	panel := PanelHome
	if !o.settings.Complete() {
		panel = PanelSettingsRequired
	}
	run := newRun(panel, o.clock.Now().UTC())
	o.runs[run.ID] = run
	metrics.IncRunStarted()
	o.logger.Printf("workflow: run %s started on %s", run.ID, run.Panel)
	return *run, nil
}

// Run returns a snapshot of the run.
func (o *Orchestrator) Run(runID string) (Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return *run, nil
}

// Proceed moves a settings-blocked run to the home panel once the
// landlord profile is complete.
func (o *Orchestrator) Proceed(runID string) (Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	if run.Panel != PanelSettingsRequired {
		return *run, nil
	}
	if !o.settings.Complete() {
		return Run{}, ErrSettingsIncomplete
	}
	if err := run.advance(PanelHome, o.clock.Now().UTC()); err != nil {
		return Run{}, err
	}
	return *run, nil
}

// ListLeases fetches the billable leases and moves the run onto the lease
// selection panel.
func (o *Orchestrator) ListLeases(ctx context.Context, runID string) ([]portal.Lease, error) {
	o.mu.Lock()
	run, ok := o.runs[runID]
	if !ok {
		o.mu.Unlock()
		return nil, ErrRunNotFound
	}
	if run.Panel == PanelHome {
		if err := run.advance(PanelLeaseSelect, o.clock.Now().UTC()); err != nil {
			o.mu.Unlock()
			return nil, err
		}
	} else if run.Panel != PanelLeaseSelect {
		o.mu.Unlock()
		return nil, &InvalidTransitionError{From: run.Panel, To: PanelLeaseSelect}
	}
	o.mu.Unlock()

	return o.leases.Leases(ctx)
}

// SelectLease pins the run to a lease and takes the per-lease lock, so no
// other run can bill the same lease until this one finishes or starts
// over.
func (o *Orchestrator) SelectLease(ctx context.Context, runID string, lease portal.Lease) (Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	if run.Panel != PanelLeaseSelect {
		return Run{}, &InvalidTransitionError{From: run.Panel, To: PanelUpload}
	}
	if lease.ID == "" {
		return Run{}, errors.New("workflow: lease id is required")
	}

	if err := o.lock.Acquire(ctx, lease.ID, run.ID); err != nil {
		return Run{}, err
	}
	run.Lease = lease
	if err := run.advance(PanelUpload, o.clock.Now().UTC()); err != nil {
		releaseErr := o.lock.Release(ctx, lease.ID, run.ID)
		if releaseErr != nil {
			o.logger.Printf("workflow: release lease lock: %v", releaseErr)
		}
		return Run{}, err
	}
	return *run, nil
}

// UploadBill ingests the submeter report and the bill PDF. The report is
// parsed locally; the PDF goes to the extraction model. Document and auth
// errors come back typed so the caller can offer manual entry.
func (o *Orchestrator) UploadBill(ctx context.Context, runID string, billPDF []byte, submeterCSV string) (Run, error) {
	o.mu.Lock()
	run, ok := o.runs[runID]
	if !ok {
		o.mu.Unlock()
		return Run{}, ErrRunNotFound
	}
	if run.Panel != PanelUpload {
		o.mu.Unlock()
		return Run{}, &InvalidTransitionError{From: run.Panel, To: PanelReview}
	}
	cfg := o.settings
	o.mu.Unlock()

	aduKwh, err := usage.ParseReport(submeterCSV, cfg.SubmeterColumn1, cfg.SubmeterColumn2)
	if err != nil {
		return Run{}, err
	}
	data, err := o.extractor.ExtractBill(ctx, billPDF)
	if err != nil {
		return Run{}, err
	}

	return o.applyBill(runID, data.BillingPeriod, data.TotalAmount, data.TotalKwh, aduKwh, billPDF, submeterCSV)
}

// EnterBillManually ingests the submeter report plus hand-typed bill
// figures, the fallback when extraction cannot read the document.
func (o *Orchestrator) EnterBillManually(ctx context.Context, runID string, submeterCSV, period string, totalAmount, totalKwh float64) (Run, error) {
	o.mu.Lock()
	run, ok := o.runs[runID]
	if !ok {
		o.mu.Unlock()
		return Run{}, ErrRunNotFound
	}
	if run.Panel != PanelUpload {
		o.mu.Unlock()
		return Run{}, &InvalidTransitionError{From: run.Panel, To: PanelReview}
	}
	cfg := o.settings
	o.mu.Unlock()

	aduKwh, err := usage.ParseReport(submeterCSV, cfg.SubmeterColumn1, cfg.SubmeterColumn2)
	if err != nil {
		return Run{}, err
	}
	return o.applyBill(runID, period, totalAmount, totalKwh, aduKwh, nil, submeterCSV)
}

func (o *Orchestrator) applyBill(runID, period string, totalAmount, totalKwh, aduKwh float64, billPDF []byte, submeterCSV string) (Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}

	run.PeriodLabel = period
	if start, end, err := billing.ParsePeriod(period); err == nil {
		run.Bill.PeriodStart = start
		run.Bill.PeriodEnd = end
	} else {
		run.warn(fmt.Sprintf("billing period %q could not be parsed", period))
	}
	run.Bill.TotalAmount = totalAmount
	run.Bill.TotalKwh = totalKwh
	run.AduKwh = aduKwh
	run.BillPDF = billPDF
	run.SubmeterCSV = []byte(submeterCSV)
	run.recalculate()

	if err := run.advance(PanelReview, o.clock.Now().UTC()); err != nil {
		return Run{}, err
	}
	return *run, nil
}

// ReviewUpdate carries the editable review fields. Nil means unchanged.
type ReviewUpdate struct {
	Period      *string       `json:"period,omitempty"`
	TotalAmount *float64      `json:"totalAmount,omitempty"`
	TotalKwh    *float64      `json:"totalKwh,omitempty"`
	AduKwh      *float64      `json:"aduKwh,omitempty"`
	Mode        *billing.Mode `json:"mode,omitempty"`
}

// UpdateReview edits the reviewed figures and rederives the charge.
func (o *Orchestrator) UpdateReview(runID string, update ReviewUpdate) (Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	if run.Panel != PanelReview {
		return Run{}, &InvalidTransitionError{From: run.Panel, To: PanelReview}
	}

	if update.Period != nil {
		run.PeriodLabel = *update.Period
		if start, end, err := billing.ParsePeriod(*update.Period); err == nil {
			run.Bill.PeriodStart = start
			run.Bill.PeriodEnd = end
		}
	}
	if update.TotalAmount != nil {
		run.Bill.TotalAmount = *update.TotalAmount
	}
	if update.TotalKwh != nil {
		run.Bill.TotalKwh = *update.TotalKwh
	}
	if update.AduKwh != nil {
		run.AduKwh = *update.AduKwh
	}
	if update.Mode != nil {
		run.Mode = *update.Mode
	}
	run.recalculate()
	run.UpdatedAt = o.clock.Now().UTC()
	return *run, nil
}

// Generate gathers tenant and property details through the mailbox and
// renders the invoice. Every scrape has a fallback: a missing answer adds
// a warning and the run keeps moving.
func (o *Orchestrator) Generate(ctx context.Context, runID string) (Run, error) {
	o.mu.Lock()
	run, ok := o.runs[runID]
	if !ok {
		o.mu.Unlock()
		return Run{}, ErrRunNotFound
	}
	if err := run.advance(PanelGenerate, o.clock.Now().UTC()); err != nil {
		o.mu.Unlock()
		return Run{}, err
	}
	lease := run.Lease
	cfg := o.settings
	o.mu.Unlock()

	tenants, tenantWarn := o.scrapeTenants(ctx, lease)
	propertyName, propertyWarn := o.findProperty(ctx, lease)
	address, addressWarn := o.scrapeAddress(ctx, lease)

	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok = o.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	for _, warning := range []string{tenantWarn, propertyWarn, addressWarn} {
		if warning != "" {
			run.warn(warning)
		}
	}
	run.Tenants = tenants
	run.PropertyName = propertyName
	run.PropertyAddress = address

	now := o.clock.Now().UTC()
	inv := invoice.Invoice{
		Number:          fmt.Sprintf("INV-%s-%s", now.Format("20060102"), shortID(run.ID)),
		GeneratedAt:     now,
		Period:          o.periodLabel(run),
		DueDate:         now.AddDate(0, 0, 14),
		LandlordName:    cfg.LandlordName,
		LandlordAddress: cfg.LandlordAddress,
		LandlordPhone:   cfg.LandlordPhone,
		TenantNames:     run.Tenants,
		PropertyName:    run.PropertyName,
		PropertyAddress: run.PropertyAddress,
		Mode:            run.Charge.Mode,
		TotalKwh:        run.Bill.TotalKwh,
		AduKwh:          run.AduKwh,
		BilledKwh:       run.Charge.BilledKwh,
		Rate:            run.Charge.Rate,
		TotalAmount:     run.Bill.TotalAmount,
		BilledAmount:    run.Charge.BilledAmount,
	}
	renderStart := time.Now()
	pdf, err := invoice.BuildPDF(inv)
	if err != nil {
		metrics.ObserveInvoiceRender("pdf", metrics.ResultError, time.Since(renderStart))
		return Run{}, err
	}
	metrics.ObserveInvoiceRender("pdf", metrics.ResultSuccess, time.Since(renderStart))
	renderStart = time.Now()
	xlsx, err := invoice.BuildXLSX(inv)
	if err != nil {
		metrics.ObserveInvoiceRender("xlsx", metrics.ResultError, time.Since(renderStart))
		return Run{}, err
	}
	metrics.ObserveInvoiceRender("xlsx", metrics.ResultSuccess, time.Since(renderStart))
	run.InvoicePDF = pdf
	run.InvoiceXLSX = xlsx

	if err := run.advance(PanelCharge, now); err != nil {
		return Run{}, err
	}
	return *run, nil
}

func (o *Orchestrator) scrapeTenants(ctx context.Context, lease portal.Lease) ([]string, string) {
	fallback := []string{lease.DisplayName}
	var result agent.TenantScrapeResult
	if err := o.exchange(ctx, mailbox.KindTenantScrape, lease.ID, nil, o.tenantWait, &result); err != nil {
		o.logger.Printf("workflow: tenant scrape for %s: %v", lease.ID, err)
		return fallback, "tenant names unavailable; using the lease name instead"
	}
	if len(result.Tenants) == 0 {
		return fallback, "no tenants linked to this lease; using the lease name instead"
	}
	return result.Tenants, ""
}

func (o *Orchestrator) findProperty(ctx context.Context, lease portal.Lease) (string, string) {
	var result agent.FindPropertyResult
	if err := o.exchange(ctx, mailbox.KindFindProperty, lease.ID, nil, o.propertyWait, &result); err != nil {
		o.logger.Printf("workflow: find property for %s: %v", lease.ID, err)
		return lease.Address, "property could not be identified in the portal"
	}
	if !result.Found {
		return lease.Address, "property could not be identified in the portal"
	}
	return result.PropertyName, ""
}

func (o *Orchestrator) scrapeAddress(ctx context.Context, lease portal.Lease) (string, string) {
	var result agent.AddressScrapeResult
	if err := o.exchange(ctx, mailbox.KindAddressScrape, lease.ID, nil, o.addressWait, &result); err != nil {
		o.logger.Printf("workflow: address scrape for %s: %v", lease.ID, err)
		return "", "property address unavailable; the invoice omits it"
	}
	if result.Address == "" {
		return "", "property address unavailable; the invoice omits it"
	}
	return result.Address, ""
}

// StageCharge asks the agent to stage the one-time charge on the portal.
// The draft is never submitted; the deposit account stays with a person.
func (o *Orchestrator) StageCharge(ctx context.Context, runID string) (Run, error) {
	o.mu.Lock()
	run, ok := o.runs[runID]
	if !ok {
		o.mu.Unlock()
		return Run{}, ErrRunNotFound
	}
	if run.Panel != PanelCharge {
		o.mu.Unlock()
		return Run{}, &InvalidTransitionError{From: run.Panel, To: PanelDone}
	}
	order := o.buildChargeOrder(run)
	lease := run.Lease
	o.mu.Unlock()

	var result agent.ChargeResult
	if err := o.exchange(ctx, mailbox.KindFillCharge, lease.ID, order, o.chargeWait, &result); err != nil {
		metrics.IncChargeStaged(metrics.ResultError)
		return Run{}, fmt.Errorf("%w: %v", ErrChargeNotStaged, err)
	}
	if !result.Staged {
		metrics.IncChargeStaged(metrics.ResultError)
		return Run{}, ErrChargeNotStaged
	}
	metrics.IncChargeStaged(metrics.ResultSuccess)

	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok = o.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	run.ChargeID = result.ChargeID
	run.ChargeStaged = true
	run.RequiresManualAccount = result.RequiresManualAccount
	if run.RequiresManualAccount {
		run.warn("no deposit account preselected; pick one before submitting the charge")
	}
	if err := run.advance(PanelDone, o.clock.Now().UTC()); err != nil {
		return Run{}, err
	}
	metrics.IncRunCompleted(metrics.ResultSuccess)
	if err := o.lock.Release(ctx, lease.ID, run.ID); err != nil {
		o.logger.Printf("workflow: release lease lock: %v", err)
	}

	o.announce(ctx, run, order)
	return *run, nil
}

func (o *Orchestrator) buildChargeOrder(run *Run) agent.ChargeOrder {
	description := "Utility Bill"
	if label := o.periodLabel(run); label != "" {
		description = "Utility Bill - " + label
	}
	if len(description) > maxChargeDescription {
		description = description[:maxChargeDescription]
	}

	order := agent.ChargeOrder{
		LeaseID:     run.Lease.ID,
		Description: description,
		Amount:      fmt.Sprintf("%.2f", run.Charge.BilledAmount),
		DueDate:     o.clock.Now().AddDate(0, 0, 14).Format("01/02/2006"),
	}
	if len(run.InvoicePDF) > 0 {
		order.Attachments = append(order.Attachments, portal.Attachment{
			Filename: "utility-invoice.pdf", MediaType: "application/pdf", Content: run.InvoicePDF,
		})
	}
	if len(run.BillPDF) > 0 {
		order.Attachments = append(order.Attachments, portal.Attachment{
			Filename: "utility-bill.pdf", MediaType: "application/pdf", Content: run.BillPDF,
		})
	}
	if len(run.SubmeterCSV) > 0 {
		order.Attachments = append(order.Attachments, portal.Attachment{
			Filename: "submeter-report.csv", MediaType: "text/csv", Content: run.SubmeterCSV,
		})
	}
	if len(order.Attachments) > portal.MaxAttachments {
		order.Attachments = order.Attachments[:portal.MaxAttachments]
	}
	return order
}

func (o *Orchestrator) announce(ctx context.Context, run *Run, order agent.ChargeOrder) {
	if o.audit != nil {
		metadata, _ := json.Marshal(map[string]any{
			"amount": order.Amount, "period": o.periodLabel(run), "chargeId": run.ChargeID,
		})
		entry := audit.Entry{
			Action:       "charge.staged",
			ResourceType: "charge",
			ResourceID:   run.ChargeID,
			LeaseID:      run.Lease.ID,
			RunID:        run.ID,
			Metadata:     metadata,
		}
		if err := o.audit.Log(ctx, entry); err != nil {
			o.logger.Printf("workflow: audit log: %v", err)
		}
	}
	if o.notifier != nil {
		event := notify.Event{
			RunID:                 run.ID,
			LeaseID:               run.Lease.ID,
			PropertyName:          run.PropertyName,
			Period:                o.periodLabel(run),
			Amount:                order.Amount,
			ChargeID:              run.ChargeID,
			RequiresManualAccount: run.RequiresManualAccount,
			Warnings:              run.Warnings,
		}
		if err := o.notifier.Notify(ctx, event); err != nil {
			o.logger.Printf("workflow: notify: %v", err)
		}
	}
}

// AgentStatus pings the portal agent through the mailbox and reports the
// page it currently sits on. A timeout means no agent is serving requests.
func (o *Orchestrator) AgentStatus(ctx context.Context) (agent.PageStatus, error) {
	var status agent.PageStatus
	if err := o.exchange(ctx, mailbox.KindCheckPage, "", nil, agentPingWait, &status); err != nil {
		return agent.PageStatus{}, err
	}
	return status, nil
}

// StartOver abandons the run's progress: the lease lock is released, the
// mailbox is wiped and the run returns to the home panel.
func (o *Orchestrator) StartOver(ctx context.Context, runID string) (Run, error) {
	o.mu.Lock()
	run, ok := o.runs[runID]
	if !ok {
		o.mu.Unlock()
		return Run{}, ErrRunNotFound
	}
	leaseID := run.Lease.ID
	o.mu.Unlock()

	if leaseID != "" {
		if err := o.lock.Release(ctx, leaseID, runID); err != nil {
			o.logger.Printf("workflow: release lease lock: %v", err)
		}
	}
	if err := o.courier.ClearPending(ctx); err != nil {
		o.logger.Printf("workflow: clear mailbox: %v", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok = o.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	fresh := newRun(PanelHome, o.clock.Now().UTC())
	if !o.settings.Complete() {
		fresh.Panel = PanelSettingsRequired
	}
	fresh.ID = run.ID
	fresh.CreatedAt = run.CreatedAt
	*run = *fresh
	return *run, nil
}

// exchange posts a request and waits for its lease-correlated answer. An
// error result from the agent surfaces as an error here.
func (o *Orchestrator) exchange(ctx context.Context, kind mailbox.Kind, leaseID string, payload any, wait time.Duration, out any) error {
	start := time.Now()
	if _, err := o.courier.PostRequest(ctx, kind, leaseID, payload); err != nil {
		return err
	}
	res, err := o.courier.AwaitResult(ctx, kind, leaseID, wait)
	if err != nil {
		metrics.ObserveScrape(string(kind), metrics.ResultError, time.Since(start))
		return err
	}
	metrics.ObserveScrape(string(kind), metrics.ResultSuccess, time.Since(start))
	if res.Err != "" {
		return fmt.Errorf("workflow: %s failed: %s", kind, res.Err)
	}
	if out != nil && len(res.Payload) > 0 {
		if err := json.Unmarshal(res.Payload, out); err != nil {
			return fmt.Errorf("workflow: decode %s result: %w", kind, err)
		}
	}
	return nil
}

func (o *Orchestrator) periodLabel(run *Run) string {
	if run.PeriodLabel != "" {
		return run.PeriodLabel
	}
	return run.Bill.Period()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
