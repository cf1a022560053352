package agent_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"utility-billing/internal/agent"
	"utility-billing/internal/mailbox"
	"utility-billing/internal/mailbox/memory"
	"utility-billing/internal/portal"
)

const fakeLeaseID = "TGVhc2U6OTQ2MDAy"

func fakePortal(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(portal.RouteLeases, page(`
		<div data-qa="manage-lease-item" id="manage-lease-item-`+fakeLeaseID+`">
		  <span class="R9sje">12 Oak St</span><span class="zUn7-">Unit B (ADU)</span>
		</div>`))
	mux.HandleFunc(portal.RouteTenants, page(`
		<table><tr><td data-qa="view-tenant-0">
		  <a href="/owners/leases/view/`+fakeLeaseID+`"><div class="V4HkO"><span>Jordan Reyes</span></div></a>
		</td></tr></table>`))
	mux.HandleFunc(portal.RouteProperties, page(`
		<div data-qa="manage-property-clickable-container">
		  <h3>Oak Street House</h3>
		  <a href="/owners/properties/manage/prop-1">details</a>
		  <a href="/owners/leases/view/`+fakeLeaseID+`">lease</a>
		</div>`))
	mux.HandleFunc(portal.RoutePropertyView, page(`<p class="UN2EC">12 Oak St, Springfield, OR 97477</p>`))
	mux.HandleFunc(portal.RouteChargeCreate, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"chargeId": "chg-7"})
			return
		}
		page(`
			<input type="radio" id="ONE_TIME">
			<select id="destination_id">
			  <option value=""></option>
			  <option value="acct-9">Checking ...9921</option>
			  <option value="new-bank-account">Add new</option>
			</select>`)(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func page(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body>"+body+"</body></html>")
	}
}

func newAgent(t *testing.T) (*agent.Agent, *mailbox.Courier) {
	t.Helper()
	server := fakePortal(t)
	client, err := portal.NewClient(server.URL, "")
	if err != nil {
		t.Fatalf("portal client: %v", err)
	}
	courier, err := mailbox.NewCourier(memory.NewStore(), mailbox.WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("courier: %v", err)
	}
	a, err := agent.New(client, courier, log.New(io.Discard, "", 0),
		agent.WithPollInterval(5*time.Millisecond),
		agent.WithPageInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("agent: %v", err)
	}
	return a, courier
}

func serve(t *testing.T, a *agent.Agent, courier *mailbox.Courier, kind mailbox.Kind, leaseID string, payload, out any) mailbox.Result {
	t.Helper()
	ctx := context.Background()
	if _, err := courier.PostRequest(ctx, kind, leaseID, payload); err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := a.Step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	res, err := courier.AwaitResult(ctx, kind, leaseID, time.Second)
	if err != nil {
		t.Fatalf("await %s: %v", kind, err)
	}
	if out != nil && res.Err == "" {
		if err := json.Unmarshal(res.Payload, out); err != nil {
			t.Fatalf("decode %s result: %v", kind, err)
		}
	}
	return res
}

func TestAgent_ListLeases(t *testing.T) {
	a, courier := newAgent(t)
	var result agent.LeaseListResult
	serve(t, a, courier, mailbox.KindListLeases, "", nil, &result)

	if len(result.Leases) != 1 || result.Leases[0].ID != fakeLeaseID {
		t.Fatalf("unexpected leases %+v", result.Leases)
	}
	if result.Leases[0].DisplayName != "12 Oak St - Unit B (ADU)" {
		t.Fatalf("unexpected display name %q", result.Leases[0].DisplayName)
	}
}

func TestAgent_TenantScrape(t *testing.T) {
	a, courier := newAgent(t)
	var result agent.TenantScrapeResult
	serve(t, a, courier, mailbox.KindTenantScrape, fakeLeaseID, nil, &result)

	if result.LeaseID != fakeLeaseID {
		t.Fatalf("result keyed to wrong lease: %+v", result)
	}
	if len(result.Tenants) != 1 || result.Tenants[0] != "Jordan Reyes" {
		t.Fatalf("unexpected tenants %v", result.Tenants)
	}
}

func TestAgent_TenantScrapeUnknownLeaseAnswersEmpty(t *testing.T) {
	a, courier := newAgent(t)
	var result agent.TenantScrapeResult
	res := serve(t, a, courier, mailbox.KindTenantScrape, "no-such-lease", nil, &result)

	if res.Err != "" {
		t.Fatalf("expected success with empty tenants, got error %q", res.Err)
	}
	if len(result.Tenants) != 0 {
		t.Fatalf("unexpected tenants %v", result.Tenants)
	}
}

func TestAgent_FindProperty(t *testing.T) {
	a, courier := newAgent(t)
	var result agent.FindPropertyResult
	serve(t, a, courier, mailbox.KindFindProperty, fakeLeaseID, nil, &result)

	if !result.Found || result.PropertyName != "Oak Street House" {
		t.Fatalf("unexpected result %+v", result)
	}

	var missing agent.FindPropertyResult
	serve(t, a, courier, mailbox.KindFindProperty, "no-such-lease", nil, &missing)
	if missing.Found {
		t.Fatalf("expected not found, got %+v", missing)
	}
}

func TestAgent_AddressScrape(t *testing.T) {
	a, courier := newAgent(t)
	var result agent.AddressScrapeResult
	serve(t, a, courier, mailbox.KindAddressScrape, fakeLeaseID, nil, &result)

	if result.Address != "12 Oak St, Springfield, OR 97477" {
		t.Fatalf("unexpected address %q", result.Address)
	}
}

func TestAgent_FillCharge(t *testing.T) {
	a, courier := newAgent(t)
	order := agent.ChargeOrder{
		LeaseID:     fakeLeaseID,
		Description: "Utility Bill - Dec 19, 2025 - Jan 22, 2026",
		Amount:      "223.09",
		DueDate:     "01/10/2026",
		Attachments: []portal.Attachment{
			{Filename: "utility-invoice.pdf", MediaType: "application/pdf", Content: []byte("%PDF-")},
		},
	}
	var result agent.ChargeResult
	serve(t, a, courier, mailbox.KindFillCharge, fakeLeaseID, order, &result)

	if !result.Staged || result.ChargeID != "chg-7" {
		t.Fatalf("unexpected result %+v", result)
	}
	// The placeholder and add-new options are skipped.
	if result.FundingAccount != "acct-9" || result.RequiresManualAccount {
		t.Fatalf("unexpected account selection %+v", result)
	}
}

func TestAgent_ErrorsFlowBackAsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(page(`<div>empty portal</div>`)))
	t.Cleanup(server.Close)
	client, err := portal.NewClient(server.URL, "")
	if err != nil {
		t.Fatalf("portal client: %v", err)
	}
	courier, err := mailbox.NewCourier(memory.NewStore(), mailbox.WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("courier: %v", err)
	}
	a, err := agent.New(client, courier, log.New(io.Discard, "", 0),
		agent.WithPageInterval(time.Millisecond),
		agent.WithPageWaits(10*time.Millisecond))
	if err != nil {
		t.Fatalf("agent: %v", err)
	}

	ctx := context.Background()
	if _, err := courier.PostRequest(ctx, mailbox.KindListLeases, "", nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	// Step returns nil: the failure travels through the result, not the loop.
	if err := a.Step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	res, err := courier.AwaitResult(ctx, mailbox.KindListLeases, "", time.Second)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if res.Err == "" {
		t.Fatal("expected an error result")
	}
}
