package portal_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"utility-billing/internal/portal"
)

const leasesHTML = `<html><body>
<div data-qa="manage-lease-item" id="manage-lease-item-TGVhc2U6OTQ2MDAy">
  <span class="R9sje">12 Oak St</span><span class="zUn7-">Unit B (ADU)</span>
</div>
<div data-qa="manage-lease-item" id="manage-lease-item-TGVhc2U6MTIzNDU2">
  <span class="R9sje">48 Elm Ave</span>
</div>
</body></html>`

const tenantsHTML = `<html><body><table>
<tr><td data-qa="view-tenant-0">
  <a href="/owners/leases/view/TGVhc2U6OTQ2MDAy"><div class="V4HkO"><span>Jordan Reyes</span></div></a>
</td></tr>
<tr><td data-qa="view-tenant-1">
  <a href="/owners/leases/view/TGVhc2U6OTQ2MDAy"><div class="V4HkO"><span>Jordan Reyes</span></div></a>
</td></tr>
<tr><td data-qa="view-tenant-2">
  <a href="/owners/leases/view/TGVhc2U6MTIzNDU2"><div class="V4HkO"><span>Sam Okafor</span></div></a>
</td></tr>
</table></body></html>`

const propertiesHTML = `<html><body>
<div data-qa="manage-property-clickable-container">
  <h3>Oak Street House</h3>
  <a href="/owners/properties/manage/prop-1">details</a>
  <a href="/owners/leases/view/TGVhc2U6OTQ2MDAy">lease</a>
</div>
<div data-qa="manage-property-clickable-container">
  <h3>Elm Avenue Duplex</h3>
  <a href="/owners/properties/manage/prop-2">details</a>
  <a href="/owners/leases/view/TGVhc2U6MTIzNDU2">lease</a>
</div>
</body></html>`

const propertyDetailHTML = `<html><body>
<p class="UN2EC">12 Oak St, Springfield, OR 97477</p>
</body></html>`

const chargeFormHTML = `<html><body>
<input type="radio" id="ONE_TIME"><button id="next_create_charge">Next</button>
<select id="category"><option value="UTILITY_CHARGE">Utility Charge</option></select>
<input id="description"><input id="amount"><input id="end_date">
<select id="destination_id">
  <option value="">Select an account</option>
  <option value="acct-9">Checking ...9921</option>
  <option value="new-bank-account">Add new bank account</option>
</select>
<input type="file">
</body></html>`

func newPortal(t *testing.T) *portal.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(portal.RouteLeases, serveHTML(leasesHTML))
	mux.HandleFunc(portal.RouteTenants, serveHTML(tenantsHTML))
	mux.HandleFunc(portal.RouteProperties, serveHTML(propertiesHTML))
	mux.HandleFunc(portal.RoutePropertyView, serveHTML(propertyDetailHTML))
	mux.HandleFunc(portal.RouteChargeCreate, serveHTML(chargeFormHTML))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := portal.NewClient(server.URL, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func serveHTML(html string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, html)
	}
}

func TestClient_Leases(t *testing.T) {
	leases, err := newPortal(t).Leases(context.Background())
	if err != nil {
		t.Fatalf("leases: %v", err)
	}
	if len(leases) != 2 {
		t.Fatalf("expected 2 leases, got %d", len(leases))
	}
	if leases[0].ID != "TGVhc2U6OTQ2MDAy" {
		t.Fatalf("id prefix not trimmed: %q", leases[0].ID)
	}
	if leases[0].DisplayName != "12 Oak St - Unit B (ADU)" {
		t.Fatalf("unexpected display name %q", leases[0].DisplayName)
	}
	// No unit means the display name is just the property name.
	if leases[1].DisplayName != "48 Elm Ave" {
		t.Fatalf("unexpected display name %q", leases[1].DisplayName)
	}
}

func TestPage_TenantNames(t *testing.T) {
	client := newPortal(t)
	page, err := client.Navigate(context.Background(), portal.RouteTenants)
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}

	names, err := page.TenantNames("TGVhc2U6OTQ2MDAy")
	if err != nil {
		t.Fatalf("tenants: %v", err)
	}
	// Two cells link the lease but carry the same name.
	if len(names) != 1 || names[0] != "Jordan Reyes" {
		t.Fatalf("unexpected names %v", names)
	}

	none, err := page.TenantNames("no-such-lease")
	if err != nil {
		t.Fatalf("tenants: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no names, got %v", none)
	}
}

func TestPage_TenantNamesWrongPage(t *testing.T) {
	client := newPortal(t)
	page, err := client.Navigate(context.Background(), portal.RouteLeases)
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if _, err := page.TenantNames("x"); !errors.Is(err, portal.ErrWrongPage) {
		t.Fatalf("expected ErrWrongPage, got %v", err)
	}
}

func TestPage_FindPropertyTile(t *testing.T) {
	client := newPortal(t)
	page, err := client.Navigate(context.Background(), portal.RouteProperties)
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}

	tile, found, err := page.FindPropertyTile("TGVhc2U6OTQ2MDAy")
	if err != nil || !found {
		t.Fatalf("find: found=%v err=%v", found, err)
	}
	if tile.Name != "Oak Street House" {
		t.Fatalf("unexpected tile name %q", tile.Name)
	}
	if tile.DetailRoute != "/owners/properties/manage/prop-1" {
		t.Fatalf("unexpected detail route %q", tile.DetailRoute)
	}

	if _, found, err := page.FindPropertyTile("no-such-lease"); err != nil || found {
		t.Fatalf("expected not found, found=%v err=%v", found, err)
	}
}

func TestPage_Address(t *testing.T) {
	client := newPortal(t)
	page, err := client.Navigate(context.Background(), portal.RoutePropertyView+"prop-1")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	address, err := page.Address()
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if address != "12 Oak St, Springfield, OR 97477" {
		t.Fatalf("unexpected address %q", address)
	}
}

func TestPage_AddressMissingElement(t *testing.T) {
	client := newPortal(t)
	page, err := client.Navigate(context.Background(), portal.RouteLeases)
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	_, err = page.Address()
	var notFound *portal.ElementNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ElementNotFoundError, got %v", err)
	}
	if notFound.Selector != "p.UN2EC" {
		t.Fatalf("unexpected selector %q", notFound.Selector)
	}
}

func TestPage_FundingAccounts(t *testing.T) {
	client := newPortal(t)
	page, err := client.Navigate(context.Background(), portal.RouteChargeCreate+"TGVhc2U6OTQ2MDAy")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if !page.HasChargeForm() {
		t.Fatal("expected charge form present")
	}
	accounts, err := page.FundingAccounts()
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	// Placeholder and add-new entries are filtered out.
	if len(accounts) != 1 || accounts[0].Value != "acct-9" {
		t.Fatalf("unexpected accounts %v", accounts)
	}
}
