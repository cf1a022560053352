package portal

// Selectors and routes for the rental portal's owner pages, captured from
// the live DOM in Jan 2026. The class-based ones are build artifacts and
// drift when the portal redeploys; prefer data-qa attributes where the
// portal provides them.
const (
	selLeaseItem    = `div[data-qa="manage-lease-item"]`
	selLeaseName    = `.R9sje`
	selLeaseUnit    = `.zUn7-`
	leaseItemPrefix = "manage-lease-item-"

	selTenantCell = `td[data-qa^="view-tenant"]`
	selTenantName = `.V4HkO span`

	selPropertyTile = `[data-qa="manage-property-clickable-container"]`
	selPropertyName = `h3`
	selAddress      = `p.UN2EC`

	selChargeTypeOneTime = `#ONE_TIME`
	selChargeTypeNext    = `#next_create_charge`
	selCategory          = `#category`
	selDescription       = `#description`
	selAmount            = `#amount`
	selDueDate           = `#end_date`
	selBankAccount       = `#destination_id`
	selFileInput         = `input[type="file"]`
)

// Owner page routes.
const (
	RouteLeases       = "/owners/leases"
	RouteTenants      = "/owners/renters/tenants"
	RouteProperties   = "/owners/properties"
	RoutePropertyView = "/owners/properties/manage/"
	RouteLeaseView    = "/owners/leases/view/"
	RouteChargeCreate = "/owners/payments/charges/create/"
)

// Funding account option values that never identify a real account.
const newBankAccountValue = "new-bank-account"
