package agent

import "utility-billing/internal/portal"

// Mailbox payloads exchanged with the workflow. Both sides marshal these
// through the courier; the field names are the wire contract.

// LeaseListResult answers a list-leases request.
type LeaseListResult struct {
	Leases []portal.Lease `json:"leases"`
}

// PageStatus answers a check-page request.
type PageStatus struct {
	Route    string `json:"route"`
	OnPortal bool   `json:"onPortal"`
}

// TenantScrapeResult answers a tenant-scrape request. Tenants is empty,
// not nil-vs-error, when the lease has no linked tenants on the page.
type TenantScrapeResult struct {
	LeaseID string   `json:"leaseId"`
	Tenants []string `json:"tenants"`
}

// FindPropertyResult answers a find-property request.
type FindPropertyResult struct {
	Found        bool   `json:"found"`
	PropertyName string `json:"propertyName,omitempty"`
}

// AddressScrapeResult answers an address-scrape request. Address is ""
// when the detail page rendered without a recognizable address block.
type AddressScrapeResult struct {
	LeaseID string `json:"leaseId"`
	Address string `json:"address"`
}

// ChargeOrder is the payload of a fill-charge request. Amount and DueDate
// are preformatted strings, exactly what the charge form receives.
type ChargeOrder struct {
	LeaseID     string              `json:"leaseId"`
	Description string              `json:"description"`
	Amount      string              `json:"amount"`
	DueDate     string              `json:"dueDate"`
	Attachments []portal.Attachment `json:"attachments,omitempty"`
}

// ChargeResult answers a fill-charge request. The draft is staged, never
// submitted; RequiresManualAccount flags that no funding account could be
// preselected and a person must pick one before submitting.
type ChargeResult struct {
	ChargeID              string `json:"chargeId"`
	Staged                bool   `json:"staged"`
	FundingAccount        string `json:"fundingAccount,omitempty"`
	RequiresManualAccount bool   `json:"requiresManualAccount"`
}
