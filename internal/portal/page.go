package portal

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Leases navigates to the lease list and scrapes every lease row. This
// satisfies LeaseSource.
func (c *Client) Leases(ctx context.Context) ([]Lease, error) {
	page, err := c.Navigate(ctx, RouteLeases)
	if err != nil {
		return nil, err
	}
	return page.Leases()
}

// Has reports whether the selector matches anything on the page.
func (p *Page) Has(selector string) bool {
	return p.doc.Find(selector).Length() > 0
}

// Leases scrapes the lease list rows. A lease's ID comes from the row's
// element id; rows without one get a positional fallback.
func (p *Page) Leases() ([]Lease, error) {
	items := p.doc.Find(selLeaseItem)
	if items.Length() == 0 {
		if !strings.HasPrefix(p.Route, RouteLeases) {
			return nil, ErrWrongPage
		}
		return nil, &ElementNotFoundError{Selector: selLeaseItem, Route: p.Route}
	}

	var leases []Lease
	items.Each(func(i int, row *goquery.Selection) {
		rawID, _ := row.Attr("id")
		id := strings.TrimPrefix(rawID, leaseItemPrefix)
		if id == "" {
			id = "lease-" + strconv.Itoa(i)
		}

		name := strings.TrimSpace(row.Find(selLeaseName).First().Text())
		if name == "" {
			name = "Unknown"
		}
		unit := strings.TrimSpace(row.Find(selLeaseUnit).First().Text())

		display := name
		if unit != "" {
			display = name + " - " + unit
		}
		leases = append(leases, Lease{
			ID:          id,
			TenantName:  name,
			Unit:        unit,
			DisplayName: display,
			Address:     name,
		})
	})
	return leases, nil
}

// TenantNames scrapes the tenants page for names linked to the given
// lease. Duplicate names collapse to one entry.
func (p *Page) TenantNames(leaseID string) ([]string, error) {
	if !strings.HasPrefix(p.Route, RouteTenants) {
		return nil, ErrWrongPage
	}
	cells := p.doc.Find(selTenantCell)
	if cells.Length() == 0 {
		return nil, &ElementNotFoundError{Selector: selTenantCell, Route: p.Route}
	}

	var names []string
	seen := make(map[string]bool)
	cells.Each(func(_ int, cell *goquery.Selection) {
		link := cell.Find(`a[href*="` + RouteLeaseView + `"]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		_, linkedID, found := strings.Cut(href, RouteLeaseView)
		if !found || linkedID != leaseID {
			return
		}
		name := strings.TrimSpace(cell.Find(selTenantName).First().Text())
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	return names, nil
}

// PropertyTile is a property card on the properties page.
type PropertyTile struct {
	Name        string
	DetailRoute string
}

// FindPropertyTile locates the property card that links to the given
// lease. The second return is false when no card matches.
func (p *Page) FindPropertyTile(leaseID string) (PropertyTile, bool, error) {
	tiles := p.doc.Find(selPropertyTile)
	if tiles.Length() == 0 {
		return PropertyTile{}, false, &ElementNotFoundError{Selector: selPropertyTile, Route: p.Route}
	}

	var tile PropertyTile
	var found bool
	tiles.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if card.Find(`a[href*="`+RouteLeaseView+leaseID+`"]`).Length() == 0 {
			return true
		}
		name := strings.TrimSpace(card.Find(selPropertyName).First().Text())
		if name == "" {
			name = "Unknown Property"
		}
		detail, _ := card.Find(`a[href*="` + RoutePropertyView + `"]`).First().Attr("href")
		tile = PropertyTile{Name: name, DetailRoute: detail}
		found = true
		return false
	})
	return tile, found, nil
}

// Address scrapes the street address off a property detail page.
func (p *Page) Address() (string, error) {
	el := p.doc.Find(selAddress).First()
	if el.Length() == 0 {
		return "", &ElementNotFoundError{Selector: selAddress, Route: p.Route}
	}
	return strings.TrimSpace(el.Text()), nil
}

// Presence checks used while waiting for slow pages to finish rendering.

// HasLeaseRows reports whether any lease rows are present.
func (p *Page) HasLeaseRows() bool {
	return p.Has(selLeaseItem)
}

// HasTenantTable reports whether the tenant table has rendered.
func (p *Page) HasTenantTable() bool {
	return p.Has(selTenantCell)
}

// HasPropertyTiles reports whether any property cards are present.
func (p *Page) HasPropertyTiles() bool {
	return p.Has(selPropertyTile)
}

// HasAddress reports whether the property address has rendered.
func (p *Page) HasAddress() bool {
	return p.Has(selAddress)
}

// HasChargeForm reports whether the one-time charge form is present.
func (p *Page) HasChargeForm() bool {
	return p.Has(selChargeTypeOneTime)
}

// FundingAccount is one selectable deposit account on the charge form.
type FundingAccount struct {
	Value string
	Label string
}

// FundingAccounts lists the real deposit accounts on the charge form.
// The placeholder and the "add new bank account" entries are skipped.
func (p *Page) FundingAccounts() ([]FundingAccount, error) {
	sel := p.doc.Find(selBankAccount).First()
	if sel.Length() == 0 {
		return nil, &ElementNotFoundError{Selector: selBankAccount, Route: p.Route}
	}

	var accounts []FundingAccount
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		value, _ := opt.Attr("value")
		if value == "" || value == newBankAccountValue {
			return
		}
		accounts = append(accounts, FundingAccount{
			Value: value,
			Label: strings.TrimSpace(opt.Text()),
		})
	})
	return accounts, nil
}
