// fakeportal serves a minimal copy of the rental portal's owner pages,
// using the same markup the live portal renders. It exists so the agent
// and the billing service can be exercised end to end without a portal
// login: point PORTAL_URL at it and stage charges against made-up leases.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type lease struct {
	ID       string
	Name     string
	Unit     string
	Tenants  []string
	Property string
	DetailID string
	Address  string
}

type fakePortal struct {
	start   time.Time
	latency time.Duration
	leases  []lease

	mu       sync.Mutex
	drafts   map[string][]draft
	draftSeq int64
	calls    int64
}

type draft struct {
	ChargeID    string
	Description string
	Amount      string
	DueDate     string
	Destination string
	Files       []string
}

func main() {
	addr := getenvDefault("FAKE_PORTAL_ADDR", ":18080")
	latencyMs := getenvIntDefault("FAKE_PORTAL_LATENCY_MS", 0)

	srv := &fakePortal{
		start:   time.Now().UTC(),
		latency: time.Duration(latencyMs) * time.Millisecond,
		leases: []lease{
			{
				ID:       "TGVhc2U6OTQ2MDAy",
				Name:     "12 Oak St",
				Unit:     "Unit B (ADU)",
				Tenants:  []string{"Jordan Reyes"},
				Property: "Oak Street House",
				DetailID: "prop-1",
				Address:  "12 Oak St, Springfield, OR 97477",
			},
			{
				ID:       "TGVhc2U6MTIzNDU2",
				Name:     "48 Elm Ave",
				Tenants:  []string{"Sam Okafor", "Lee Okafor"},
				Property: "Elm Avenue Duplex",
				DetailID: "prop-2",
				Address:  "48 Elm Ave, Springfield, OR 97477",
			},
		},
		drafts: make(map[string][]draft),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/stats", srv.handleStats)
	mux.HandleFunc("/owners/leases", srv.handleLeases)
	mux.HandleFunc("/owners/renters/tenants", srv.handleTenants)
	mux.HandleFunc("/owners/properties", srv.handleProperties)
	mux.HandleFunc("/owners/properties/manage/", srv.handlePropertyDetail)
	mux.HandleFunc("/owners/payments/charges/create/", srv.handleCharge)

	log.Printf("fakeportal listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, srv.wrap(mux)))
}

func (s *fakePortal) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.calls, 1)
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *fakePortal) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *fakePortal) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := map[string]any{
		"uptime":     time.Since(s.start).String(),
		"calls":      atomic.LoadInt64(&s.calls),
		"draftCount": s.draftSeq,
		"drafts":     s.drafts,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (s *fakePortal) handleLeases(w http.ResponseWriter, _ *http.Request) {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	for _, l := range s.leases {
		fmt.Fprintf(&b, `<div data-qa="manage-lease-item" id="manage-lease-item-%s">`+"\n", l.ID)
		fmt.Fprintf(&b, `  <span class="R9sje">%s</span>`, l.Name)
		if l.Unit != "" {
			fmt.Fprintf(&b, `<span class="zUn7-">%s</span>`, l.Unit)
		}
		b.WriteString("\n</div>\n")
	}
	b.WriteString("</body></html>")
	writeHTML(w, b.String())
}

func (s *fakePortal) handleTenants(w http.ResponseWriter, _ *http.Request) {
	var b strings.Builder
	b.WriteString("<html><body><table>\n")
	row := 0
	for _, l := range s.leases {
		for _, name := range l.Tenants {
			fmt.Fprintf(&b, `<tr><td data-qa="view-tenant-%d">`+"\n", row)
			fmt.Fprintf(&b, `  <a href="/owners/leases/view/%s"><div class="V4HkO"><span>%s</span></div></a>`+"\n", l.ID, name)
			b.WriteString("</td></tr>\n")
			row++
		}
	}
	b.WriteString("</table></body></html>")
	writeHTML(w, b.String())
}

func (s *fakePortal) handleProperties(w http.ResponseWriter, _ *http.Request) {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	for _, l := range s.leases {
		b.WriteString(`<div data-qa="manage-property-clickable-container">` + "\n")
		fmt.Fprintf(&b, "  <h3>%s</h3>\n", l.Property)
		fmt.Fprintf(&b, `  <a href="/owners/properties/manage/%s">details</a>`+"\n", l.DetailID)
		fmt.Fprintf(&b, `  <a href="/owners/leases/view/%s">lease</a>`+"\n", l.ID)
		b.WriteString("</div>\n")
	}
	b.WriteString("</body></html>")
	writeHTML(w, b.String())
}

func (s *fakePortal) handlePropertyDetail(w http.ResponseWriter, r *http.Request) {
	detailID := strings.TrimPrefix(r.URL.Path, "/owners/properties/manage/")
	for _, l := range s.leases {
		if l.DetailID == detailID {
			writeHTML(w, fmt.Sprintf(`<html><body><p class="UN2EC">%s</p></body></html>`, l.Address))
			return
		}
	}
	writeHTML(w, "<html><body></body></html>")
}

const chargeFormPage = `<html><body>
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

// handleCharge serves the charge form on GET and accepts a draft on POST
// to .../create/<leaseID>/draft, answering with the draft's charge id.
func (s *fakePortal) handleCharge(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeHTML(w, chargeFormPage)
		return
	}
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/draft") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	leaseID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/owners/payments/charges/create/"), "/draft")
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	d := draft{
		Description: r.FormValue("description"),
		Amount:      r.FormValue("amount"),
		DueDate:     r.FormValue("end_date"),
		Destination: r.FormValue("destination_id"),
	}
	if r.MultipartForm != nil {
		for _, file := range r.MultipartForm.File["attachments"] {
			d.Files = append(d.Files, file.Filename)
		}
	}

	s.mu.Lock()
	s.draftSeq++
	d.ChargeID = fmt.Sprintf("chg-%d", s.draftSeq)
	s.drafts[leaseID] = append(s.drafts[leaseID], d)
	s.mu.Unlock()

	log.Printf("draft %s for lease %s: %s %s due %s (%d files)",
		d.ChargeID, leaseID, d.Description, d.Amount, d.DueDate, len(d.Files))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"chargeId": d.ChargeID})
}

func writeHTML(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
