// Package apihttp exposes the billing workflow over HTTP for the
// operator UI.
package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"utility-billing/internal/extraction"
	"utility-billing/internal/mailbox"
	"utility-billing/internal/portal"
	"utility-billing/internal/settings"
	"utility-billing/internal/usage"
	"utility-billing/internal/workflow"
)

// RunsHandler serves /api/v1/runs and its sub-resources.
type RunsHandler struct {
	orchestrator *workflow.Orchestrator
}

// NewRunsHandler constructs a RunsHandler.
func NewRunsHandler(orchestrator *workflow.Orchestrator) *RunsHandler {
	return &RunsHandler{orchestrator: orchestrator}
}

// ServeHTTP routes run requests. Paths:
//
//	POST /api/v1/runs                      start a run
//	GET  /api/v1/runs/{id}                 run snapshot
//	POST /api/v1/runs/{id}/proceed         leave the settings panel
//	GET  /api/v1/runs/{id}/leases          billable leases
//	POST /api/v1/runs/{id}/lease           select a lease
//	POST /api/v1/runs/{id}/bill            upload report + bill pdf
//	POST /api/v1/runs/{id}/bill/manual     manual bill entry
//	POST /api/v1/runs/{id}/review          edit reviewed figures
//	POST /api/v1/runs/{id}/generate        scrape details, render invoice
//	GET  /api/v1/runs/{id}/invoice.pdf     rendered invoice
//	GET  /api/v1/runs/{id}/invoice.xlsx    rendered workbook
//	POST /api/v1/runs/{id}/charge          stage the charge
//	POST /api/v1/runs/{id}/restart         start over
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.orchestrator == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/runs"), "/")
	if rest == "" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		run, err := h.orchestrator.StartRun(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, run)
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	runID := parts[0]
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.snapshot(w, runID)
	case action == "proceed" && r.Method == http.MethodPost:
		h.respond(w, func() (workflow.Run, error) { return h.orchestrator.Proceed(runID) })
	case action == "leases" && r.Method == http.MethodGet:
		h.leases(w, r, runID)
	case action == "lease" && r.Method == http.MethodPost:
		h.selectLease(w, r, runID)
	case action == "bill" && r.Method == http.MethodPost:
		h.uploadBill(w, r, runID)
	case action == "bill/manual" && r.Method == http.MethodPost:
		h.manualBill(w, r, runID)
	case action == "review" && r.Method == http.MethodPost:
		h.review(w, r, runID)
	case action == "generate" && r.Method == http.MethodPost:
		h.respond(w, func() (workflow.Run, error) { return h.orchestrator.Generate(r.Context(), runID) })
	case action == "invoice.pdf" && r.Method == http.MethodGet:
		h.document(w, runID, "application/pdf", func(run workflow.Run) []byte { return run.InvoicePDF })
	case action == "invoice.xlsx" && r.Method == http.MethodGet:
		h.document(w, runID, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			func(run workflow.Run) []byte { return run.InvoiceXLSX })
	case action == "charge" && r.Method == http.MethodPost:
		h.respond(w, func() (workflow.Run, error) { return h.orchestrator.StageCharge(r.Context(), runID) })
	case action == "restart" && r.Method == http.MethodPost:
		h.respond(w, func() (workflow.Run, error) { return h.orchestrator.StartOver(r.Context(), runID) })
	default:
		http.NotFound(w, r)
	}
}

func (h *RunsHandler) snapshot(w http.ResponseWriter, runID string) {
	run, err := h.orchestrator.Run(runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *RunsHandler) respond(w http.ResponseWriter, op func() (workflow.Run, error)) {
	run, err := op()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *RunsHandler) leases(w http.ResponseWriter, r *http.Request, runID string) {
	leases, err := h.orchestrator.ListLeases(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leases": leases})
}

func (h *RunsHandler) selectLease(w http.ResponseWriter, r *http.Request, runID string) {
	var lease portal.Lease
	if err := json.NewDecoder(r.Body).Decode(&lease); err != nil {
		http.Error(w, "invalid lease payload", http.StatusBadRequest)
		return
	}
	h.respond(w, func() (workflow.Run, error) {
		return h.orchestrator.SelectLease(r.Context(), runID, lease)
	})
}

type billUpload struct {
	BillPDF     []byte `json:"billPdf"`
	SubmeterCSV string `json:"submeterCsv"`
}

func (h *RunsHandler) uploadBill(w http.ResponseWriter, r *http.Request, runID string) {
	var upload billUpload
	if err := json.NewDecoder(r.Body).Decode(&upload); err != nil {
		http.Error(w, "invalid upload payload", http.StatusBadRequest)
		return
	}
	h.respond(w, func() (workflow.Run, error) {
		return h.orchestrator.UploadBill(r.Context(), runID, upload.BillPDF, upload.SubmeterCSV)
	})
}

type manualBill struct {
	SubmeterCSV string  `json:"submeterCsv"`
	Period      string  `json:"period"`
	TotalAmount float64 `json:"totalAmount"`
	TotalKwh    float64 `json:"totalKwh"`
}

func (h *RunsHandler) manualBill(w http.ResponseWriter, r *http.Request, runID string) {
	var entry manualBill
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "invalid bill payload", http.StatusBadRequest)
		return
	}
	h.respond(w, func() (workflow.Run, error) {
		return h.orchestrator.EnterBillManually(r.Context(), runID, entry.SubmeterCSV, entry.Period, entry.TotalAmount, entry.TotalKwh)
	})
}

func (h *RunsHandler) review(w http.ResponseWriter, r *http.Request, runID string) {
	var update workflow.ReviewUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid review payload", http.StatusBadRequest)
		return
	}
	h.respond(w, func() (workflow.Run, error) {
		return h.orchestrator.UpdateReview(runID, update)
	})
}

func (h *RunsHandler) document(w http.ResponseWriter, runID, contentType string, pick func(workflow.Run) []byte) {
	run, err := h.orchestrator.Run(runID)
	if err != nil {
		writeError(w, err)
		return
	}
	raw := pick(run)
	if len(raw) == 0 {
		http.Error(w, "document not generated yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(raw)
}

// AgentHandler serves GET /api/v1/agent: a liveness probe for the portal
// agent, answered through the mailbox.
type AgentHandler struct {
	orchestrator *workflow.Orchestrator
}

// NewAgentHandler constructs an AgentHandler.
func NewAgentHandler(orchestrator *workflow.Orchestrator) *AgentHandler {
	return &AgentHandler{orchestrator: orchestrator}
}

func (h *AgentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.orchestrator == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status, err := h.orchestrator.AgentStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// SettingsHandler serves /api/v1/settings.
type SettingsHandler struct {
	orchestrator *workflow.Orchestrator
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(orchestrator *workflow.Orchestrator) *SettingsHandler {
	return &SettingsHandler{orchestrator: orchestrator}
}

// ServeHTTP handles GET and PUT /api/v1/settings. The extraction key is
// never echoed back.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.orchestrator == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, redactSettings(h.orchestrator.Settings()))
	case http.MethodPut:
		var cfg settings.Settings
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "invalid settings payload", http.StatusBadRequest)
			return
		}
		if cfg.ExtractionAPIKey == "" {
			cfg.ExtractionAPIKey = h.orchestrator.Settings().ExtractionAPIKey
		}
		h.orchestrator.UpdateSettings(cfg)
		writeJSON(w, http.StatusOK, redactSettings(cfg))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type settingsView struct {
	LandlordName     string `json:"landlordName"`
	LandlordAddress  string `json:"landlordAddress"`
	LandlordPhone    string `json:"landlordPhone"`
	SubmeterColumn1  string `json:"submeterColumn1"`
	SubmeterColumn2  string `json:"submeterColumn2"`
	ExtractionKeySet bool   `json:"extractionKeySet"`
}

func redactSettings(cfg settings.Settings) settingsView {
	return settingsView{
		LandlordName:     cfg.LandlordName,
		LandlordAddress:  cfg.LandlordAddress,
		LandlordPhone:    cfg.LandlordPhone,
		SubmeterColumn1:  cfg.SubmeterColumn1,
		SubmeterColumn2:  cfg.SubmeterColumn2,
		ExtractionKeySet: cfg.ExtractionAPIKey != "",
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var invalid *workflow.InvalidTransitionError
	var docErr *extraction.DocumentError
	var missingCols *usage.MissingColumnsError
	switch {
	case errors.Is(err, workflow.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, mailbox.ErrLeaseLocked):
		status = http.StatusConflict
	case errors.As(err, &invalid):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrSettingsIncomplete):
		status = http.StatusPreconditionFailed
	case errors.As(err, &docErr),
		errors.As(err, &missingCols),
		errors.Is(err, usage.ErrEmptyReport),
		errors.Is(err, usage.ErrColumnsNotConfigured):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, extraction.ErrAPIKeyMissing), errors.Is(err, extraction.ErrInvalidAPIKey):
		status = http.StatusBadGateway
	case errors.Is(err, mailbox.ErrAwaitTimeout), errors.Is(err, workflow.ErrChargeNotStaged):
		status = http.StatusGatewayTimeout
	}
	http.Error(w, err.Error(), status)
}
