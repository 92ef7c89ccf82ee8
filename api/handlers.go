/*
handlers.go - HTTP API handlers for the practice engine

PURPOSE:
  Exposes the dashboard aggregator and template ranker via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic. Record intake endpoints exist so external systems (and the
  demo seeder) can feed the book the dashboard reads.

ENDPOINTS:
  Dashboard:
    GET    /api/practitioners/{id}/dashboard        Full metrics snapshot
    DELETE /api/practitioners/{id}/dashboard/cache  Force next read fresh

  Templates:
    GET    /api/practitioners/{id}/templates            All, ranked per category
    GET    /api/practitioners/{id}/templates?category=  One category, ranked
    GET    /api/practitioners/{id}/templates/all        Management view
    POST   /api/practitioners/{id}/templates/usage      Record a usage
    GET    /api/practitioners/{id}/templates/export     Versioned export payload
    POST   /api/practitioners/{id}/templates/import     Import a payload
    PUT    /api/templates/{id}                          Rename custom template
    DELETE /api/templates/{id}                          Delete custom template

  Record intake:
    POST   /api/practitioners/{id}/matters
    POST   /api/practitioners/{id}/invoices
    POST   /api/practitioners/{id}/proformas
    POST   /api/practitioners/{id}/payments
    POST   /api/practitioners/{id}/amendments
    POST   /api/practitioners/{id}/activity

  Seed:
    POST   /api/seed   Load system templates + demo book

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, system-template mutation
  - 404: Resource not found
  - 500: Store or internal errors

SECURITY NOTE:
  The practitioner id comes straight from the URL; authentication is
  expected upstream (reverse proxy / gateway).

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Demo data loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/lexo/practice-engine/dashboard"
	"github.com/lexo/practice-engine/practice"
	"github.com/lexo/practice-engine/templates"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     practice.Store
	Dashboard *dashboard.Aggregator
	Templates *templates.Ranker

	log      logrus.FieldLogger
	validate *validator.Validate
	clock    practice.Clock
}

// NewHandler creates a handler over the given store and services.
func NewHandler(store practice.Store, agg *dashboard.Aggregator, ranker *templates.Ranker, log logrus.FieldLogger, clock practice.Clock) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if clock == nil {
		clock = practice.SystemClock{}
	}
	return &Handler{
		Store:     store,
		Dashboard: agg,
		Templates: ranker,
		log:       log,
		validate:  validator.New(),
		clock:     clock,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func practitionerID(r *http.Request) practice.PractitionerID {
	return practice.PractitionerID(chi.URLParam(r, "id"))
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetDashboard returns the full metrics snapshot, served from cache when
// fresh enough.
// GET /api/practitioners/{id}/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.Dashboard.GetMetrics(r.Context(), practitionerID(r))
	if err != nil {
		h.writeDomainError(w, "Failed to compute dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// ClearDashboardCache drops the practitioner's cached snapshot so the next
// read recomputes.
// DELETE /api/practitioners/{id}/dashboard/cache
func (h *Handler) ClearDashboardCache(w http.ResponseWriter, r *http.Request) {
	h.Dashboard.ClearCache(practitionerID(r))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

// ListTemplates returns ranked suggestions. With ?category= it serves one
// category; without, the full management view across all categories.
// GET /api/practitioners/{id}/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	id := practitionerID(r)

	var (
		rows []practice.QuickBriefTemplate
		err  error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		rows, err = h.Templates.ByCategory(r.Context(), id, practice.TemplateCategory(category))
	} else {
		rows, err = h.Templates.All(r.Context(), id)
	}
	if err != nil {
		h.writeDomainError(w, "Failed to list templates", err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTOs(rows))
}

// ListAllTemplates returns the management view: every template visible to
// the practitioner across all categories, in canonical category order.
// GET /api/practitioners/{id}/templates/all
func (h *Handler) ListAllTemplates(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Templates.All(r.Context(), practitionerID(r))
	if err != nil {
		h.writeDomainError(w, "Failed to list templates", err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTOs(rows))
}

// RecordTemplateUsage increments (or creates) the usage row for a value.
// POST /api/practitioners/{id}/templates/usage
func (h *Handler) RecordTemplateUsage(w http.ResponseWriter, r *http.Request) {
	var req RecordUsageRequest
	if !h.decode(w, r, &req) {
		return
	}

	row, err := h.Templates.RecordUsage(r.Context(), practitionerID(r),
		practice.TemplateCategory(req.Category), req.Value)
	if err != nil {
		h.writeDomainError(w, "Failed to record usage", err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(row))
}

// RenameTemplate replaces the value of a custom template.
// PUT /api/templates/{id}
func (h *Handler) RenameTemplate(w http.ResponseWriter, r *http.Request) {
	var req RenameTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}

	row, err := h.Templates.Rename(r.Context(), practice.TemplateID(chi.URLParam(r, "id")), req.Value)
	if err != nil {
		h.writeDomainError(w, "Failed to rename template", err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(row))
}

// DeleteTemplate removes a custom template.
// DELETE /api/templates/{id}
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	err := h.Templates.Delete(r.Context(), practice.TemplateID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to delete template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportTemplates returns the versioned payload of the practitioner's custom
// templates.
// GET /api/practitioners/{id}/templates/export
func (h *Handler) ExportTemplates(w http.ResponseWriter, r *http.Request) {
	payload, err := h.Templates.Export(r.Context(), practitionerID(r))
	if err != nil {
		h.writeDomainError(w, "Failed to export templates", err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// ImportTemplates imports a previously exported payload.
// POST /api/practitioners/{id}/templates/import
func (h *Handler) ImportTemplates(w http.ResponseWriter, r *http.Request) {
	var payload templates.Export
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	result, err := h.Templates.Import(r.Context(), practitionerID(r), payload)
	if err != nil {
		h.writeDomainError(w, "Failed to import templates", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// RECORD INTAKE HANDLERS
// =============================================================================

// CreateMatter stores a matter and invalidates the dashboard cache.
// POST /api/practitioners/{id}/matters
func (h *Handler) CreateMatter(w http.ResponseWriter, r *http.Request) {
	var req CreateMatterRequest
	if !h.decode(w, r, &req) {
		return
	}

	fee, err := parseMoneyField("estimated_fee", req.EstimatedFee)
	if err != nil {
		h.writeDomainError(w, "Invalid matter", err)
		return
	}
	wip, err := parseMoneyField("wip_value", req.WIPValue)
	if err != nil {
		h.writeDomainError(w, "Invalid matter", err)
		return
	}
	due, err := parseDateField("expected_completion_date", req.ExpectedCompletionDate)
	if err != nil {
		h.writeDomainError(w, "Invalid matter", err)
		return
	}
	commenced, err := parseDateField("date_commenced", req.DateCommenced)
	if err != nil {
		h.writeDomainError(w, "Invalid matter", err)
		return
	}
	closed, err := parseDateField("date_closed", req.DateClosed)
	if err != nil {
		h.writeDomainError(w, "Invalid matter", err)
		return
	}

	matter := practice.Matter{
		ID:                     practice.MatterID(req.ID),
		PractitionerID:         practitionerID(r),
		Title:                  req.Title,
		ClientName:             req.ClientName,
		Status:                 practice.MatterStatus(req.Status),
		ExpectedCompletionDate: due,
		EstimatedFee:           fee,
		WIPValue:               wip,
		DateCommenced:          commenced,
		DateClosed:             closed,
		UpdatedAt:              h.clock.Now(),
	}
	if err := h.Store.SaveMatter(r.Context(), matter); err != nil {
		h.writeDomainError(w, "Failed to save matter", err)
		return
	}

	h.Dashboard.ClearCache(matter.PractitionerID)
	writeJSON(w, http.StatusCreated, IDResponse{ID: string(matter.ID)})
}

// CreateInvoice stores an invoice and invalidates the dashboard cache.
// POST /api/practitioners/{id}/invoices
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	total, err := parseMoneyField("total_amount", req.TotalAmount)
	if err != nil {
		h.writeDomainError(w, "Invalid invoice", err)
		return
	}
	paid, err := parseMoneyField("amount_paid", req.AmountPaid)
	if err != nil {
		h.writeDomainError(w, "Invalid invoice", err)
		return
	}
	due, err := parseDateField("due_date", req.DueDate)
	if err != nil {
		h.writeDomainError(w, "Invalid invoice", err)
		return
	}
	issued, err := parseDateField("invoice_date", req.InvoiceDate)
	if err != nil {
		h.writeDomainError(w, "Invalid invoice", err)
		return
	}

	invoice := practice.Invoice{
		ID:             practice.InvoiceID(req.ID),
		PractitionerID: practitionerID(r),
		MatterID:       practice.MatterID(req.MatterID),
		InvoiceNumber:  req.InvoiceNumber,
		TotalAmount:    total,
		AmountPaid:     paid,
		Status:         practice.InvoiceStatus(req.Status),
		DueDate:        due,
		InvoiceDate:    issued,
	}
	if err := h.Store.SaveInvoice(r.Context(), invoice); err != nil {
		h.writeDomainError(w, "Failed to save invoice", err)
		return
	}

	h.Dashboard.ClearCache(invoice.PractitionerID)
	writeJSON(w, http.StatusCreated, IDResponse{ID: string(invoice.ID)})
}

// CreateProforma stores a pro forma request.
// POST /api/practitioners/{id}/proformas
func (h *Handler) CreateProforma(w http.ResponseWriter, r *http.Request) {
	var req CreateProformaRequest
	if !h.decode(w, r, &req) {
		return
	}

	fee, err := parseMoneyField("estimated_fee", req.EstimatedFee)
	if err != nil {
		h.writeDomainError(w, "Invalid pro forma", err)
		return
	}
	createdAt, err := parseTimeField("created_at", req.CreatedAt)
	if err != nil {
		h.writeDomainError(w, "Invalid pro forma", err)
		return
	}
	if createdAt.IsZero() {
		createdAt = h.clock.Now()
	}

	proforma := practice.ProformaRequest{
		ID:             practice.ProformaID(req.ID),
		PractitionerID: practitionerID(r),
		Title:          req.Title,
		EstimatedFee:   fee,
		Status:         practice.ProformaStatus(req.Status),
		CreatedAt:      createdAt,
	}
	if err := h.Store.SaveProforma(r.Context(), proforma); err != nil {
		h.writeDomainError(w, "Failed to save pro forma", err)
		return
	}

	h.Dashboard.ClearCache(proforma.PractitionerID)
	writeJSON(w, http.StatusCreated, IDResponse{ID: string(proforma.ID)})
}

// CreatePayment records money received.
// POST /api/practitioners/{id}/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := parseMoneyField("amount", req.Amount)
	if err != nil {
		h.writeDomainError(w, "Invalid payment", err)
		return
	}
	paidOn, err := parseDateField("payment_date", req.PaymentDate)
	if err != nil {
		h.writeDomainError(w, "Invalid payment", err)
		return
	}

	payment := practice.Payment{
		ID:             req.ID,
		PractitionerID: practitionerID(r),
		InvoiceID:      practice.InvoiceID(req.InvoiceID),
		Amount:         amount,
		PaymentDate:    paidOn,
	}
	if err := h.Store.SavePayment(r.Context(), payment); err != nil {
		h.writeDomainError(w, "Failed to save payment", err)
		return
	}

	h.Dashboard.ClearCache(payment.PractitionerID)
	writeJSON(w, http.StatusCreated, IDResponse{ID: payment.ID})
}

// CreateAmendment records a proposed scope change.
// POST /api/practitioners/{id}/amendments
func (h *Handler) CreateAmendment(w http.ResponseWriter, r *http.Request) {
	var req CreateAmendmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	amendment := practice.ScopeAmendment{
		ID:             req.ID,
		PractitionerID: practitionerID(r),
		MatterID:       practice.MatterID(req.MatterID),
		Description:    req.Description,
		Status:         practice.AmendmentStatus(req.Status),
		CreatedAt:      h.clock.Now(),
	}
	if err := h.Store.SaveScopeAmendment(r.Context(), amendment); err != nil {
		h.writeDomainError(w, "Failed to save amendment", err)
		return
	}

	h.Dashboard.ClearCache(amendment.PractitionerID)
	writeJSON(w, http.StatusCreated, IDResponse{ID: amendment.ID})
}

// CreateActivity records billable time or a logged service on a matter.
// POST /api/practitioners/{id}/activity
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req CreateActivityRequest
	if !h.decode(w, r, &req) {
		return
	}

	at, err := parseTimeField("at", req.At)
	if err != nil {
		h.writeDomainError(w, "Invalid activity", err)
		return
	}
	if at.IsZero() {
		at = h.clock.Now()
	}

	matterID := practice.MatterID(req.MatterID)
	switch req.Kind {
	case "time_entry":
		err = h.Store.SaveTimeEntry(r.Context(), practice.TimeEntry{MatterID: matterID, CreatedAt: at})
	case "logged_service":
		err = h.Store.SaveLoggedService(r.Context(), practice.LoggedService{MatterID: matterID, CreatedAt: at})
	}
	if err != nil {
		h.writeDomainError(w, "Failed to save activity", err)
		return
	}

	h.Dashboard.ClearCache(practitionerID(r))
	w.WriteHeader(http.StatusCreated)
}

// =============================================================================
// SEED HANDLER
// =============================================================================

// SeedDemoBook loads the system-default templates and a small demo book.
// Safe to call repeatedly: template seeding skips existing rows and demo
// records use fixed ids.
// POST /api/seed
func (h *Handler) SeedDemoBook(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	owner := practice.PractitionerID(req.PractitionerID)
	if owner == "" {
		owner = "demo"
	}

	if err := SeedSystemTemplates(r.Context(), h.Store, h.clock); err != nil {
		h.writeDomainError(w, "Failed to seed system templates", err)
		return
	}
	if err := SeedDemo(r.Context(), h.Store, h.clock, owner); err != nil {
		h.writeDomainError(w, "Failed to seed demo book", err)
		return
	}

	h.Dashboard.ClearCache(owner)
	writeJSON(w, http.StatusOK, IDResponse{ID: string(owner)})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case practice.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case practice.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		h.log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
