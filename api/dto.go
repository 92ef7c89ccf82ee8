/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  the shared validator before touching domain logic. Money and dates come
  in as strings and are parsed explicitly so a malformed amount is a 400,
  never a silent zero.

SEE ALSO:
  - handlers.go: Uses these types
  - dashboard/types.go, practice/types.go: The domain shapes behind them
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexo/practice-engine/practice"
)

// =============================================================================
// RECORD INTAKE REQUESTS
// =============================================================================

// CreateMatterRequest creates or updates a matter on the practitioner's book.
type CreateMatterRequest struct {
	ID                     string `json:"id"`
	Title                  string `json:"title" validate:"required"`
	ClientName             string `json:"client_name"`
	Status                 string `json:"status" validate:"required,oneof=new_request active pending completed archived"`
	ExpectedCompletionDate string `json:"expected_completion_date"`
	EstimatedFee           string `json:"estimated_fee"`
	WIPValue               string `json:"wip_value"`
	DateCommenced          string `json:"date_commenced"`
	DateClosed             string `json:"date_closed"`
}

// CreateInvoiceRequest records a fee note.
type CreateInvoiceRequest struct {
	ID            string `json:"id"`
	MatterID      string `json:"matter_id"`
	InvoiceNumber string `json:"invoice_number" validate:"required"`
	TotalAmount   string `json:"total_amount" validate:"required"`
	AmountPaid    string `json:"amount_paid"`
	Status        string `json:"status" validate:"required,oneof=draft sent paid cancelled"`
	DueDate       string `json:"due_date"`
	InvoiceDate   string `json:"invoice_date"`
}

// CreateProformaRequest records a preliminary fee estimate.
type CreateProformaRequest struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	EstimatedFee string `json:"estimated_fee"`
	Status       string `json:"status" validate:"required,oneof=draft sent approved declined"`
	CreatedAt    string `json:"created_at"`
}

// CreateAmendmentRequest records a proposed scope change.
type CreateAmendmentRequest struct {
	ID          string `json:"id"`
	MatterID    string `json:"matter_id"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"required,oneof=pending approved rejected"`
}

// CreatePaymentRequest records money received.
type CreatePaymentRequest struct {
	ID          string `json:"id"`
	InvoiceID   string `json:"invoice_id"`
	Amount      string `json:"amount" validate:"required"`
	PaymentDate string `json:"payment_date" validate:"required"`
}

// CreateActivityRequest records billable time or a logged service against a
// matter. Kind selects the collection.
type CreateActivityRequest struct {
	MatterID string `json:"matter_id" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=time_entry logged_service"`
	At       string `json:"at"` // RFC3339; empty means now
}

// =============================================================================
// TEMPLATE REQUESTS
// =============================================================================

// RecordUsageRequest records one use of a suggestion value.
type RecordUsageRequest struct {
	Category string `json:"category" validate:"required"`
	Value    string `json:"value" validate:"required"`
}

// RenameTemplateRequest replaces a custom template's value.
type RenameTemplateRequest struct {
	Value string `json:"value" validate:"required"`
}

// SeedRequest selects the practitioner the demo book is loaded under.
// An empty body seeds the default demo practitioner.
type SeedRequest struct {
	PractitionerID string `json:"practitioner_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TemplateDTO represents a template row in API responses.
type TemplateDTO struct {
	ID         string     `json:"id"`
	Category   string     `json:"category"`
	Value      string     `json:"value"`
	UsageCount int        `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	IsCustom   bool       `json:"is_custom"`
}

func toTemplateDTO(t practice.QuickBriefTemplate) TemplateDTO {
	dto := TemplateDTO{
		ID:         string(t.ID),
		Category:   string(t.Category),
		Value:      t.Value,
		UsageCount: t.UsageCount,
		IsCustom:   t.IsCustom,
	}
	if !t.LastUsedAt.IsZero() {
		lastUsed := t.LastUsedAt
		dto.LastUsedAt = &lastUsed
	}
	return dto
}

func toTemplateDTOs(templates []practice.QuickBriefTemplate) []TemplateDTO {
	dtos := make([]TemplateDTO, len(templates))
	for i, t := range templates {
		dtos[i] = toTemplateDTO(t)
	}
	return dtos
}

// IDResponse acknowledges a record intake with the stored id.
type IDResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseMoneyField(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &practice.ValidationError{Field: field, Message: fmt.Sprintf("invalid amount %q", raw)}
	}
	return d, nil
}

func parseDateField(field, raw string) (practice.Date, error) {
	if raw == "" {
		return practice.Date{}, nil
	}
	d, err := practice.ParseDate(raw)
	if err != nil {
		return practice.Date{}, &practice.ValidationError{Field: field, Message: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", raw)}
	}
	return d, nil
}

func parseTimeField(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &practice.ValidationError{Field: field, Message: fmt.Sprintf("invalid timestamp %q, want RFC3339", raw)}
	}
	return t, nil
}
