/*
Package practice defines the shared domain model for the practice engine.

PURPOSE:
  This package contains the entity types, identifiers, and status enums that
  both core services (dashboard aggregation and quick-brief template ranking)
  operate on. Entities are projections of rows in the persistent store; the
  core services never own their lifecycle (matters, invoices, payments, etc.
  are created and mutated by external callers), except for quick-brief
  templates which are mutated exclusively through the template ranker.

KEY CONCEPTS IN THIS FILE (types.go):
  - PractitionerID: Opaque id of the authenticated professional, resolved
    upstream. The empty id marks system-owned template rows.
  - Matter/Invoice/ProformaRequest/ScopeAmendment/Payment: Billing and
    workload records read by the dashboard aggregator.
  - TimeEntry/LoggedService: Activity timestamps for staleness detection.
  - QuickBriefTemplate: Frequency-ranked suggestion values per category.

DESIGN PRINCIPLES:
  1. Precision: All money uses decimal.Decimal, never float64
  2. Type Safety: Strong typing for ids and status enums
  3. Derived values stay derived: outstanding amounts and completion
     percentages are always recomputed, never stored

SEE ALSO:
  - store.go: Persistence interfaces over these types
  - time.go: Date and Clock abstractions
  - errors.go: Error taxonomy
*/
package practice

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// PractitionerID identifies the advocate who owns matters, invoices and
// templates. Resolved by the caller (auth is out of scope here).
type PractitionerID string

// SystemOwner is the owner id of system-default template rows. They are
// visible to every practitioner and immutable through the ranker.
const SystemOwner PractitionerID = ""

func (id PractitionerID) IsSystem() bool { return id == SystemOwner }

type MatterID string
type InvoiceID string
type ProformaID string
type TemplateID string

// =============================================================================
// STATUS ENUMS
// =============================================================================

type MatterStatus string

const (
	MatterNewRequest MatterStatus = "new_request"
	MatterActive     MatterStatus = "active"
	MatterPending    MatterStatus = "pending"
	MatterCompleted  MatterStatus = "completed"
	MatterArchived   MatterStatus = "archived"
)

// WorkingMatterStatuses are the statuses that count as in-flight work for
// deadlines, WIP totals and progress tracking.
var WorkingMatterStatuses = []MatterStatus{MatterActive, MatterPending}

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type ProformaStatus string

const (
	ProformaDraft    ProformaStatus = "draft"
	ProformaSent     ProformaStatus = "sent"
	ProformaApproved ProformaStatus = "approved"
	ProformaDeclined ProformaStatus = "declined"
)

type AmendmentStatus string

const (
	AmendmentPending  AmendmentStatus = "pending"
	AmendmentApproved AmendmentStatus = "approved"
	AmendmentRejected AmendmentStatus = "rejected"
)

// =============================================================================
// BILLING & WORKLOAD RECORDS (read-only for the core services)
// =============================================================================

// Matter is a unit of legal work owned by one practitioner.
// Invariant: WIPValue >= 0. Completion percentage is derived, never stored.
type Matter struct {
	ID                     MatterID
	PractitionerID         PractitionerID
	Title                  string
	ClientName             string
	Status                 MatterStatus
	ExpectedCompletionDate Date            // zero when no deadline agreed
	EstimatedFee           decimal.Decimal
	WIPValue               decimal.Decimal // accumulated unbilled value
	DateCommenced          Date
	DateClosed             Date // zero until completed
	UpdatedAt              time.Time
}

// Invoice is a fee note issued against a matter (MatterID may be empty for
// sundry invoices). Outstanding = TotalAmount - AmountPaid, always recomputed.
type Invoice struct {
	ID             InvoiceID
	PractitionerID PractitionerID
	MatterID       MatterID // optional
	InvoiceNumber  string
	TotalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	Status         InvoiceStatus
	DueDate        Date
	InvoiceDate    Date
}

// Outstanding returns the unpaid balance of the invoice.
func (i Invoice) Outstanding() decimal.Decimal {
	return i.TotalAmount.Sub(i.AmountPaid)
}

// ProformaRequest is a preliminary fee estimate sent to a client ahead of
// formal invoicing.
type ProformaRequest struct {
	ID             ProformaID
	PractitionerID PractitionerID
	Title          string
	EstimatedFee   decimal.Decimal
	Status         ProformaStatus
	CreatedAt      time.Time
}

// ScopeAmendment is a proposed change to a matter's agreed work scope.
type ScopeAmendment struct {
	ID             string
	PractitionerID PractitionerID
	MatterID       MatterID
	Description    string
	Status         AmendmentStatus
	CreatedAt      time.Time
}

// Payment records money received against the practitioner's book.
type Payment struct {
	ID             string
	PractitionerID PractitionerID
	InvoiceID      InvoiceID
	Amount         decimal.Decimal
	PaymentDate    Date
}

// =============================================================================
// ACTIVITY RECORDS - Only their timestamps matter to the dashboard
// =============================================================================

// TimeEntry marks billable time captured on a matter.
type TimeEntry struct {
	ID        string
	MatterID  MatterID
	CreatedAt time.Time
}

// LoggedService marks a non-time service recorded on a matter.
type LoggedService struct {
	ID        string
	MatterID  MatterID
	CreatedAt time.Time
}

// =============================================================================
// QUICK BRIEF TEMPLATES - Owned and mutated by the template ranker
// =============================================================================

// TemplateCategory is the closed set of suggestion list categories.
type TemplateCategory string

const (
	CategoryMatterTitle   TemplateCategory = "matter_title"
	CategoryWorkType      TemplateCategory = "work_type"
	CategoryPracticeArea  TemplateCategory = "practice_area"
	CategoryUrgencyPreset TemplateCategory = "urgency_preset"
	CategoryIssueTemplate TemplateCategory = "issue_template"
)

// TemplateCategories lists all categories in their canonical order. The
// order is used for export payloads and the all-templates management view.
var TemplateCategories = []TemplateCategory{
	CategoryMatterTitle,
	CategoryWorkType,
	CategoryPracticeArea,
	CategoryUrgencyPreset,
	CategoryIssueTemplate,
}

// ValidCategory reports whether c is one of the five known categories.
func ValidCategory(c TemplateCategory) bool {
	for _, known := range TemplateCategories {
		if c == known {
			return true
		}
	}
	return false
}

// QuickBriefTemplate is one suggestion value scoped to an owner and category.
//
// INVARIANT: at most one row per (owner, category, value). Enforced by the
// store's atomic upsert, not assumed to pre-exist in the data.
//
// A row is in exactly one of two states and never transitions:
//   - system default: owner == SystemOwner, IsCustom false, immutable
//   - custom: owner == a practitioner, IsCustom true, mutable and deletable
type QuickBriefTemplate struct {
	ID             TemplateID
	PractitionerID PractitionerID // SystemOwner for defaults
	Category       TemplateCategory
	Value          string
	UsageCount     int
	LastUsedAt     time.Time // zero when never used
	IsCustom       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
