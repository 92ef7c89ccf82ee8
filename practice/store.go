/*
store.go - Persistence interfaces for the practice engine

PURPOSE:
  Defines the contract between the core services and the backing relational
  store. The dashboard aggregator only reads; the template ranker reads and
  writes. Filters carry the equality/range predicates, ordering and limits
  the services need, and counts are first-class so "how many" queries never
  fetch rows.

KEY INTERFACES:
  DashboardStore:  Read-side union the aggregator depends on
  TemplateStore:   Quick-brief template persistence incl. atomic upsert
  Store:           Everything, implemented by sqlite and the memory store

ATOMIC UPSERT:
  TemplateStore.UpsertUsage is the single mutation path for usage counting.
  It MUST be atomic at the storage layer (insert-on-conflict or equivalent):
  two concurrent calls for the same (owner, category, value) key increment
  one row, they never create two. A check-then-act sequence is not an
  acceptable implementation.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - practice/store/memory.go: In-memory for tests and dev mode

SEE ALSO:
  - dashboard/aggregator.go: Read-side consumer
  - templates/ranker.go: Read/write consumer
*/
package practice

import (
	"context"
	"time"
)

// =============================================================================
// FILTERS - Equality/range predicates per collection
// =============================================================================

// MatterFilter narrows matter queries. Zero-value fields are ignored.
type MatterFilter struct {
	Statuses        []MatterStatus
	DueOn           *Date // expected_completion_date == DueOn
	DueFrom         *Date // expected_completion_date >= DueFrom
	DueTo           *Date // expected_completion_date <= DueTo
	ClosedOnOrAfter *Date // date_closed >= ClosedOnOrAfter
	WIPPositive     bool  // wip_value > 0

	// OrderByUpdatedDesc sorts most-recently-updated first; otherwise
	// matters come back ordered by expected_completion_date ascending.
	OrderByUpdatedDesc bool
	Limit              int // 0 = no limit
}

// InvoiceFilter narrows invoice queries.
type InvoiceFilter struct {
	MatterID      *MatterID
	Statuses      []InvoiceStatus
	NotStatuses   []InvoiceStatus
	DueOnOrBefore *Date
	IssuedFrom    *Date
	IssuedTo      *Date
}

// ProformaFilter narrows pro-forma request queries.
type ProformaFilter struct {
	Status            *ProformaStatus
	CreatedOnOrBefore *time.Time
}

// PaymentFilter narrows payment queries.
type PaymentFilter struct {
	PaidOnOrAfter *Date
}

// TemplateFilter narrows quick-brief template queries.
type TemplateFilter struct {
	Owner      *PractitionerID // exact owner match; SystemOwner selects defaults
	Category   *TemplateCategory
	CustomOnly bool
}

// =============================================================================
// READ-SIDE STORES (dashboard aggregation)
// =============================================================================

// MatterStore persists matters. The core never deletes them.
type MatterStore interface {
	// ListMatters returns the practitioner's matters matching the filter.
	ListMatters(ctx context.Context, practitionerID PractitionerID, f MatterFilter) ([]Matter, error)

	// CountMatters returns how many matters match without fetching rows.
	CountMatters(ctx context.Context, practitionerID PractitionerID, f MatterFilter) (int, error)

	// GetMatter returns the matter or nil when it does not exist.
	GetMatter(ctx context.Context, id MatterID) (*Matter, error)

	// SaveMatter inserts or replaces a matter row (record intake path).
	SaveMatter(ctx context.Context, m Matter) error
}

// InvoiceStore persists invoices. An empty practitioner id matches any owner
// (used for the per-matter invoice existence check).
type InvoiceStore interface {
	ListInvoices(ctx context.Context, practitionerID PractitionerID, f InvoiceFilter) ([]Invoice, error)
	CountInvoices(ctx context.Context, practitionerID PractitionerID, f InvoiceFilter) (int, error)
	SaveInvoice(ctx context.Context, inv Invoice) error
}

// ProformaStore persists pro-forma requests.
type ProformaStore interface {
	ListProformas(ctx context.Context, practitionerID PractitionerID, f ProformaFilter) ([]ProformaRequest, error)
	CountProformas(ctx context.Context, practitionerID PractitionerID, f ProformaFilter) (int, error)
	SaveProforma(ctx context.Context, p ProformaRequest) error
}

// ScopeAmendmentStore persists scope amendments.
type ScopeAmendmentStore interface {
	CountScopeAmendments(ctx context.Context, practitionerID PractitionerID, status AmendmentStatus) (int, error)
	SaveScopeAmendment(ctx context.Context, a ScopeAmendment) error
}

// PaymentStore persists payments.
type PaymentStore interface {
	ListPayments(ctx context.Context, practitionerID PractitionerID, f PaymentFilter) ([]Payment, error)
	SavePayment(ctx context.Context, p Payment) error
}

// ActivityStore exposes the activity timestamps used for staleness checks.
type ActivityStore interface {
	// LatestActivity returns the newest created_at across the matter's time
	// entries and logged services, or the zero time when it has neither.
	LatestActivity(ctx context.Context, matterID MatterID) (time.Time, error)

	SaveTimeEntry(ctx context.Context, e TimeEntry) error
	SaveLoggedService(ctx context.Context, s LoggedService) error
}

// DashboardStore is the read-side union the metrics aggregator depends on.
type DashboardStore interface {
	MatterStore
	InvoiceStore
	ProformaStore
	ScopeAmendmentStore
	PaymentStore
	ActivityStore
}

// =============================================================================
// TEMPLATE STORE (ranker read/write)
// =============================================================================

// TemplateStore persists quick-brief templates.
type TemplateStore interface {
	// ListTemplates returns rows matching the filter, unordered. Ranking is
	// the ranker's job, not the store's.
	ListTemplates(ctx context.Context, f TemplateFilter) ([]QuickBriefTemplate, error)

	// GetTemplate returns the row or nil when it does not exist.
	GetTemplate(ctx context.Context, id TemplateID) (*QuickBriefTemplate, error)

	// UpsertUsage atomically records one use of (owner, category, value):
	// an existing row gets usage_count+1 and last_used_at=now; a missing row
	// is inserted with usage_count=1, last_used_at=now, is_custom=true.
	// Returns the row after the write.
	UpsertUsage(ctx context.Context, owner PractitionerID, category TemplateCategory, value string, now time.Time) (QuickBriefTemplate, error)

	// InsertTemplate inserts a row as-is (import and seeding paths).
	// Uniqueness conflicts return an ErrDuplicate-classified store error.
	InsertTemplate(ctx context.Context, t QuickBriefTemplate) (QuickBriefTemplate, error)

	// UpdateTemplateValue replaces only the value, leaving usage stats
	// untouched. Returns ErrNotFound when the row is missing.
	UpdateTemplateValue(ctx context.Context, id TemplateID, value string, now time.Time) (QuickBriefTemplate, error)

	// DeleteTemplate removes the row. Returns ErrNotFound when missing.
	DeleteTemplate(ctx context.Context, id TemplateID) error
}

// Store is the full persistence surface of the engine.
type Store interface {
	DashboardStore
	TemplateStore
}
