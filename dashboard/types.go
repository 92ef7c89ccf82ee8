/*
Package dashboard computes the practitioner dashboard snapshot.

PURPOSE:
  Aggregates matters, invoices, pro formas, payments, scope amendments and
  activity records into one DashboardMetrics value per practitioner. The six
  sections are computed concurrently and independently; a failing section
  degrades to its zero value instead of failing the snapshot.

KEY CONCEPTS IN THIS FILE (types.go):
  - Metrics: The composite snapshot returned to callers
  - UrgentAttentionItem: Tagged alert with a fixed type-priority ordering
  - MoneyTotal: A summed amount together with its row count
  - SectionFailure: Explicit record of a degraded section

SEE ALSO:
  - aggregator.go: Computation and degradation policy
  - cache.go: TTL cache for snapshots
*/
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexo/practice-engine/practice"
)

// =============================================================================
// URGENT ATTENTION
// =============================================================================

// UrgentItemType tags why an item needs attention. The numeric priority is a
// fixed contract: deadlines today always sort ahead of overdue invoices,
// which sort ahead of pending pro formas, regardless of how overdue each is.
type UrgentItemType string

const (
	UrgentDeadlineToday   UrgentItemType = "deadline_today"
	UrgentOverdueInvoice  UrgentItemType = "overdue_invoice"
	UrgentPendingProforma UrgentItemType = "pending_proforma"
)

func (t UrgentItemType) priority() int {
	switch t {
	case UrgentDeadlineToday:
		return 1
	case UrgentOverdueInvoice:
		return 2
	case UrgentPendingProforma:
		return 3
	default:
		return 4
	}
}

// UrgentAttentionItem is one alert on the urgent list. DaysOverdue doubles as
// days-pending for pro formas and is zero for same-day deadlines.
type UrgentAttentionItem struct {
	Type        UrgentItemType      `json:"type"`
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	DaysOverdue int                 `json:"days_overdue,omitempty"`
	Amount      decimal.Decimal     `json:"amount"`
	Deadline    practice.Date       `json:"deadline,omitempty"`
	MatterID    practice.MatterID   `json:"matter_id,omitempty"`
	InvoiceID   practice.InvoiceID  `json:"invoice_id,omitempty"`
	ProformaID  practice.ProformaID `json:"proforma_id,omitempty"`
}

// =============================================================================
// WEEK DEADLINES
// =============================================================================

// WeekDeadline is a matter due within the next seven days (inclusive).
type WeekDeadline struct {
	MatterID      practice.MatterID     `json:"matter_id"`
	Title         string                `json:"title"`
	ClientName    string                `json:"client_name"`
	Deadline      practice.Date         `json:"deadline"`
	DaysRemaining int                   `json:"days_remaining"`
	Status        practice.MatterStatus `json:"status"`
}

// =============================================================================
// FINANCIAL SNAPSHOT
// =============================================================================

// MoneyTotal pairs a summed amount with the number of rows that produced it.
type MoneyTotal struct {
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// FinancialSnapshot summarizes the practitioner's money position.
type FinancialSnapshot struct {
	OutstandingFees MoneyTotal `json:"outstanding_fees"` // unpaid, non-cancelled invoices
	WIPValue        MoneyTotal `json:"wip_value"`        // active/pending matters
	MonthInvoiced   MoneyTotal `json:"month_invoiced"`   // current calendar month, non-cancelled
}

// =============================================================================
// ACTIVE MATTERS
// =============================================================================

// ActiveMatterProgress is one of the top five most recently updated working
// matters, with derived progress and staleness.
type ActiveMatterProgress struct {
	Matter               practice.Matter `json:"matter"`
	CompletionPercentage int             `json:"completion_percentage"`
	LastActivity         time.Time       `json:"last_activity"`
	IsStale              bool            `json:"is_stale"`
}

// =============================================================================
// PENDING ACTIONS & QUICK STATS
// =============================================================================

// PendingActions counts work waiting on the practitioner.
type PendingActions struct {
	NewRequests       int `json:"new_requests"`
	ProformaApprovals int `json:"proforma_approvals"`
	ScopeAmendments   int `json:"scope_amendments"`
	ReadyToInvoice    int `json:"ready_to_invoice"`
}

// QuickStats summarizes the trailing 30 days.
type QuickStats struct {
	MattersCompleted30d int             `json:"matters_completed_30d"`
	Invoiced30d         decimal.Decimal `json:"invoiced_30d"`
	PaymentsReceived30d decimal.Decimal `json:"payments_received_30d"`
	AvgTimeToInvoice    int             `json:"avg_time_to_invoice"` // whole days
}

// =============================================================================
// COMPOSITE SNAPSHOT
// =============================================================================

// Section names one of the six independent sub-computations.
type Section string

const (
	SectionUrgentAttention   Section = "urgent_attention"
	SectionWeekDeadlines     Section = "this_week_deadlines"
	SectionFinancialSnapshot Section = "financial_snapshot"
	SectionActiveMatters     Section = "active_matters"
	SectionPendingActions    Section = "pending_actions"
	SectionQuickStats        Section = "quick_stats"
)

// SectionFailure records that a section fell back to its zero value. This is
// the inspectable form of the swallow-and-zero policy: the snapshot always
// renders, and callers or tests can see which parts are best-effort.
type SectionFailure struct {
	Section Section `json:"section"`
	Reason  string  `json:"reason"`
}

// Metrics is the full dashboard snapshot for one practitioner.
type Metrics struct {
	UrgentAttention   []UrgentAttentionItem  `json:"urgent_attention"`
	ThisWeekDeadlines []WeekDeadline         `json:"this_week_deadlines"`
	FinancialSnapshot FinancialSnapshot      `json:"financial_snapshot"`
	ActiveMatters     []ActiveMatterProgress `json:"active_matters"`
	PendingActions    PendingActions         `json:"pending_actions"`
	QuickStats        QuickStats             `json:"quick_stats"`

	Degraded    []SectionFailure `json:"degraded,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}
