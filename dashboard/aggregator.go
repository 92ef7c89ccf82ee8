/*
aggregator.go - Dashboard metrics aggregation

PURPOSE:
  Computes the composite dashboard snapshot for one practitioner. GetMetrics
  checks the TTL cache, and on a miss fans out the six section computations
  concurrently so the call is bounded by the slowest query, not the sum.

DEGRADATION POLICY:
  A store failure inside a section never fails the snapshot. The section
  contributes its zero value, the failure is appended to Metrics.Degraded,
  and a structured warning is logged. One slow or broken sub-metric never
  blocks the rest of the dashboard. Failures outside the sections (an empty
  practitioner id) do surface as errors.

POLICY CONSTANTS (fixed business rules, no configuration surface):
  - Invoices count as urgent once 45+ days overdue
  - Pro formas count as urgent once pending 5+ days
  - A matter is stale when its last activity is strictly older than 14 days
  - Week deadlines cover [today, today+7] inclusive
  - Quick stats cover the trailing 30 days
  - Active matters list the top 5 by most recent update

SEE ALSO:
  - types.go: Snapshot shape and ordering contracts
  - cache.go: Snapshot cache
  - practice/store.go: Read-side store interfaces
*/
package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lexo/practice-engine/practice"
)

// =============================================================================
// POLICY CONSTANTS
// =============================================================================

const (
	overdueInvoiceAfterDays  = 45
	pendingProformaAfterDays = 5
	staleAfterDays           = 14
	weekAheadDays            = 7
	recentWindowDays         = 30
	activeMattersLimit       = 5
)

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator is a stateless request handler over the read-side store; the
// only shared state is the injected cache.
type Aggregator struct {
	store practice.DashboardStore
	cache *Cache
	log   logrus.FieldLogger
	clock practice.Clock
}

// New creates an aggregator. A nil cache gets a DefaultTTL cache, a nil
// logger falls back to the standard logrus logger, a nil clock to the system
// clock.
func New(store practice.DashboardStore, cache *Cache, log logrus.FieldLogger, clock practice.Clock) *Aggregator {
	if clock == nil {
		clock = practice.SystemClock{}
	}
	if cache == nil {
		cache = NewCache(DefaultTTL, clock)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{store: store, cache: cache, log: log, clock: clock}
}

// GetMetrics returns the snapshot for the practitioner, serving a cached
// copy verbatim while it is younger than the TTL. On a miss the six sections
// are computed concurrently, assembled, cached whole, and returned.
func (a *Aggregator) GetMetrics(ctx context.Context, id practice.PractitionerID) (Metrics, error) {
	if id == "" {
		return Metrics{}, &practice.ValidationError{Field: "practitioner_id", Message: "must not be empty"}
	}

	if cached, ok := a.cache.Get(id); ok {
		return cached, nil
	}

	var (
		m        Metrics
		wg       sync.WaitGroup
		mu       sync.Mutex
		degraded []SectionFailure
	)

	// Each section writes a disjoint field of m, so only the degraded slice
	// needs the mutex.
	run := func(section Section, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				degraded = append(degraded, SectionFailure{Section: section, Reason: err.Error()})
				mu.Unlock()
				a.log.WithFields(logrus.Fields{
					"section":         section,
					"practitioner_id": id,
				}).WithError(err).Warn("dashboard section degraded to zero value")
			}
		}()
	}

	run(SectionUrgentAttention, func() (err error) {
		m.UrgentAttention, err = a.UrgentAttention(ctx, id)
		return
	})
	run(SectionWeekDeadlines, func() (err error) {
		m.ThisWeekDeadlines, err = a.ThisWeekDeadlines(ctx, id)
		return
	})
	run(SectionFinancialSnapshot, func() (err error) {
		m.FinancialSnapshot, err = a.FinancialSnapshot(ctx, id)
		return
	})
	run(SectionActiveMatters, func() (err error) {
		m.ActiveMatters, err = a.ActiveMattersWithProgress(ctx, id)
		return
	})
	run(SectionPendingActions, func() (err error) {
		m.PendingActions, err = a.PendingActions(ctx, id)
		return
	})
	run(SectionQuickStats, func() (err error) {
		m.QuickStats, err = a.QuickStats(ctx, id)
		return
	})
	wg.Wait()

	sort.Slice(degraded, func(i, j int) bool { return degraded[i].Section < degraded[j].Section })
	m.Degraded = degraded
	m.GeneratedAt = a.clock.Now()

	a.cache.Put(id, m)
	return m, nil
}

// ClearCache drops the cached snapshot for one practitioner.
func (a *Aggregator) ClearCache(id practice.PractitionerID) { a.cache.Clear(id) }

// ClearAllCaches drops every cached snapshot.
func (a *Aggregator) ClearAllCaches() { a.cache.ClearAll() }

// =============================================================================
// SECTION 1: URGENT ATTENTION
// =============================================================================

// UrgentAttention returns matters due today, invoices 45+ days overdue, and
// pro formas pending 5+ days. Ordering contract: type priority first
// (deadline_today, overdue_invoice, pending_proforma), then days overdue or
// pending descending; ties keep query order.
func (a *Aggregator) UrgentAttention(ctx context.Context, id practice.PractitionerID) ([]UrgentAttentionItem, error) {
	now := a.clock.Now()
	today := practice.DateOf(now)
	var items []UrgentAttentionItem

	dueToday, err := a.store.ListMatters(ctx, id, practice.MatterFilter{
		Statuses: practice.WorkingMatterStatuses,
		DueOn:    &today,
	})
	if err != nil {
		return nil, err
	}
	for _, m := range dueToday {
		items = append(items, UrgentAttentionItem{
			Type:        UrgentDeadlineToday,
			ID:          string(m.ID),
			Title:       m.Title,
			Description: "Matter deadline is today for " + m.ClientName,
			Deadline:    m.ExpectedCompletionDate,
			MatterID:    m.ID,
		})
	}

	overdueCutoff := today.AddDays(-overdueInvoiceAfterDays)
	overdue, err := a.store.ListInvoices(ctx, id, practice.InvoiceFilter{
		NotStatuses:   []practice.InvoiceStatus{practice.InvoicePaid, practice.InvoiceCancelled},
		DueOnOrBefore: &overdueCutoff,
	})
	if err != nil {
		return nil, err
	}
	for _, inv := range overdue {
		daysOverdue := practice.DaysBetween(inv.DueDate, today)
		items = append(items, UrgentAttentionItem{
			Type:        UrgentOverdueInvoice,
			ID:          string(inv.ID),
			Title:       "Invoice " + inv.InvoiceNumber,
			Description: overdueDescription(daysOverdue),
			DaysOverdue: daysOverdue,
			Amount:      inv.Outstanding(),
			InvoiceID:   inv.ID,
			MatterID:    inv.MatterID,
		})
	}

	sent := practice.ProformaSent
	pendingCutoff := now.AddDate(0, 0, -pendingProformaAfterDays)
	pending, err := a.store.ListProformas(ctx, id, practice.ProformaFilter{
		Status:            &sent,
		CreatedOnOrBefore: &pendingCutoff,
	})
	if err != nil {
		return nil, err
	}
	for _, p := range pending {
		daysPending := int(today.Time.Sub(p.CreatedAt).Hours() / 24)
		title := p.Title
		if title == "" {
			title = "Pro Forma Request"
		}
		items = append(items, UrgentAttentionItem{
			Type:        UrgentPendingProforma,
			ID:          string(p.ID),
			Title:       title,
			Description: pendingDescription(daysPending),
			DaysOverdue: daysPending,
			Amount:      p.EstimatedFee,
			ProformaID:  p.ID,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type.priority() < items[j].Type.priority()
		}
		return items[i].DaysOverdue > items[j].DaysOverdue
	})
	return items, nil
}

func overdueDescription(days int) string {
	return fmt.Sprintf("Overdue by %d days", days)
}

func pendingDescription(days int) string {
	return fmt.Sprintf("Awaiting response for %d days", days)
}

// =============================================================================
// SECTION 2: THIS WEEK DEADLINES
// =============================================================================

// ThisWeekDeadlines returns working matters due in [today, today+7]
// inclusive, ascending by deadline.
func (a *Aggregator) ThisWeekDeadlines(ctx context.Context, id practice.PractitionerID) ([]WeekDeadline, error) {
	today := practice.DateOf(a.clock.Now())
	weekEnd := today.AddDays(weekAheadDays)

	matters, err := a.store.ListMatters(ctx, id, practice.MatterFilter{
		Statuses: practice.WorkingMatterStatuses,
		DueFrom:  &today,
		DueTo:    &weekEnd,
	})
	if err != nil {
		return nil, err
	}

	deadlines := make([]WeekDeadline, 0, len(matters))
	for _, m := range matters {
		deadlines = append(deadlines, WeekDeadline{
			MatterID:      m.ID,
			Title:         m.Title,
			ClientName:    m.ClientName,
			Deadline:      m.ExpectedCompletionDate,
			DaysRemaining: practice.DaysBetween(today, m.ExpectedCompletionDate),
			Status:        m.Status,
		})
	}
	sort.SliceStable(deadlines, func(i, j int) bool {
		return deadlines[i].Deadline.Before(deadlines[j].Deadline)
	})
	return deadlines, nil
}

// =============================================================================
// SECTION 3: FINANCIAL SNAPSHOT
// =============================================================================

// FinancialSnapshot sums outstanding fees (unpaid, non-cancelled invoices),
// WIP on working matters, and the current calendar month's invoiced total.
func (a *Aggregator) FinancialSnapshot(ctx context.Context, id practice.PractitionerID) (FinancialSnapshot, error) {
	today := practice.DateOf(a.clock.Now())

	unpaid, err := a.store.ListInvoices(ctx, id, practice.InvoiceFilter{
		NotStatuses: []practice.InvoiceStatus{practice.InvoicePaid, practice.InvoiceCancelled},
	})
	if err != nil {
		return FinancialSnapshot{}, err
	}
	outstanding := MoneyTotal{Amount: decimal.Zero}
	for _, inv := range unpaid {
		outstanding.Amount = outstanding.Amount.Add(inv.Outstanding())
		outstanding.Count++
	}

	working, err := a.store.ListMatters(ctx, id, practice.MatterFilter{
		Statuses: practice.WorkingMatterStatuses,
	})
	if err != nil {
		return FinancialSnapshot{}, err
	}
	wip := MoneyTotal{Amount: decimal.Zero}
	for _, m := range working {
		wip.Amount = wip.Amount.Add(m.WIPValue)
		wip.Count++
	}

	monthStart := practice.StartOfMonth(today)
	monthEnd := practice.EndOfMonth(today)
	monthInvoices, err := a.store.ListInvoices(ctx, id, practice.InvoiceFilter{
		NotStatuses: []practice.InvoiceStatus{practice.InvoiceCancelled},
		IssuedFrom:  &monthStart,
		IssuedTo:    &monthEnd,
	})
	if err != nil {
		return FinancialSnapshot{}, err
	}
	month := MoneyTotal{Amount: decimal.Zero}
	for _, inv := range monthInvoices {
		month.Amount = month.Amount.Add(inv.TotalAmount)
		month.Count++
	}

	return FinancialSnapshot{
		OutstandingFees: outstanding,
		WIPValue:        wip,
		MonthInvoiced:   month,
	}, nil
}

// =============================================================================
// SECTION 4: ACTIVE MATTERS WITH PROGRESS
// =============================================================================

// ActiveMattersWithProgress returns the top five working matters by most
// recent update, each with derived completion percentage, last activity and
// staleness.
func (a *Aggregator) ActiveMattersWithProgress(ctx context.Context, id practice.PractitionerID) ([]ActiveMatterProgress, error) {
	matters, err := a.store.ListMatters(ctx, id, practice.MatterFilter{
		Statuses:           practice.WorkingMatterStatuses,
		OrderByUpdatedDesc: true,
		Limit:              activeMattersLimit,
	})
	if err != nil {
		return nil, err
	}

	staleCutoff := a.clock.Now().AddDate(0, 0, -staleAfterDays)
	result := make([]ActiveMatterProgress, 0, len(matters))
	for _, m := range matters {
		lastActivity := m.UpdatedAt
		if activity, err := a.store.LatestActivity(ctx, m.ID); err == nil && activity.After(lastActivity) {
			lastActivity = activity
		}

		result = append(result, ActiveMatterProgress{
			Matter:               m,
			CompletionPercentage: completionPercentage(m.WIPValue, m.EstimatedFee),
			LastActivity:         lastActivity,
			// Stale only when strictly older than the 14-day cutoff.
			IsStale: lastActivity.Before(staleCutoff),
		})
	}
	return result, nil
}

// completionPercentage derives progress from WIP against the estimated fee:
// min(100, round(wip/fee*100)), and 0 when no fee was estimated.
func completionPercentage(wip, estimatedFee decimal.Decimal) int {
	if !estimatedFee.IsPositive() {
		return 0
	}
	pct := int(wip.Div(estimatedFee).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	if pct > 100 {
		pct = 100
	}
	return pct
}

// =============================================================================
// SECTION 5: PENDING ACTIONS
// =============================================================================

// PendingActions counts new matter requests, pro formas awaiting response,
// pending scope amendments, and completed matters carrying WIP with no
// non-cancelled invoice yet.
func (a *Aggregator) PendingActions(ctx context.Context, id practice.PractitionerID) (PendingActions, error) {
	newRequests, err := a.store.CountMatters(ctx, id, practice.MatterFilter{
		Statuses: []practice.MatterStatus{practice.MatterNewRequest},
	})
	if err != nil {
		return PendingActions{}, err
	}

	sent := practice.ProformaSent
	proformaApprovals, err := a.store.CountProformas(ctx, id, practice.ProformaFilter{Status: &sent})
	if err != nil {
		return PendingActions{}, err
	}

	scopeAmendments, err := a.store.CountScopeAmendments(ctx, id, practice.AmendmentPending)
	if err != nil {
		return PendingActions{}, err
	}

	// Candidate sets are small, so the per-matter existence check is fine.
	candidates, err := a.store.ListMatters(ctx, id, practice.MatterFilter{
		Statuses:    []practice.MatterStatus{practice.MatterCompleted},
		WIPPositive: true,
	})
	if err != nil {
		return PendingActions{}, err
	}
	readyToInvoice := 0
	for _, m := range candidates {
		matterID := m.ID
		count, err := a.store.CountInvoices(ctx, "", practice.InvoiceFilter{
			MatterID:    &matterID,
			NotStatuses: []practice.InvoiceStatus{practice.InvoiceCancelled},
		})
		if err != nil {
			return PendingActions{}, err
		}
		if count == 0 {
			readyToInvoice++
		}
	}

	return PendingActions{
		NewRequests:       newRequests,
		ProformaApprovals: proformaApprovals,
		ScopeAmendments:   scopeAmendments,
		ReadyToInvoice:    readyToInvoice,
	}, nil
}

// =============================================================================
// SECTION 6: QUICK STATS
// =============================================================================

// QuickStats summarizes the trailing 30 days: matters completed, amounts
// invoiced and paid, and the mean days from matter commencement to invoice.
func (a *Aggregator) QuickStats(ctx context.Context, id practice.PractitionerID) (QuickStats, error) {
	today := practice.DateOf(a.clock.Now())
	windowStart := today.AddDays(-recentWindowDays)

	completed, err := a.store.CountMatters(ctx, id, practice.MatterFilter{
		Statuses:        []practice.MatterStatus{practice.MatterCompleted},
		ClosedOnOrAfter: &windowStart,
	})
	if err != nil {
		return QuickStats{}, err
	}

	invoices, err := a.store.ListInvoices(ctx, id, practice.InvoiceFilter{
		NotStatuses: []practice.InvoiceStatus{practice.InvoiceCancelled},
		IssuedFrom:  &windowStart,
	})
	if err != nil {
		return QuickStats{}, err
	}
	invoiced := decimal.Zero
	for _, inv := range invoices {
		invoiced = invoiced.Add(inv.TotalAmount)
	}

	payments, err := a.store.ListPayments(ctx, id, practice.PaymentFilter{PaidOnOrAfter: &windowStart})
	if err != nil {
		return QuickStats{}, err
	}
	received := decimal.Zero
	for _, p := range payments {
		received = received.Add(p.Amount)
	}

	avg, err := a.avgTimeToInvoice(ctx, invoices)
	if err != nil {
		return QuickStats{}, err
	}

	return QuickStats{
		MattersCompleted30d: completed,
		Invoiced30d:         invoiced,
		PaymentsReceived30d: received,
		AvgTimeToInvoice:    avg,
	}, nil
}

// avgTimeToInvoice averages invoice_date - date_commenced in whole days over
// the window's matter-linked invoices. Negative spans are data inconsistency
// and are discarded. Returns 0 with no valid samples.
func (a *Aggregator) avgTimeToInvoice(ctx context.Context, invoices []practice.Invoice) (int, error) {
	var samples []int
	for _, inv := range invoices {
		if inv.MatterID == "" {
			continue
		}
		matter, err := a.store.GetMatter(ctx, inv.MatterID)
		if err != nil {
			return 0, err
		}
		if matter == nil || matter.DateCommenced.IsZero() {
			continue
		}
		days := practice.DaysBetween(matter.DateCommenced, inv.InvoiceDate)
		if days >= 0 {
			samples = append(samples, days)
		}
	}
	if len(samples) == 0 {
		return 0, nil
	}
	sum := 0
	for _, d := range samples {
		sum += d
	}
	return int(math.Round(float64(sum) / float64(len(samples)))), nil
}
