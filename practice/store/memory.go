// Package store provides an in-memory practice.Store for tests and dev mode.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lexo/practice-engine/practice"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds every collection in maps guarded by one RWMutex. UpsertUsage
// runs its find-or-insert under the write lock, so the compound operation is
// atomic, matching the contract the sqlite store meets with ON CONFLICT.
type Memory struct {
	mu sync.RWMutex

	matters        map[practice.MatterID]practice.Matter
	invoices       map[practice.InvoiceID]practice.Invoice
	proformas      map[practice.ProformaID]practice.ProformaRequest
	amendments     map[string]practice.ScopeAmendment
	payments       map[string]practice.Payment
	timeEntries    []practice.TimeEntry
	loggedServices []practice.LoggedService
	templates      map[practice.TemplateID]practice.QuickBriefTemplate

	seq int
}

func NewMemory() *Memory {
	return &Memory{
		matters:    make(map[practice.MatterID]practice.Matter),
		invoices:   make(map[practice.InvoiceID]practice.Invoice),
		proformas:  make(map[practice.ProformaID]practice.ProformaRequest),
		amendments: make(map[string]practice.ScopeAmendment),
		payments:   make(map[string]practice.Payment),
		templates:  make(map[practice.TemplateID]practice.QuickBriefTemplate),
	}
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// =============================================================================
// MATTERS
// =============================================================================

func matchMatter(mt practice.Matter, owner practice.PractitionerID, f practice.MatterFilter) bool {
	if mt.PractitionerID != owner {
		return false
	}
	if len(f.Statuses) > 0 && !containsMatterStatus(f.Statuses, mt.Status) {
		return false
	}
	if f.DueOn != nil && (mt.ExpectedCompletionDate.IsZero() || !mt.ExpectedCompletionDate.Equal(*f.DueOn)) {
		return false
	}
	if f.DueFrom != nil && (mt.ExpectedCompletionDate.IsZero() || mt.ExpectedCompletionDate.Before(*f.DueFrom)) {
		return false
	}
	if f.DueTo != nil && (mt.ExpectedCompletionDate.IsZero() || mt.ExpectedCompletionDate.After(*f.DueTo)) {
		return false
	}
	if f.ClosedOnOrAfter != nil && (mt.DateClosed.IsZero() || mt.DateClosed.Before(*f.ClosedOnOrAfter)) {
		return false
	}
	if f.WIPPositive && !mt.WIPValue.IsPositive() {
		return false
	}
	return true
}

func containsMatterStatus(set []practice.MatterStatus, s practice.MatterStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (m *Memory) ListMatters(_ context.Context, owner practice.PractitionerID, f practice.MatterFilter) ([]practice.Matter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []practice.Matter
	for _, mt := range m.matters {
		if matchMatter(mt, owner, f) {
			result = append(result, mt)
		}
	}
	if f.OrderByUpdatedDesc {
		sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	} else {
		sort.Slice(result, func(i, j int) bool {
			return result[i].ExpectedCompletionDate.Before(result[j].ExpectedCompletionDate)
		})
	}
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (m *Memory) CountMatters(ctx context.Context, owner practice.PractitionerID, f practice.MatterFilter) (int, error) {
	matters, err := m.ListMatters(ctx, owner, f)
	if err != nil {
		return 0, err
	}
	return len(matters), nil
}

func (m *Memory) GetMatter(_ context.Context, id practice.MatterID) (*practice.Matter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mt, ok := m.matters[id]; ok {
		return &mt, nil
	}
	return nil, nil
}

func (m *Memory) SaveMatter(_ context.Context, mt practice.Matter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt.ID == "" {
		mt.ID = practice.MatterID(m.nextID("matter"))
	}
	m.matters[mt.ID] = mt
	return nil
}

// =============================================================================
// INVOICES
// =============================================================================

func matchInvoice(inv practice.Invoice, owner practice.PractitionerID, f practice.InvoiceFilter) bool {
	if owner != "" && inv.PractitionerID != owner {
		return false
	}
	if f.MatterID != nil && inv.MatterID != *f.MatterID {
		return false
	}
	if len(f.Statuses) > 0 && !containsInvoiceStatus(f.Statuses, inv.Status) {
		return false
	}
	for _, excluded := range f.NotStatuses {
		if inv.Status == excluded {
			return false
		}
	}
	if f.DueOnOrBefore != nil && (inv.DueDate.IsZero() || inv.DueDate.After(*f.DueOnOrBefore)) {
		return false
	}
	if f.IssuedFrom != nil && (inv.InvoiceDate.IsZero() || inv.InvoiceDate.Before(*f.IssuedFrom)) {
		return false
	}
	if f.IssuedTo != nil && (inv.InvoiceDate.IsZero() || inv.InvoiceDate.After(*f.IssuedTo)) {
		return false
	}
	return true
}

func containsInvoiceStatus(set []practice.InvoiceStatus, s practice.InvoiceStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (m *Memory) ListInvoices(_ context.Context, owner practice.PractitionerID, f practice.InvoiceFilter) ([]practice.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []practice.Invoice
	for _, inv := range m.invoices {
		if matchInvoice(inv, owner, f) {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) CountInvoices(ctx context.Context, owner practice.PractitionerID, f practice.InvoiceFilter) (int, error) {
	invoices, err := m.ListInvoices(ctx, owner, f)
	if err != nil {
		return 0, err
	}
	return len(invoices), nil
}

func (m *Memory) SaveInvoice(_ context.Context, inv practice.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.ID == "" {
		inv.ID = practice.InvoiceID(m.nextID("inv"))
	}
	m.invoices[inv.ID] = inv
	return nil
}

// =============================================================================
// PRO FORMA REQUESTS
// =============================================================================

func matchProforma(p practice.ProformaRequest, owner practice.PractitionerID, f practice.ProformaFilter) bool {
	if p.PractitionerID != owner {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.CreatedOnOrBefore != nil && p.CreatedAt.After(*f.CreatedOnOrBefore) {
		return false
	}
	return true
}

func (m *Memory) ListProformas(_ context.Context, owner practice.PractitionerID, f practice.ProformaFilter) ([]practice.ProformaRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []practice.ProformaRequest
	for _, p := range m.proformas {
		if matchProforma(p, owner, f) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) CountProformas(ctx context.Context, owner practice.PractitionerID, f practice.ProformaFilter) (int, error) {
	proformas, err := m.ListProformas(ctx, owner, f)
	if err != nil {
		return 0, err
	}
	return len(proformas), nil
}

func (m *Memory) SaveProforma(_ context.Context, p practice.ProformaRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = practice.ProformaID(m.nextID("pf"))
	}
	m.proformas[p.ID] = p
	return nil
}

// =============================================================================
// SCOPE AMENDMENTS
// =============================================================================

func (m *Memory) CountScopeAmendments(_ context.Context, owner practice.PractitionerID, status practice.AmendmentStatus) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, a := range m.amendments {
		if a.PractitionerID == owner && a.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *Memory) SaveScopeAmendment(_ context.Context, a practice.ScopeAmendment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = m.nextID("amend")
	}
	m.amendments[a.ID] = a
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) ListPayments(_ context.Context, owner practice.PractitionerID, f practice.PaymentFilter) ([]practice.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []practice.Payment
	for _, p := range m.payments {
		if p.PractitionerID != owner {
			continue
		}
		if f.PaidOnOrAfter != nil && p.PaymentDate.Before(*f.PaidOnOrAfter) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SavePayment(_ context.Context, p practice.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = m.nextID("pay")
	}
	m.payments[p.ID] = p
	return nil
}

// =============================================================================
// ACTIVITY
// =============================================================================

func (m *Memory) LatestActivity(_ context.Context, matterID practice.MatterID) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest time.Time
	for _, e := range m.timeEntries {
		if e.MatterID == matterID && e.CreatedAt.After(latest) {
			latest = e.CreatedAt
		}
	}
	for _, s := range m.loggedServices {
		if s.MatterID == matterID && s.CreatedAt.After(latest) {
			latest = s.CreatedAt
		}
	}
	return latest, nil
}

func (m *Memory) SaveTimeEntry(_ context.Context, e practice.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = m.nextID("te")
	}
	m.timeEntries = append(m.timeEntries, e)
	return nil
}

func (m *Memory) SaveLoggedService(_ context.Context, s practice.LoggedService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = m.nextID("ls")
	}
	m.loggedServices = append(m.loggedServices, s)
	return nil
}

// =============================================================================
// QUICK BRIEF TEMPLATES
// =============================================================================

func (m *Memory) ListTemplates(_ context.Context, f practice.TemplateFilter) ([]practice.QuickBriefTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []practice.QuickBriefTemplate
	for _, t := range m.templates {
		if f.Owner != nil && t.PractitionerID != *f.Owner {
			continue
		}
		if f.Category != nil && t.Category != *f.Category {
			continue
		}
		if f.CustomOnly && !t.IsCustom {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetTemplate(_ context.Context, id practice.TemplateID) (*practice.QuickBriefTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.templates[id]; ok {
		return &t, nil
	}
	return nil, nil
}

// UpsertUsage holds the write lock across the find-or-insert, so concurrent
// calls for the same key serialize onto one row.
func (m *Memory) UpsertUsage(_ context.Context, owner practice.PractitionerID, category practice.TemplateCategory, value string, now time.Time) (practice.QuickBriefTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.templates {
		if t.PractitionerID == owner && t.Category == category && t.Value == value {
			t.UsageCount++
			t.LastUsedAt = now
			t.UpdatedAt = now
			m.templates[id] = t
			return t, nil
		}
	}

	t := practice.QuickBriefTemplate{
		ID:             practice.TemplateID(m.nextID("tpl")),
		PractitionerID: owner,
		Category:       category,
		Value:          value,
		UsageCount:     1,
		LastUsedAt:     now,
		IsCustom:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.templates[t.ID] = t
	return t, nil
}

func (m *Memory) InsertTemplate(_ context.Context, t practice.QuickBriefTemplate) (practice.QuickBriefTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.templates {
		if existing.PractitionerID == t.PractitionerID && existing.Category == t.Category && existing.Value == t.Value {
			return practice.QuickBriefTemplate{}, &practice.StoreError{
				Op:         "insert",
				Collection: "quick_brief_templates",
				Err:        fmt.Errorf("%w (owner, category, value): %q", practice.ErrDuplicate, t.Value),
			}
		}
	}
	if t.ID == "" {
		t.ID = practice.TemplateID(m.nextID("tpl"))
	}
	m.templates[t.ID] = t
	return t, nil
}

func (m *Memory) UpdateTemplateValue(_ context.Context, id practice.TemplateID, value string, now time.Time) (practice.QuickBriefTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.templates[id]
	if !ok {
		return practice.QuickBriefTemplate{}, practice.ErrNotFound
	}
	t.Value = value
	t.UpdatedAt = now
	m.templates[id] = t
	return t, nil
}

func (m *Memory) DeleteTemplate(_ context.Context, id practice.TemplateID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[id]; !ok {
		return practice.ErrNotFound
	}
	delete(m.templates, id)
	return nil
}
