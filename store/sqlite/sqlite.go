/*
Package sqlite provides the SQLite-backed implementation of practice.Store.

PURPOSE:
  Persists every collection the engine reads and writes. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  practice.DashboardStore: Read-side queries for the metrics aggregator
  practice.TemplateStore:  Quick-brief templates incl. the atomic upsert

ATOMIC UPSERT:
  quick_brief_templates carries UNIQUE(practitioner_id, category, value);
  UpsertUsage is a single INSERT ... ON CONFLICT DO UPDATE, so two
  concurrent usages of the same key increment one row. No check-then-act.

STORAGE CONVENTIONS:
  - Calendar dates as TEXT 'YYYY-MM-DD' (empty string = unset)
  - Timestamps as RFC3339 TEXT
  - Money as decimal strings (never REAL)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/practice.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - practice/store.go: Interface definitions
  - practice/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/lexo/practice-engine/practice"
)

// Store implements practice.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matters (
		id TEXT PRIMARY KEY,
		practitioner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		client_name TEXT,
		status TEXT NOT NULL,
		expected_completion_date TEXT NOT NULL DEFAULT '',
		estimated_fee TEXT NOT NULL DEFAULT '0',
		wip_value TEXT NOT NULL DEFAULT '0',
		date_commenced TEXT NOT NULL DEFAULT '',
		date_closed TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matters_owner_status
		ON matters(practitioner_id, status);
	CREATE INDEX IF NOT EXISTS idx_matters_owner_deadline
		ON matters(practitioner_id, expected_completion_date);
	CREATE INDEX IF NOT EXISTS idx_matters_owner_updated
		ON matters(practitioner_id, updated_at DESC);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		practitioner_id TEXT NOT NULL,
		matter_id TEXT NOT NULL DEFAULT '',
		invoice_number TEXT NOT NULL,
		total_amount TEXT NOT NULL DEFAULT '0',
		amount_paid TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		due_date TEXT NOT NULL DEFAULT '',
		invoice_date TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_owner_status
		ON invoices(practitioner_id, status);
	CREATE INDEX IF NOT EXISTS idx_invoices_matter
		ON invoices(matter_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_owner_date
		ON invoices(practitioner_id, invoice_date);

	CREATE TABLE IF NOT EXISTS proforma_requests (
		id TEXT PRIMARY KEY,
		practitioner_id TEXT NOT NULL,
		title TEXT,
		estimated_fee TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_proformas_owner_status
		ON proforma_requests(practitioner_id, status);

	CREATE TABLE IF NOT EXISTS scope_amendments (
		id TEXT PRIMARY KEY,
		practitioner_id TEXT NOT NULL,
		matter_id TEXT NOT NULL DEFAULT '',
		description TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_amendments_owner_status
		ON scope_amendments(practitioner_id, status);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		practitioner_id TEXT NOT NULL,
		invoice_id TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL DEFAULT '0',
		payment_date TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_payments_owner_date
		ON payments(practitioner_id, payment_date);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		matter_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_entries_matter
		ON time_entries(matter_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS logged_services (
		id TEXT PRIMARY KEY,
		matter_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_logged_services_matter
		ON logged_services(matter_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS quick_brief_templates (
		id TEXT PRIMARY KEY,
		practitioner_id TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		value TEXT NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		last_used_at TEXT NOT NULL DEFAULT '',
		is_custom INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_templates_unique_key
		ON quick_brief_templates(practitioner_id, category, value);
	CREATE INDEX IF NOT EXISTS idx_templates_owner_category
		ON quick_brief_templates(practitioner_id, category, usage_count DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func dateStr(d practice.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDate(s string) practice.Date {
	if s == "" {
		return practice.Date{}
	}
	d, err := practice.ParseDate(s)
	if err != nil {
		return practice.Date{}
	}
	return d
}

func tsStr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTS(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func storeErr(op, collection string, err error) error {
	return &practice.StoreError{Op: op, Collection: collection, Err: err}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// =============================================================================
// MATTERS (practice.MatterStore)
// =============================================================================

func matterWhere(owner practice.PractitionerID, f practice.MatterFilter) (string, []any) {
	where := []string{"practitioner_id = ?"}
	args := []any{owner}

	if len(f.Statuses) > 0 {
		where = append(where, fmt.Sprintf("status IN (%s)", placeholders(len(f.Statuses))))
		for _, status := range f.Statuses {
			args = append(args, status)
		}
	}
	if f.DueOn != nil {
		where = append(where, "expected_completion_date = ?")
		args = append(args, dateStr(*f.DueOn))
	}
	if f.DueFrom != nil {
		where = append(where, "expected_completion_date != '' AND expected_completion_date >= ?")
		args = append(args, dateStr(*f.DueFrom))
	}
	if f.DueTo != nil {
		where = append(where, "expected_completion_date != '' AND expected_completion_date <= ?")
		args = append(args, dateStr(*f.DueTo))
	}
	if f.ClosedOnOrAfter != nil {
		where = append(where, "date_closed != '' AND date_closed >= ?")
		args = append(args, dateStr(*f.ClosedOnOrAfter))
	}
	if f.WIPPositive {
		where = append(where, "CAST(wip_value AS REAL) > 0")
	}
	return strings.Join(where, " AND "), args
}

const matterColumns = `id, practitioner_id, title, client_name, status,
	expected_completion_date, estimated_fee, wip_value,
	date_commenced, date_closed, updated_at`

func scanMatter(row interface{ Scan(...any) error }) (practice.Matter, error) {
	var (
		m                                practice.Matter
		clientName                       sql.NullString
		due, fee, wip, commenced, closed string
		updated                          string
	)
	err := row.Scan(&m.ID, &m.PractitionerID, &m.Title, &clientName, &m.Status,
		&due, &fee, &wip, &commenced, &closed, &updated)
	if err != nil {
		return practice.Matter{}, err
	}
	m.ClientName = clientName.String
	m.ExpectedCompletionDate = parseDate(due)
	m.EstimatedFee = parseMoney(fee)
	m.WIPValue = parseMoney(wip)
	m.DateCommenced = parseDate(commenced)
	m.DateClosed = parseDate(closed)
	m.UpdatedAt = parseTS(updated)
	return m, nil
}

func (s *Store) ListMatters(ctx context.Context, owner practice.PractitionerID, f practice.MatterFilter) ([]practice.Matter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := matterWhere(owner, f)
	order := "expected_completion_date ASC, id ASC"
	if f.OrderByUpdatedDesc {
		order = "updated_at DESC, id ASC"
	}
	query := fmt.Sprintf("SELECT %s FROM matters WHERE %s ORDER BY %s", matterColumns, where, order)
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list", "matters", err)
	}
	defer rows.Close()

	var matters []practice.Matter
	for rows.Next() {
		m, err := scanMatter(rows)
		if err != nil {
			return nil, storeErr("scan", "matters", err)
		}
		matters = append(matters, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", "matters", err)
	}
	return matters, nil
}

func (s *Store) CountMatters(ctx context.Context, owner practice.PractitionerID, f practice.MatterFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := matterWhere(owner, f)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM matters WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, storeErr("count", "matters", err)
	}
	return count, nil
}

func (s *Store) GetMatter(ctx context.Context, id practice.MatterID) (*practice.Matter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM matters WHERE id = ?", matterColumns), id)
	m, err := scanMatter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get", "matters", err)
	}
	return &m, nil
}

func (s *Store) SaveMatter(ctx context.Context, m practice.Matter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = practice.MatterID(uuid.NewString())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matters
		(id, practitioner_id, title, client_name, status, expected_completion_date,
		 estimated_fee, wip_value, date_commenced, date_closed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			client_name = excluded.client_name,
			status = excluded.status,
			expected_completion_date = excluded.expected_completion_date,
			estimated_fee = excluded.estimated_fee,
			wip_value = excluded.wip_value,
			date_commenced = excluded.date_commenced,
			date_closed = excluded.date_closed,
			updated_at = excluded.updated_at`,
		m.ID, m.PractitionerID, m.Title, m.ClientName, m.Status,
		dateStr(m.ExpectedCompletionDate), m.EstimatedFee.String(), m.WIPValue.String(),
		dateStr(m.DateCommenced), dateStr(m.DateClosed), tsStr(m.UpdatedAt))
	if err != nil {
		return storeErr("save", "matters", err)
	}
	return nil
}

// =============================================================================
// INVOICES (practice.InvoiceStore)
// =============================================================================

func invoiceWhere(owner practice.PractitionerID, f practice.InvoiceFilter) (string, []any) {
	where := []string{"1=1"}
	var args []any

	// Empty owner matches any practitioner (matter-scoped existence checks).
	if owner != "" {
		where = append(where, "practitioner_id = ?")
		args = append(args, owner)
	}
	if f.MatterID != nil {
		where = append(where, "matter_id = ?")
		args = append(args, *f.MatterID)
	}
	if len(f.Statuses) > 0 {
		where = append(where, fmt.Sprintf("status IN (%s)", placeholders(len(f.Statuses))))
		for _, status := range f.Statuses {
			args = append(args, status)
		}
	}
	for _, excluded := range f.NotStatuses {
		where = append(where, "status != ?")
		args = append(args, excluded)
	}
	if f.DueOnOrBefore != nil {
		where = append(where, "due_date != '' AND due_date <= ?")
		args = append(args, dateStr(*f.DueOnOrBefore))
	}
	if f.IssuedFrom != nil {
		where = append(where, "invoice_date != '' AND invoice_date >= ?")
		args = append(args, dateStr(*f.IssuedFrom))
	}
	if f.IssuedTo != nil {
		where = append(where, "invoice_date != '' AND invoice_date <= ?")
		args = append(args, dateStr(*f.IssuedTo))
	}
	return strings.Join(where, " AND "), args
}

func (s *Store) ListInvoices(ctx context.Context, owner practice.PractitionerID, f practice.InvoiceFilter) ([]practice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := invoiceWhere(owner, f)
	query := fmt.Sprintf(`
		SELECT id, practitioner_id, matter_id, invoice_number, total_amount,
		       amount_paid, status, due_date, invoice_date
		FROM invoices WHERE %s ORDER BY id ASC`, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list", "invoices", err)
	}
	defer rows.Close()

	var invoices []practice.Invoice
	for rows.Next() {
		var (
			inv                      practice.Invoice
			total, paid, due, issued string
		)
		if err := rows.Scan(&inv.ID, &inv.PractitionerID, &inv.MatterID, &inv.InvoiceNumber,
			&total, &paid, &inv.Status, &due, &issued); err != nil {
			return nil, storeErr("scan", "invoices", err)
		}
		inv.TotalAmount = parseMoney(total)
		inv.AmountPaid = parseMoney(paid)
		inv.DueDate = parseDate(due)
		inv.InvoiceDate = parseDate(issued)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", "invoices", err)
	}
	return invoices, nil
}

func (s *Store) CountInvoices(ctx context.Context, owner practice.PractitionerID, f practice.InvoiceFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := invoiceWhere(owner, f)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM invoices WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, storeErr("count", "invoices", err)
	}
	return count, nil
}

func (s *Store) SaveInvoice(ctx context.Context, inv practice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = practice.InvoiceID(uuid.NewString())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices
		(id, practitioner_id, matter_id, invoice_number, total_amount,
		 amount_paid, status, due_date, invoice_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			invoice_number = excluded.invoice_number,
			total_amount = excluded.total_amount,
			amount_paid = excluded.amount_paid,
			status = excluded.status,
			due_date = excluded.due_date,
			invoice_date = excluded.invoice_date`,
		inv.ID, inv.PractitionerID, inv.MatterID, inv.InvoiceNumber,
		inv.TotalAmount.String(), inv.AmountPaid.String(), inv.Status,
		dateStr(inv.DueDate), dateStr(inv.InvoiceDate))
	if err != nil {
		return storeErr("save", "invoices", err)
	}
	return nil
}

// =============================================================================
// PRO FORMA REQUESTS (practice.ProformaStore)
// =============================================================================

func proformaWhere(owner practice.PractitionerID, f practice.ProformaFilter) (string, []any) {
	where := []string{"practitioner_id = ?"}
	args := []any{owner}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *f.Status)
	}
	if f.CreatedOnOrBefore != nil {
		where = append(where, "created_at <= ?")
		args = append(args, tsStr(*f.CreatedOnOrBefore))
	}
	return strings.Join(where, " AND "), args
}

func (s *Store) ListProformas(ctx context.Context, owner practice.PractitionerID, f practice.ProformaFilter) ([]practice.ProformaRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := proformaWhere(owner, f)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, practitioner_id, title, estimated_fee, status, created_at
		FROM proforma_requests WHERE %s ORDER BY id ASC`, where), args...)
	if err != nil {
		return nil, storeErr("list", "proforma_requests", err)
	}
	defer rows.Close()

	var proformas []practice.ProformaRequest
	for rows.Next() {
		var (
			p            practice.ProformaRequest
			title        sql.NullString
			fee, created string
		)
		if err := rows.Scan(&p.ID, &p.PractitionerID, &title, &fee, &p.Status, &created); err != nil {
			return nil, storeErr("scan", "proforma_requests", err)
		}
		p.Title = title.String
		p.EstimatedFee = parseMoney(fee)
		p.CreatedAt = parseTS(created)
		proformas = append(proformas, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", "proforma_requests", err)
	}
	return proformas, nil
}

func (s *Store) CountProformas(ctx context.Context, owner practice.PractitionerID, f practice.ProformaFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := proformaWhere(owner, f)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM proforma_requests WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, storeErr("count", "proforma_requests", err)
	}
	return count, nil
}

func (s *Store) SaveProforma(ctx context.Context, p practice.ProformaRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = practice.ProformaID(uuid.NewString())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proforma_requests (id, practitioner_id, title, estimated_fee, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			estimated_fee = excluded.estimated_fee,
			status = excluded.status`,
		p.ID, p.PractitionerID, p.Title, p.EstimatedFee.String(), p.Status, tsStr(p.CreatedAt))
	if err != nil {
		return storeErr("save", "proforma_requests", err)
	}
	return nil
}

// =============================================================================
// SCOPE AMENDMENTS (practice.ScopeAmendmentStore)
// =============================================================================

func (s *Store) CountScopeAmendments(ctx context.Context, owner practice.PractitionerID, status practice.AmendmentStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scope_amendments WHERE practitioner_id = ? AND status = ?",
		owner, status).Scan(&count)
	if err != nil {
		return 0, storeErr("count", "scope_amendments", err)
	}
	return count, nil
}

func (s *Store) SaveScopeAmendment(ctx context.Context, a practice.ScopeAmendment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scope_amendments (id, practitioner_id, matter_id, description, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			status = excluded.status`,
		a.ID, a.PractitionerID, a.MatterID, a.Description, a.Status, tsStr(a.CreatedAt))
	if err != nil {
		return storeErr("save", "scope_amendments", err)
	}
	return nil
}

// =============================================================================
// PAYMENTS (practice.PaymentStore)
// =============================================================================

func (s *Store) ListPayments(ctx context.Context, owner practice.PractitionerID, f practice.PaymentFilter) ([]practice.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := "practitioner_id = ?"
	args := []any{owner}
	if f.PaidOnOrAfter != nil {
		where += " AND payment_date != '' AND payment_date >= ?"
		args = append(args, dateStr(*f.PaidOnOrAfter))
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, practitioner_id, invoice_id, amount, payment_date
		FROM payments WHERE %s ORDER BY id ASC`, where), args...)
	if err != nil {
		return nil, storeErr("list", "payments", err)
	}
	defer rows.Close()

	var payments []practice.Payment
	for rows.Next() {
		var (
			p            practice.Payment
			amount, paid string
		)
		if err := rows.Scan(&p.ID, &p.PractitionerID, &p.InvoiceID, &amount, &paid); err != nil {
			return nil, storeErr("scan", "payments", err)
		}
		p.Amount = parseMoney(amount)
		p.PaymentDate = parseDate(paid)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", "payments", err)
	}
	return payments, nil
}

func (s *Store) SavePayment(ctx context.Context, p practice.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, practitioner_id, invoice_id, amount, payment_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			payment_date = excluded.payment_date`,
		p.ID, p.PractitionerID, p.InvoiceID, p.Amount.String(), dateStr(p.PaymentDate))
	if err != nil {
		return storeErr("save", "payments", err)
	}
	return nil
}

// =============================================================================
// ACTIVITY (practice.ActivityStore)
// =============================================================================

func (s *Store) LatestActivity(ctx context.Context, matterID practice.MatterID) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(created_at) FROM (
			SELECT created_at FROM time_entries WHERE matter_id = ?
			UNION ALL
			SELECT created_at FROM logged_services WHERE matter_id = ?
		)`, matterID, matterID).Scan(&latest)
	if err != nil {
		return time.Time{}, storeErr("query", "activity", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return parseTS(latest.String), nil
}

func (s *Store) SaveTimeEntry(ctx context.Context, e practice.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO time_entries (id, matter_id, created_at) VALUES (?, ?, ?)",
		e.ID, e.MatterID, tsStr(e.CreatedAt))
	if err != nil {
		return storeErr("save", "time_entries", err)
	}
	return nil
}

func (s *Store) SaveLoggedService(ctx context.Context, svc practice.LoggedService) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO logged_services (id, matter_id, created_at) VALUES (?, ?, ?)",
		svc.ID, svc.MatterID, tsStr(svc.CreatedAt))
	if err != nil {
		return storeErr("save", "logged_services", err)
	}
	return nil
}
