/*
templates.go - Quick-brief template persistence

PURPOSE:
  Implements practice.TemplateStore over the quick_brief_templates table.
  UpsertUsage is the interesting part: a single INSERT ... ON CONFLICT
  DO UPDATE keyed on UNIQUE(practitioner_id, category, value), so the
  increment-or-create decision happens inside SQLite and concurrent usage
  recordings for the same key can never race into duplicate rows.

SEE ALSO:
  - sqlite.go: Schema and shared encoding helpers
  - practice/store.go: TemplateStore contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexo/practice-engine/practice"
)

const templateColumns = `id, practitioner_id, category, value, usage_count,
	last_used_at, is_custom, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (practice.QuickBriefTemplate, error) {
	var (
		t                          practice.QuickBriefTemplate
		lastUsed, created, updated string
	)
	err := row.Scan(&t.ID, &t.PractitionerID, &t.Category, &t.Value, &t.UsageCount,
		&lastUsed, &t.IsCustom, &created, &updated)
	if err != nil {
		return practice.QuickBriefTemplate{}, err
	}
	t.LastUsedAt = parseTS(lastUsed)
	t.CreatedAt = parseTS(created)
	t.UpdatedAt = parseTS(updated)
	return t, nil
}

// ListTemplates returns matching rows in no particular order; ranking is the
// caller's job.
func (s *Store) ListTemplates(ctx context.Context, f practice.TemplateFilter) ([]practice.QuickBriefTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := []string{"1=1"}
	var args []any
	if f.Owner != nil {
		where = append(where, "practitioner_id = ?")
		args = append(args, *f.Owner)
	}
	if f.Category != nil {
		where = append(where, "category = ?")
		args = append(args, *f.Category)
	}
	if f.CustomOnly {
		where = append(where, "is_custom = 1")
	}

	query := fmt.Sprintf("SELECT %s FROM quick_brief_templates WHERE %s ORDER BY id ASC",
		templateColumns, strings.Join(where, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list", "quick_brief_templates", err)
	}
	defer rows.Close()

	var templates []practice.QuickBriefTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, storeErr("scan", "quick_brief_templates", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", "quick_brief_templates", err)
	}
	return templates, nil
}

// GetTemplate returns nil (not an error) when no row has the given id.
func (s *Store) GetTemplate(ctx context.Context, id practice.TemplateID) (*practice.QuickBriefTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM quick_brief_templates WHERE id = ?", templateColumns), id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get", "quick_brief_templates", err)
	}
	return &t, nil
}

// UpsertUsage increments the usage counter for (owner, category, value),
// creating the row with usage_count=1 and is_custom=1 when absent. The whole
// decision runs inside one statement.
func (s *Store) UpsertUsage(ctx context.Context, owner practice.PractitionerID, category practice.TemplateCategory, value string, now time.Time) (practice.QuickBriefTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quick_brief_templates
		(id, practitioner_id, category, value, usage_count, last_used_at, is_custom, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, 1, ?, ?)
		ON CONFLICT(practitioner_id, category, value) DO UPDATE SET
			usage_count = usage_count + 1,
			last_used_at = excluded.last_used_at,
			updated_at = excluded.updated_at`,
		uuid.NewString(), owner, category, value, tsStr(now), tsStr(now), tsStr(now))
	if err != nil {
		return practice.QuickBriefTemplate{}, storeErr("upsert", "quick_brief_templates", err)
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM quick_brief_templates
		WHERE practitioner_id = ? AND category = ? AND value = ?`, templateColumns),
		owner, category, value)
	t, err := scanTemplate(row)
	if err != nil {
		return practice.QuickBriefTemplate{}, storeErr("upsert", "quick_brief_templates", err)
	}
	return t, nil
}

// InsertTemplate creates a fresh row; a duplicate (owner, category, value)
// key fails on the unique index.
func (s *Store) InsertTemplate(ctx context.Context, t practice.QuickBriefTemplate) (practice.QuickBriefTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = practice.TemplateID(uuid.NewString())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quick_brief_templates
		(id, practitioner_id, category, value, usage_count, last_used_at, is_custom, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PractitionerID, t.Category, t.Value, t.UsageCount,
		tsStr(t.LastUsedAt), t.IsCustom, tsStr(t.CreatedAt), tsStr(t.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return practice.QuickBriefTemplate{}, storeErr("insert", "quick_brief_templates",
				fmt.Errorf("%w: template %s/%q", practice.ErrDuplicate, t.Category, t.Value))
		}
		return practice.QuickBriefTemplate{}, storeErr("insert", "quick_brief_templates", err)
	}
	return t, nil
}

// UpdateTemplateValue replaces only the value, leaving usage stats alone.
func (s *Store) UpdateTemplateValue(ctx context.Context, id practice.TemplateID, value string, now time.Time) (practice.QuickBriefTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE quick_brief_templates SET value = ?, updated_at = ? WHERE id = ?",
		value, tsStr(now), id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return practice.QuickBriefTemplate{}, storeErr("update", "quick_brief_templates",
				fmt.Errorf("duplicate template value %q", value))
		}
		return practice.QuickBriefTemplate{}, storeErr("update", "quick_brief_templates", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return practice.QuickBriefTemplate{}, storeErr("update", "quick_brief_templates", err)
	}
	if affected == 0 {
		return practice.QuickBriefTemplate{}, fmt.Errorf("template %s: %w", id, practice.ErrNotFound)
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM quick_brief_templates WHERE id = ?", templateColumns), id)
	t, err := scanTemplate(row)
	if err != nil {
		return practice.QuickBriefTemplate{}, storeErr("update", "quick_brief_templates", err)
	}
	return t, nil
}

// DeleteTemplate removes a row by id.
func (s *Store) DeleteTemplate(ctx context.Context, id practice.TemplateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM quick_brief_templates WHERE id = ?", id)
	if err != nil {
		return storeErr("delete", "quick_brief_templates", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete", "quick_brief_templates", err)
	}
	if affected == 0 {
		return fmt.Errorf("template %s: %w", id, practice.ErrNotFound)
	}
	return nil
}
