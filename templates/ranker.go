/*
Package templates maintains ranked quick-brief suggestion lists.

PURPOSE:
  Serves short per-category lists of previously used free-text values
  (matter titles, work types, practice areas, urgency presets, issue
  templates) to speed up repetitive data entry. System defaults and the
  practitioner's own custom values are blended, ranked by usage frequency,
  and re-ranked as values get picked.

RANKING CONTRACT:
  usage_count descending, then value ascending (lexicographic tie-break).
  The management view orders category first, then the same two keys.
  Ranking happens here, not in the store, so every store implementation
  yields the same ordering.

MUTATION RULES:
  - RecordUsage is the ONLY path that touches usage counters. Picking an
    existing suggestion and typing a brand-new value funnel through the same
    call, which is why fresh rows are unconditionally custom.
  - System-default rows are immutable: Delete and Rename reject them with a
    validation error before touching the store.
  - Store failures always propagate. Suggestion correctness matters more
    than degrading gracefully here.

CONCURRENCY:
  RecordUsage leans on the store's atomic upsert; concurrent calls for the
  same (owner, category, value) increment one row, never create two.

SEE ALSO:
  - export.go: Version-tagged import/export
  - practice/store.go: TemplateStore contract
*/
package templates

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lexo/practice-engine/practice"
)

// =============================================================================
// RANKER
// =============================================================================

// Ranker is a stateless request handler over the template store.
type Ranker struct {
	store practice.TemplateStore
	log   logrus.FieldLogger
	clock practice.Clock
}

// New creates a ranker. A nil logger falls back to the standard logrus
// logger, a nil clock to the system clock.
func New(store practice.TemplateStore, log logrus.FieldLogger, clock practice.Clock) *Ranker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if clock == nil {
		clock = practice.SystemClock{}
	}
	return &Ranker{store: store, log: log, clock: clock}
}

// =============================================================================
// READ SIDE
// =============================================================================

// ByCategory returns the union of system defaults and the practitioner's
// custom rows for one category, ranked. A system default shadowed by a
// custom row with the same value (case-insensitive) is dropped so the list
// never shows duplicates. No pagination; callers slice what they need.
func (r *Ranker) ByCategory(ctx context.Context, id practice.PractitionerID, category practice.TemplateCategory) ([]practice.QuickBriefTemplate, error) {
	if err := requireOwner(id); err != nil {
		return nil, err
	}
	if !practice.ValidCategory(category) {
		return nil, &practice.ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", category)}
	}

	own, err := r.store.ListTemplates(ctx, practice.TemplateFilter{Owner: &id, Category: &category})
	if err != nil {
		return nil, err
	}

	system := practice.SystemOwner
	defaults, err := r.store.ListTemplates(ctx, practice.TemplateFilter{Owner: &system, Category: &category})
	if err != nil {
		return nil, err
	}

	shadowed := make(map[string]bool, len(own))
	for _, t := range own {
		shadowed[strings.ToLower(t.Value)] = true
	}

	merged := make([]practice.QuickBriefTemplate, 0, len(own)+len(defaults))
	merged = append(merged, own...)
	for _, t := range defaults {
		if !shadowed[strings.ToLower(t.Value)] {
			merged = append(merged, t)
		}
	}

	rank(merged)
	return merged, nil
}

// All returns the union across every category for the management view,
// ordered by category, then usage descending, then value ascending.
func (r *Ranker) All(ctx context.Context, id practice.PractitionerID) ([]practice.QuickBriefTemplate, error) {
	if err := requireOwner(id); err != nil {
		return nil, err
	}

	var all []practice.QuickBriefTemplate
	for _, category := range practice.TemplateCategories {
		batch, err := r.ByCategory(ctx, id, category)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

// rank sorts by usage_count descending, value ascending.
func rank(items []practice.QuickBriefTemplate) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].UsageCount != items[j].UsageCount {
			return items[i].UsageCount > items[j].UsageCount
		}
		return items[i].Value < items[j].Value
	})
}

// =============================================================================
// WRITE SIDE
// =============================================================================

// RecordUsage records one use of (category, value) for the practitioner:
// an existing row is incremented and touched, a missing row is created with
// usage_count=1 and is_custom=true. Safe under concurrent calls for the
// same key.
func (r *Ranker) RecordUsage(ctx context.Context, id practice.PractitionerID, category practice.TemplateCategory, value string) (practice.QuickBriefTemplate, error) {
	if err := requireOwner(id); err != nil {
		return practice.QuickBriefTemplate{}, err
	}
	if !practice.ValidCategory(category) {
		return practice.QuickBriefTemplate{}, &practice.ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", category)}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return practice.QuickBriefTemplate{}, &practice.ValidationError{Field: "value", Message: "must not be empty"}
	}

	return r.store.UpsertUsage(ctx, id, category, value, r.clock.Now())
}

// Delete removes a custom template. System defaults are rejected without
// touching the store.
func (r *Ranker) Delete(ctx context.Context, id practice.TemplateID) error {
	t, err := r.store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("template %s: %w", id, practice.ErrNotFound)
	}
	if !t.IsCustom || t.PractitionerID.IsSystem() {
		return fmt.Errorf("template %s: %w", id, practice.ErrSystemTemplate)
	}

	r.log.WithFields(logrus.Fields{
		"template_id": id,
		"category":    t.Category,
	}).Debug("deleting custom template")
	return r.store.DeleteTemplate(ctx, id)
}

// Rename replaces only the value of a custom template; usage stats stay
// untouched. Same immutability guard as Delete.
func (r *Ranker) Rename(ctx context.Context, id practice.TemplateID, newValue string) (practice.QuickBriefTemplate, error) {
	newValue = strings.TrimSpace(newValue)
	if newValue == "" {
		return practice.QuickBriefTemplate{}, &practice.ValidationError{Field: "value", Message: "must not be empty"}
	}

	t, err := r.store.GetTemplate(ctx, id)
	if err != nil {
		return practice.QuickBriefTemplate{}, err
	}
	if t == nil {
		return practice.QuickBriefTemplate{}, fmt.Errorf("template %s: %w", id, practice.ErrNotFound)
	}
	if !t.IsCustom || t.PractitionerID.IsSystem() {
		return practice.QuickBriefTemplate{}, fmt.Errorf("template %s: %w", id, practice.ErrSystemTemplate)
	}

	return r.store.UpdateTemplateValue(ctx, id, newValue, r.clock.Now())
}

func requireOwner(id practice.PractitionerID) error {
	if id == "" {
		return &practice.ValidationError{Field: "practitioner_id", Message: "must not be empty"}
	}
	return nil
}
