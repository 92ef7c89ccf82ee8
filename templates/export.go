/*
export.go - Version-tagged template export and import

PURPOSE:
  Lets a practitioner carry their custom templates between environments.
  Export emits every custom row under a fixed compatibility version tag;
  import validates the tag, skips collisions with existing rows, and keeps
  going past per-record failures so one bad row never sinks the batch.

IMPORT RULES:
  - Version must equal ExportVersion exactly; otherwise nothing is imported.
  - Each record needs a known category and a non-empty value.
  - A record colliding with an existing (category, value) the practitioner
    already owns is skipped, never overwritten; the existing row's usage
    stats are untouched.
  - Imported rows start at usage_count=0 and are always custom.
  - A failed insert becomes an error string and counts as skipped.

SEE ALSO:
  - ranker.go: Ranking and mutation rules
*/
package templates

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lexo/practice-engine/practice"
)

// ExportVersion is the compatibility tag of the current payload format.
const ExportVersion = "1.0"

// =============================================================================
// PAYLOAD TYPES
// =============================================================================

// ExportRecord is one custom template in an export payload.
type ExportRecord struct {
	Category   practice.TemplateCategory `json:"category"`
	Value      string                    `json:"value"`
	UsageCount int                       `json:"usage_count"`
	LastUsedAt *time.Time                `json:"last_used_at,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// Export is the full export payload for one practitioner.
type Export struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Templates  []ExportRecord `json:"templates"`
}

// ImportResult accounts for every record in an import payload.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// =============================================================================
// EXPORT
// =============================================================================

// Export returns all of the practitioner's custom templates, ordered by
// category then value.
func (r *Ranker) Export(ctx context.Context, id practice.PractitionerID) (Export, error) {
	if err := requireOwner(id); err != nil {
		return Export{}, err
	}

	rows, err := r.store.ListTemplates(ctx, practice.TemplateFilter{Owner: &id, CustomOnly: true})
	if err != nil {
		return Export{}, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := categoryRank(rows[i].Category), categoryRank(rows[j].Category)
		if ri != rj {
			return ri < rj
		}
		return rows[i].Value < rows[j].Value
	})

	records := make([]ExportRecord, 0, len(rows))
	for _, row := range rows {
		record := ExportRecord{
			Category:   row.Category,
			Value:      row.Value,
			UsageCount: row.UsageCount,
			CreatedAt:  row.CreatedAt,
		}
		if !row.LastUsedAt.IsZero() {
			lastUsed := row.LastUsedAt
			record.LastUsedAt = &lastUsed
		}
		records = append(records, record)
	}

	return Export{
		Version:    ExportVersion,
		ExportedAt: r.clock.Now(),
		Templates:  records,
	}, nil
}

// =============================================================================
// IMPORT
// =============================================================================

// Import inserts the payload's records as fresh custom templates. See the
// file header for the full rule set.
func (r *Ranker) Import(ctx context.Context, id practice.PractitionerID, payload Export) (ImportResult, error) {
	if err := requireOwner(id); err != nil {
		return ImportResult{}, err
	}
	if payload.Version != ExportVersion {
		return ImportResult{}, fmt.Errorf("version %q (want %q): %w", payload.Version, ExportVersion, practice.ErrUnsupportedVersion)
	}

	existing, err := r.store.ListTemplates(ctx, practice.TemplateFilter{Owner: &id})
	if err != nil {
		return ImportResult{}, err
	}
	taken := make(map[templateKey]bool, len(existing))
	for _, t := range existing {
		taken[templateKey{t.Category, strings.ToLower(t.Value)}] = true
	}

	now := r.clock.Now()
	var result ImportResult
	for _, record := range payload.Templates {
		value := strings.TrimSpace(record.Value)
		if !practice.ValidCategory(record.Category) {
			result.Errors = append(result.Errors, fmt.Sprintf("unknown category %q for %q", record.Category, record.Value))
			result.Skipped++
			continue
		}
		if value == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("empty value in category %q", record.Category))
			result.Skipped++
			continue
		}

		key := templateKey{record.Category, strings.ToLower(value)}
		if taken[key] {
			result.Skipped++
			continue
		}

		_, err := r.store.InsertTemplate(ctx, practice.QuickBriefTemplate{
			PractitionerID: id,
			Category:       record.Category,
			Value:          value,
			UsageCount:     0,
			IsCustom:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import %q: %v", value, err))
			result.Skipped++
			continue
		}
		taken[key] = true
		result.Imported++
	}

	r.log.WithFields(logrus.Fields{
		"practitioner_id": id,
		"imported":        result.Imported,
		"skipped":         result.Skipped,
	}).Info("template import finished")
	return result, nil
}

type templateKey struct {
	category practice.TemplateCategory
	value    string
}

func categoryRank(c practice.TemplateCategory) int {
	for i, known := range practice.TemplateCategories {
		if c == known {
			return i
		}
	}
	return len(practice.TemplateCategories)
}
