package templates_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexo/practice-engine/practice"
	"github.com/lexo/practice-engine/templates"
)

// =============================================================================
// EXPORT
// =============================================================================

func TestExport_CustomRowsOnly(t *testing.T) {
	// GIVEN: System defaults and two custom rows in different categories
	// WHEN: Exporting
	// THEN: Only custom rows appear, ordered by canonical category then value,
	//       under the current version tag

	ranker, mem := newTestRanker(t)
	ctx := context.Background()
	seedSystem(t, mem, practice.CategoryWorkType, "Opinion")

	_, err := ranker.RecordUsage(ctx, owner, practice.CategoryPracticeArea, "Labour Law")
	require.NoError(t, err)
	_, err = ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Drafting")
	require.NoError(t, err)

	payload, err := ranker.Export(ctx, owner)
	require.NoError(t, err)

	assert.Equal(t, templates.ExportVersion, payload.Version)
	assert.Equal(t, testNow, payload.ExportedAt)
	require.Len(t, payload.Templates, 2)
	assert.Equal(t, practice.CategoryWorkType, payload.Templates[0].Category)
	assert.Equal(t, "Drafting", payload.Templates[0].Value)
	assert.Equal(t, practice.CategoryPracticeArea, payload.Templates[1].Category)
	assert.Equal(t, 1, payload.Templates[1].UsageCount)
	require.NotNil(t, payload.Templates[1].LastUsedAt)
	assert.Equal(t, testNow, *payload.Templates[1].LastUsedAt)
}

// =============================================================================
// IMPORT
// =============================================================================

func TestImport_UnsupportedVersionRejected(t *testing.T) {
	// GIVEN: A payload tagged with a future version
	// WHEN: Importing
	// THEN: The whole import is rejected and nothing is written

	ranker, mem := newTestRanker(t)
	ctx := context.Background()

	_, err := ranker.Import(ctx, owner, templates.Export{
		Version: "2.0",
		Templates: []templates.ExportRecord{
			{Category: practice.CategoryWorkType, Value: "Opinion"},
		},
	})
	require.Error(t, err)
	assert.True(t, practice.IsValidation(err))

	rows, err := mem.ListTemplates(ctx, practice.TemplateFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestImport_SkipsCollisionsKeepsGoing(t *testing.T) {
	// GIVEN: The practitioner already owns "Opinion" with usage count 2
	// WHEN: Importing a payload with "opinion" (collision, case-insensitive),
	//       a fresh value, and a record with an unknown category
	// THEN: One imported, two skipped with one error; the existing row's
	//       usage stats are untouched

	ranker, mem := newTestRanker(t)
	ctx := context.Background()

	_, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Opinion")
	require.NoError(t, err)
	existing, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Opinion")
	require.NoError(t, err)

	result, err := ranker.Import(ctx, owner, templates.Export{
		Version: templates.ExportVersion,
		Templates: []templates.ExportRecord{
			{Category: practice.CategoryWorkType, Value: "opinion", UsageCount: 99},
			{Category: practice.CategoryWorkType, Value: "Drafting"},
			{Category: "bogus", Value: "Whatever"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "bogus")

	got, err := mem.GetTemplate(ctx, existing.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.UsageCount, "collision must not overwrite usage stats")

	category := practice.CategoryWorkType
	rows, err := mem.ListTemplates(ctx, practice.TemplateFilter{Owner: ptr(owner), Category: &category})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestImport_FreshRowsStartUnused(t *testing.T) {
	// GIVEN: An exported record carrying usage stats from another environment
	// WHEN: Importing it
	// THEN: The new row starts at usage_count 0 and is custom

	ranker, mem := newTestRanker(t)
	ctx := context.Background()

	result, err := ranker.Import(ctx, owner, templates.Export{
		Version: templates.ExportVersion,
		Templates: []templates.ExportRecord{
			{Category: practice.CategoryWorkType, Value: "Opinion", UsageCount: 42},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	rows, err := mem.ListTemplates(ctx, practice.TemplateFilter{Owner: ptr(owner)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].UsageCount)
	assert.True(t, rows[0].IsCustom)
	assert.True(t, rows[0].LastUsedAt.IsZero())
}

func TestImport_DeduplicatesWithinPayload(t *testing.T) {
	// GIVEN: A payload repeating the same (category, value) twice
	// WHEN: Importing
	// THEN: The first wins, the second is skipped

	ranker, _ := newTestRanker(t)

	result, err := ranker.Import(context.Background(), owner, templates.Export{
		Version: templates.ExportVersion,
		Templates: []templates.ExportRecord{
			{Category: practice.CategoryWorkType, Value: "Opinion"},
			{Category: practice.CategoryWorkType, Value: "OPINION"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
}

func ptr(id practice.PractitionerID) *practice.PractitionerID { return &id }
