package templates_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexo/practice-engine/practice"
	"github.com/lexo/practice-engine/practice/store"
	"github.com/lexo/practice-engine/templates"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2026, time.March, 16, 12, 0, 0, 0, time.UTC)

const owner = practice.PractitionerID("adv-1")

func newTestRanker(t *testing.T) (*templates.Ranker, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return templates.New(mem, log, practice.FixedClock{Instant: testNow}), mem
}

func seedSystem(t *testing.T, mem *store.Memory, category practice.TemplateCategory, values ...string) {
	t.Helper()
	for _, v := range values {
		_, err := mem.InsertTemplate(context.Background(), practice.QuickBriefTemplate{
			PractitionerID: practice.SystemOwner,
			Category:       category,
			Value:          v,
			IsCustom:       false,
			CreatedAt:      testNow,
			UpdatedAt:      testNow,
		})
		require.NoError(t, err)
	}
}

// =============================================================================
// USAGE RECORDING
// =============================================================================

func TestRecordUsage_CreatesThenIncrements(t *testing.T) {
	// GIVEN: A value never used before
	// WHEN: Recording usage twice
	// THEN: One custom row exists with usage_count 2

	ranker, mem := newTestRanker(t)
	ctx := context.Background()

	first, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Opinion")
	require.NoError(t, err)
	assert.Equal(t, 1, first.UsageCount)
	assert.True(t, first.IsCustom)
	assert.Equal(t, testNow, first.LastUsedAt)

	second, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Opinion")
	require.NoError(t, err)
	assert.Equal(t, 2, second.UsageCount)
	assert.Equal(t, first.ID, second.ID, "same key must increment one row, not create another")

	rows, err := mem.ListTemplates(ctx, practice.TemplateFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecordUsage_Validation(t *testing.T) {
	ranker, _ := newTestRanker(t)
	ctx := context.Background()

	_, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "   ")
	assert.True(t, practice.IsValidation(err), "blank value rejected")

	_, err = ranker.RecordUsage(ctx, owner, "bogus", "Opinion")
	assert.True(t, practice.IsValidation(err), "unknown category rejected")

	_, err = ranker.RecordUsage(ctx, "", practice.CategoryWorkType, "Opinion")
	assert.True(t, practice.IsValidation(err), "missing practitioner rejected")
}

// =============================================================================
// RANKING
// =============================================================================

func TestByCategory_RanksByUsageThenValue(t *testing.T) {
	// GIVEN: Custom values with usage counts 3, 1, 1 and unused system defaults
	// WHEN: Listing the category
	// THEN: Usage count descending wins, ties break on value ascending, and
	//       system defaults trail at zero usage

	ranker, mem := newTestRanker(t)
	ctx := context.Background()
	seedSystem(t, mem, practice.CategoryWorkType, "Consultation", "Arbitration")

	for i := 0; i < 3; i++ {
		_, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Opinion")
		require.NoError(t, err)
	}
	_, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Drafting")
	require.NoError(t, err)
	_, err = ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Appearance")
	require.NoError(t, err)

	rows, err := ranker.ByCategory(ctx, owner, practice.CategoryWorkType)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	values := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.Value
	}
	assert.Equal(t, []string{"Opinion", "Appearance", "Drafting", "Arbitration", "Consultation"}, values)
}

func TestByCategory_CustomShadowsSystemDefault(t *testing.T) {
	// GIVEN: A system default "Opinion" and a custom row "opinion"
	// WHEN: Listing the category
	// THEN: Only the custom row appears; the match is case-insensitive

	ranker, mem := newTestRanker(t)
	ctx := context.Background()
	seedSystem(t, mem, practice.CategoryWorkType, "Opinion")

	_, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "opinion")
	require.NoError(t, err)

	rows, err := ranker.ByCategory(ctx, owner, practice.CategoryWorkType)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "opinion", rows[0].Value)
	assert.True(t, rows[0].IsCustom)
}

func TestByCategory_IsolatedPerPractitioner(t *testing.T) {
	// GIVEN: Another practitioner's heavy usage of a value
	// WHEN: A different practitioner lists the category
	// THEN: They see only system defaults, untouched by the other's counts

	ranker, mem := newTestRanker(t)
	ctx := context.Background()
	seedSystem(t, mem, practice.CategoryWorkType, "Opinion")

	other := practice.PractitionerID("adv-2")
	for i := 0; i < 5; i++ {
		_, err := ranker.RecordUsage(ctx, other, practice.CategoryWorkType, "Opinion")
		require.NoError(t, err)
	}

	rows, err := ranker.ByCategory(ctx, owner, practice.CategoryWorkType)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].UsageCount)
	assert.False(t, rows[0].IsCustom)
}

func TestAll_OrdersByCanonicalCategory(t *testing.T) {
	ranker, _ := newTestRanker(t)
	ctx := context.Background()

	_, err := ranker.RecordUsage(ctx, owner, practice.CategoryPracticeArea, "Labour Law")
	require.NoError(t, err)
	_, err = ranker.RecordUsage(ctx, owner, practice.CategoryMatterTitle, "Urgent Interdict")
	require.NoError(t, err)

	rows, err := ranker.All(ctx, owner)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, practice.CategoryMatterTitle, rows[0].Category)
	assert.Equal(t, practice.CategoryPracticeArea, rows[1].Category)
}

// =============================================================================
// MUTATION GUARDS
// =============================================================================

func TestDelete_SystemDefaultRejected(t *testing.T) {
	// GIVEN: A system default row
	// WHEN: Deleting it
	// THEN: The call fails with a validation error and the row survives

	ranker, mem := newTestRanker(t)
	ctx := context.Background()
	seedSystem(t, mem, practice.CategoryWorkType, "Opinion")

	rows, err := mem.ListTemplates(ctx, practice.TemplateFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	err = ranker.Delete(ctx, rows[0].ID)
	require.Error(t, err)
	assert.True(t, practice.IsValidation(err))

	rows, err = mem.ListTemplates(ctx, practice.TemplateFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDelete_CustomTemplate(t *testing.T) {
	ranker, mem := newTestRanker(t)
	ctx := context.Background()

	row, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Opinion")
	require.NoError(t, err)

	require.NoError(t, ranker.Delete(ctx, row.ID))

	rows, err := mem.ListTemplates(ctx, practice.TemplateFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDelete_MissingTemplate(t *testing.T) {
	ranker, _ := newTestRanker(t)

	err := ranker.Delete(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, practice.IsNotFound(err))
}

func TestRename_KeepsUsageStats(t *testing.T) {
	// GIVEN: A custom row with usage count 2
	// WHEN: Renaming it
	// THEN: The value changes, the counter and last-used stay

	ranker, _ := newTestRanker(t)
	ctx := context.Background()

	_, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Opnion")
	require.NoError(t, err)
	row, err := ranker.RecordUsage(ctx, owner, practice.CategoryWorkType, "Opnion")
	require.NoError(t, err)

	renamed, err := ranker.Rename(ctx, row.ID, "Opinion")
	require.NoError(t, err)
	assert.Equal(t, "Opinion", renamed.Value)
	assert.Equal(t, 2, renamed.UsageCount)
	assert.Equal(t, testNow, renamed.LastUsedAt)
}

func TestRename_SystemDefaultRejected(t *testing.T) {
	ranker, mem := newTestRanker(t)
	ctx := context.Background()
	seedSystem(t, mem, practice.CategoryWorkType, "Opinion")

	rows, err := mem.ListTemplates(ctx, practice.TemplateFilter{})
	require.NoError(t, err)

	_, err = ranker.Rename(ctx, rows[0].ID, "Advice")
	require.Error(t, err)
	assert.True(t, practice.IsValidation(err))
}
