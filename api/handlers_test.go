package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexo/practice-engine/api"
	"github.com/lexo/practice-engine/dashboard"
	"github.com/lexo/practice-engine/practice"
	"github.com/lexo/practice-engine/practice/store"
	"github.com/lexo/practice-engine/templates"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2026, time.March, 16, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	clock := practice.FixedClock{Instant: testNow}
	log := logrus.New()
	log.SetOutput(io.Discard)

	agg := dashboard.New(mem, dashboard.NewCache(5*time.Minute, clock), log, clock)
	ranker := templates.New(mem, log, clock)
	handler := api.NewHandler(mem, agg, ranker, log, clock)

	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)
	return server, mem
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

// =============================================================================
// DASHBOARD ENDPOINTS
// =============================================================================

func TestGetDashboard_EmptyBook(t *testing.T) {
	// GIVEN: A practitioner with no records
	// WHEN: Fetching the dashboard
	// THEN: A complete zero-valued snapshot renders, no error

	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/practitioners/adv-1/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Contains(t, body, "urgent_attention")
	assert.Contains(t, body, "financial_snapshot")
	assert.Contains(t, body, "generated_at")
	assert.NotContains(t, body, "degraded", "no sections should degrade on an empty book")
}

func TestCreateMatter_ShowsUpOnDashboard(t *testing.T) {
	// GIVEN: A cached empty dashboard
	// WHEN: Intaking a matter due today
	// THEN: The intake invalidates the cache and the next read shows it

	server, _ := newTestServer(t)
	base := server.URL + "/api/practitioners/adv-1"

	resp := doJSON(t, http.MethodGet, base+"/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/matters", map[string]any{
		"title":                    "Urgent Interdict",
		"client_name":              "Mokoena Attorneys",
		"status":                   "active",
		"expected_completion_date": "2026-03-16",
		"estimated_fee":            "45000",
		"wip_value":                "30000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, base+"/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot struct {
		UrgentAttention []struct {
			Type  string `json:"type"`
			Title string `json:"title"`
		} `json:"urgent_attention"`
	}
	decodeBody(t, resp, &snapshot)
	require.Len(t, snapshot.UrgentAttention, 1)
	assert.Equal(t, "deadline_today", snapshot.UrgentAttention[0].Type)
	assert.Equal(t, "Urgent Interdict", snapshot.UrgentAttention[0].Title)
}

func TestCreateMatter_BadMoneyRejected(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/practitioners/adv-1/matters", map[string]any{
		"title":         "x",
		"status":        "active",
		"estimated_fee": "not-a-number",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearDashboardCache(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodDelete, server.URL+"/api/practitioners/adv-1/dashboard/cache", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// =============================================================================
// TEMPLATE ENDPOINTS
// =============================================================================

func TestTemplateUsage_RecordAndList(t *testing.T) {
	// GIVEN: Two usages of one value and one of another
	// WHEN: Listing the category
	// THEN: Ranked by usage count descending

	server, _ := newTestServer(t)
	base := server.URL + "/api/practitioners/adv-1/templates"

	for _, value := range []string{"Opinion", "Opinion", "Drafting"} {
		resp := doJSON(t, http.MethodPost, base+"/usage", map[string]any{
			"category": "work_type",
			"value":    value,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := doJSON(t, http.MethodGet, base+"?category=work_type", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []struct {
		Value      string `json:"value"`
		UsageCount int    `json:"usage_count"`
	}
	decodeBody(t, resp, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "Opinion", rows[0].Value)
	assert.Equal(t, 2, rows[0].UsageCount)
	assert.Equal(t, "Drafting", rows[1].Value)
}

func TestTemplateUsage_UnknownCategoryRejected(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/practitioners/adv-1/templates/usage", map[string]any{
		"category": "bogus",
		"value":    "Opinion",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRenameTemplate_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, server.URL+"/api/templates/no-such-id", map[string]any{
		"value": "Opinion",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteTemplate_SystemDefaultRejected(t *testing.T) {
	server, mem := newTestServer(t)

	row, err := mem.InsertTemplate(context.Background(), practice.QuickBriefTemplate{
		PractitionerID: practice.SystemOwner,
		Category:       practice.CategoryWorkType,
		Value:          "Opinion",
		IsCustom:       false,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodDelete, server.URL+"/api/templates/"+string(row.ID), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportImport_RoundTrip(t *testing.T) {
	// GIVEN: adv-1 exported their custom templates
	// WHEN: adv-2 imports the payload
	// THEN: adv-2 gets fresh unused copies

	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/practitioners/adv-1/templates/usage", map[string]any{
		"category": "work_type",
		"value":    "Opinion",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/practitioners/adv-1/templates/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload templates.Export
	decodeBody(t, resp, &payload)
	require.Len(t, payload.Templates, 1)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/practitioners/adv-2/templates/import", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result templates.ImportResult
	decodeBody(t, resp, &result)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 0, result.Skipped)
}

// =============================================================================
// SEED ENDPOINT
// =============================================================================

func TestSeedDemoBook_PopulatesDashboardAndTemplates(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Posting the seed endpoint twice for the same practitioner
	// THEN: The dashboard has urgent items, the management view has the system
	//       defaults, and the second run succeeds without duplicating rows

	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/seed", map[string]any{
		"practitioner_id": "adv-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/practitioners/adv-1/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snapshot struct {
		UrgentAttention []struct {
			Type string `json:"type"`
		} `json:"urgent_attention"`
	}
	decodeBody(t, resp, &snapshot)
	assert.NotEmpty(t, snapshot.UrgentAttention)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/practitioners/adv-1/templates/all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []struct {
		IsCustom bool `json:"is_custom"`
	}
	decodeBody(t, resp, &rows)
	firstCount := len(rows)
	require.NotZero(t, firstCount)
	assert.False(t, rows[0].IsCustom, "seeded rows are system defaults")

	resp = doJSON(t, http.MethodPost, server.URL+"/api/seed", map[string]any{
		"practitioner_id": "adv-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/practitioners/adv-1/templates/all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows = nil
	decodeBody(t, resp, &rows)
	assert.Len(t, rows, firstCount, "re-seeding must not duplicate templates")
}

// brokenTemplateStore fails every insert with a non-duplicate store error.
type brokenTemplateStore struct {
	practice.TemplateStore
}

func (brokenTemplateStore) InsertTemplate(context.Context, practice.QuickBriefTemplate) (practice.QuickBriefTemplate, error) {
	return practice.QuickBriefTemplate{}, &practice.StoreError{
		Op:         "insert",
		Collection: "quick_brief_templates",
		Err:        errors.New("database is locked"),
	}
}

func TestSeedSystemTemplates_PropagatesStoreFailure(t *testing.T) {
	// GIVEN: A store whose inserts fail for reasons other than duplicates
	// WHEN: Seeding system templates
	// THEN: The failure propagates instead of reading as already-seeded

	err := api.SeedSystemTemplates(context.Background(),
		brokenTemplateStore{TemplateStore: store.NewMemory()},
		practice.FixedClock{Instant: testNow})
	require.Error(t, err)
	assert.True(t, practice.IsStore(err))
	assert.False(t, practice.IsDuplicate(err))
}

func TestImport_WrongVersionRejected(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/practitioners/adv-1/templates/import", templates.Export{
		Version: "2.0",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
