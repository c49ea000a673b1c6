package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-ml/compkb/internal/browser"
	"github.com/compass-ml/compkb/internal/cache"
	"github.com/compass-ml/compkb/internal/ingest"
	"github.com/compass-ml/compkb/internal/llm"
	"github.com/compass-ml/compkb/internal/model"
	"github.com/compass-ml/compkb/internal/store"
)

type stubFetcher struct {
	pages map[string]*browser.Page
}

func (f *stubFetcher) FetchPage(_ context.Context, url string) (*browser.Page, error) {
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return &browser.Page{URL: url, Status: http.StatusNotFound}, nil
}

func (f *stubFetcher) Close() {}

type stubLLM struct {
	discussion string
	translated string
}

func (s *stubLLM) ExtractMetric(context.Context, string, string) string       { return "" }
func (s *stubLLM) DescribeMetric(context.Context, string, string, string) string { return "" }
func (s *stubLLM) GenerateSummary(context.Context, string, string, string) string { return "" }
func (s *stubLLM) GenerateTags(context.Context, string, string, string, model.Taxonomy) llm.TagResult {
	return llm.TagResult{}
}
func (s *stubLLM) ExtractDatasetInfo(context.Context, string, string) string  { return "" }
func (s *stubLLM) SummarizeDiscussion(context.Context, string, string) string { return s.discussion }
func (s *stubLLM) TranslateAndOrganize(context.Context, string) string        { return s.translated }
func (s *stubLLM) SummarizeSolution(context.Context, string, string) string   { return "" }
func (s *stubLLM) ExtractTechniques(context.Context, string, string) string   { return "" }
func (s *stubLLM) SummarizeNotebook(context.Context, string, string) string   { return "" }

type fixture struct {
	server  *httptest.Server
	store   *store.Store
	fetcher *stubFetcher
	llm     *stubLLM
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	c := cache.Open(filepath.Join(dir, "cache.db"))
	t.Cleanup(func() { c.Close() })

	f := &stubFetcher{pages: map[string]*browser.Page{}}
	l := &stubLLM{}
	orch := ingest.New(ingest.Options{
		Cache: c, Fetcher: f, LLM: l, Store: st,
		BaseURL: "https://www.kaggle.com",
	})

	srv := httptest.NewServer(New(st, orch).Router())
	t.Cleanup(srv.Close)
	return &fixture{server: srv, store: st, fetcher: f, llm: l}
}

func (fx *fixture) seed(t *testing.T, id string, endOffsetDays int) {
	t.Helper()
	end := time.Now().UTC().AddDate(0, 0, endOffsetDays)
	_, err := fx.store.UpsertCompetition(context.Background(), &model.Competition{
		ID: id, Title: "Competition " + id,
		URL:     "https://www.kaggle.com/competitions/" + id,
		EndDate: &end,
	})
	require.NoError(t, err)
}

func (fx *fixture) do(t *testing.T, method, path string, want int) map[string]any {
	t.Helper()
	req, err := http.NewRequest(method, fx.server.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, want, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestListCompetitions_ActiveFilter(t *testing.T) {
	fx := newFixture(t)
	fx.seed(t, "old", -60)
	fx.seed(t, "soon", 15)
	fx.seed(t, "later", 25)
	fx.seed(t, "done", -5)

	body := fx.do(t, http.MethodGet, "/competitions?status=active", http.StatusOK)

	assert.EqualValues(t, 2, body["total"])
	assert.EqualValues(t, 2, body["active_count"])
	assert.EqualValues(t, 2, body["completed_count"])

	items := body["items"].([]any)
	require.Len(t, items, 2)
	days := map[float64]bool{}
	for _, raw := range items {
		item := raw.(map[string]any)
		days[item["days_until_deadline"].(float64)] = true
	}
	assert.Equal(t, map[float64]bool{15: true, 25: true}, days)
}

func TestListCompetitions_BadStatus(t *testing.T) {
	fx := newFixture(t)
	fx.do(t, http.MethodGet, "/competitions?status=bogus", http.StatusBadRequest)
}

func TestListCompetitions_BadFavorite(t *testing.T) {
	fx := newFixture(t)
	fx.do(t, http.MethodGet, "/competitions?is_favorite=maybe", http.StatusBadRequest)
}

func TestGetCompetition(t *testing.T) {
	fx := newFixture(t)
	fx.seed(t, "titanic", 30)

	body := fx.do(t, http.MethodGet, "/competitions/titanic", http.StatusOK)
	assert.Equal(t, "titanic", body["id"])

	fx.do(t, http.MethodGet, "/competitions/ghost", http.StatusNotFound)
}

func TestToggleFavorite_Cascade(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.seed(t, "foo", 30)

	// Favorite, then attach 7 discussions.
	body := fx.do(t, http.MethodPatch, "/competitions/foo/favorite", http.StatusOK)
	assert.Equal(t, true, body["is_favorite"])

	for i := 0; i < 7; i++ {
		_, _, err := fx.store.UpsertDiscussion(ctx, &model.Discussion{
			CompetitionID: "foo", Title: "thread",
			URL:      "https://www.kaggle.com/d/" + strings.Repeat("x", i+1),
			Category: model.CategoryDiscussion,
		})
		require.NoError(t, err)
	}

	body = fx.do(t, http.MethodPatch, "/competitions/foo/favorite", http.StatusOK)
	assert.Equal(t, false, body["is_favorite"])
	assert.EqualValues(t, 7, body["deleted_discussions"])

	listBody := fx.do(t, http.MethodGet, "/competitions/foo/discussions", http.StatusOK)
	assert.Empty(t, listBody["items"])
}

func TestToggleFavorite_Missing(t *testing.T) {
	fx := newFixture(t)
	fx.do(t, http.MethodPatch, "/competitions/ghost/favorite", http.StatusNotFound)
}

func TestDiscussionEndpoints(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.seed(t, "comp", 30)

	url := "https://www.kaggle.com/competitions/comp/discussion/2"
	id, _, err := fx.store.UpsertDiscussion(ctx, &model.Discussion{
		CompetitionID: "comp", Title: "1st Place Solution", URL: url,
		VoteCount: 120, Category: model.CategoryDiscussion,
	})
	require.NoError(t, err)
	idStr := "/discussions/" + itoa(id)

	body := fx.do(t, http.MethodGet, idStr, http.StatusOK)
	assert.Equal(t, "1st Place Solution", body["title"])

	// Content is not cached until a fetch runs.
	fx.do(t, http.MethodGet, idStr+"/content", http.StatusNotFound)

	fx.fetcher.pages[url] = &browser.Page{
		URL: url, Status: http.StatusOK, Text: strings.Repeat("x", 1500),
	}
	fx.llm.discussion = `{"overview":"a","main_topic":"b","key_points":[]}`
	fx.llm.translated = "organized"

	body = fx.do(t, http.MethodPost, idStr+"/fetch", http.StatusOK)
	assert.NotEmpty(t, body["summary"])

	body = fx.do(t, http.MethodGet, idStr+"/content", http.StatusOK)
	assert.Len(t, body["body"], 1500)
	assert.Equal(t, "organized", body["translated"])
	assert.EqualValues(t, 3, body["ttl_days"])
}

func TestDiscussionFetch_AcquisitionFailure(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.seed(t, "comp", 30)

	// URL not present in the stub: the page resolves to 404 and the fetch
	// surfaces as a 500 acquisition failure.
	id, _, err := fx.store.UpsertDiscussion(ctx, &model.Discussion{
		CompetitionID: "comp", Title: "gone", URL: "https://www.kaggle.com/gone",
		Category: model.CategoryDiscussion,
	})
	require.NoError(t, err)

	fx.do(t, http.MethodPost, "/discussions/"+itoa(id)+"/fetch", http.StatusInternalServerError)
}

func TestDiscussionEndpoints_BadID(t *testing.T) {
	fx := newFixture(t)
	fx.do(t, http.MethodGet, "/discussions/abc", http.StatusBadRequest)
	fx.do(t, http.MethodGet, "/discussions/99", http.StatusNotFound)
}

func TestSolutionListSplit(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.seed(t, "comp", 30)

	rank := 1
	_, _, err := fx.store.UpsertSolution(ctx, &model.Solution{
		CompetitionID: "comp", Title: "write-up", URL: "u1",
		Type: model.SolutionTypeDiscussion, Rank: &rank, Medal: model.MedalGold,
	})
	require.NoError(t, err)
	_, _, err = fx.store.UpsertSolution(ctx, &model.Solution{
		CompetitionID: "comp", Title: "notebook", URL: "u2",
		Type: model.SolutionTypeNotebook,
	})
	require.NoError(t, err)

	body := fx.do(t, http.MethodGet, "/competitions/comp/solutions", http.StatusOK)
	require.EqualValues(t, 1, body["total"])
	sol := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "write-up", sol["title"])
	assert.Equal(t, "gold", sol["medal"])

	body = fx.do(t, http.MethodGet, "/competitions/comp/notebooks", http.StatusOK)
	require.EqualValues(t, 1, body["total"])
	nb := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "notebook", nb["title"])
}

func TestTags(t *testing.T) {
	fx := newFixture(t)

	body := fx.do(t, http.MethodGet, "/tags?category=domain", http.StatusOK)
	items := body["items"].([]any)
	require.NotEmpty(t, items)
	for _, raw := range items {
		assert.Equal(t, "domain", raw.(map[string]any)["category"])
	}

	grouped := fx.do(t, http.MethodGet, "/tags?group_by_category=true", http.StatusOK)
	assert.Contains(t, grouped, "data_type")
	assert.Contains(t, grouped, "task_type")
}

func TestHealth(t *testing.T) {
	fx := newFixture(t)
	body := fx.do(t, http.MethodGet, "/health", http.StatusOK)
	assert.Equal(t, "ok", body["status"])
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
