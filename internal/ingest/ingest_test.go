package ingest

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-ml/compkb/internal/browser"
	"github.com/compass-ml/compkb/internal/cache"
	"github.com/compass-ml/compkb/internal/llm"
	"github.com/compass-ml/compkb/internal/model"
	"github.com/compass-ml/compkb/internal/store"
)

// fakeFetcher serves canned pages by URL. Unknown URLs resolve to 404, which
// is also how the real fetcher reports missing tabs.
type fakeFetcher struct {
	pages map[string]*browser.Page
	calls []string
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) (*browser.Page, error) {
	f.calls = append(f.calls, url)
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return &browser.Page{URL: url, Status: http.StatusNotFound, FetchedAt: time.Now()}, nil
}

func (f *fakeFetcher) Close() {}

func textPage(url, text string) *browser.Page {
	return &browser.Page{URL: url, Status: http.StatusOK, Text: text, FetchedAt: time.Now()}
}

func htmlPage(url, html string) *browser.Page {
	return &browser.Page{URL: url, Status: http.StatusOK, HTML: html, Text: html, FetchedAt: time.Now()}
}

// fakeLLM returns fixed outputs and records which operations ran.
type fakeLLM struct {
	metric      string
	metricDesc  string
	summary     string
	tags        llm.TagResult
	datasetInfo string
	discussion  string
	translated  string
	solution    string
	techniques  string
	notebook    string
	ops         []string
}

func (f *fakeLLM) op(name string) { f.ops = append(f.ops, name) }

func (f *fakeLLM) ExtractMetric(_ context.Context, _, _ string) string {
	f.op("extract_metric")
	return f.metric
}

func (f *fakeLLM) DescribeMetric(_ context.Context, _, _, _ string) string {
	f.op("describe_metric")
	return f.metricDesc
}

func (f *fakeLLM) GenerateSummary(_ context.Context, _, _, _ string) string {
	f.op("generate_summary")
	return f.summary
}

func (f *fakeLLM) GenerateTags(_ context.Context, _, _, _ string, _ model.Taxonomy) llm.TagResult {
	f.op("generate_tags")
	return f.tags
}

func (f *fakeLLM) ExtractDatasetInfo(_ context.Context, _, _ string) string {
	f.op("extract_dataset_info")
	return f.datasetInfo
}

func (f *fakeLLM) SummarizeDiscussion(_ context.Context, _, _ string) string {
	f.op("summarize_discussion")
	return f.discussion
}

func (f *fakeLLM) TranslateAndOrganize(_ context.Context, _ string) string {
	f.op("translate_organize")
	return f.translated
}

func (f *fakeLLM) SummarizeSolution(_ context.Context, _, _ string) string {
	f.op("summarize_solution")
	return f.solution
}

func (f *fakeLLM) ExtractTechniques(_ context.Context, _, _ string) string {
	f.op("extract_techniques")
	return f.techniques
}

func (f *fakeLLM) SummarizeNotebook(_ context.Context, _, _ string) string {
	f.op("summarize_notebook")
	return f.notebook
}

type harness struct {
	orch    *Orchestrator
	store   *store.Store
	cache   *cache.Cache
	fetcher *fakeFetcher
	llm     *fakeLLM
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	s, err := store.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	c := cache.Open(filepath.Join(dir, "cache.db"))
	t.Cleanup(func() { c.Close() })

	f := &fakeFetcher{pages: map[string]*browser.Page{}}
	l := &fakeLLM{}
	return &harness{
		orch: New(Options{
			Cache: c, Fetcher: f, LLM: l, Store: s,
			BaseURL: "https://www.kaggle.com",
		}),
		store:   s,
		cache:   c,
		fetcher: f,
		llm:     l,
	}
}

func (h *harness) seedCompetition(t *testing.T, id string) {
	t.Helper()
	end := time.Now().UTC().AddDate(0, 0, 30)
	_, err := h.store.UpsertCompetition(context.Background(), &model.Competition{
		ID: id, Title: "Competition " + id,
		URL:     "https://www.kaggle.com/competitions/" + id,
		EndDate: &end, Status: model.StatusActive,
		Description: "A test competition about predicting things.",
	})
	require.NoError(t, err)
}

const metaPageText = `Spaceship Titanic
Predict which passengers are transported to an alternate dimension.
Start
June 1, 2026
Close
September 30, 2026
Evaluation
Classification accuracy
`

func TestIngestMetadata(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	url := "https://www.kaggle.com/competitions/spaceship-titanic"
	h.fetcher.pages[url] = textPage(url, metaPageText)

	comp, err := h.orch.IngestMetadata(ctx, "spaceship-titanic")
	require.NoError(t, err)
	require.NotNil(t, comp)
	assert.Equal(t, "Spaceship Titanic", comp.Title)
	require.NotNil(t, comp.EndDate)
	assert.Equal(t, model.StatusActive, comp.Status)

	// The meta cache short-circuits the second call.
	fetches := len(h.fetcher.calls)
	comp2, err := h.orch.IngestMetadata(ctx, "spaceship-titanic")
	require.NoError(t, err)
	require.NotNil(t, comp2)
	assert.Equal(t, fetches, len(h.fetcher.calls))
}

func TestIngestMetadata_NotFound(t *testing.T) {
	h := newHarness(t)

	comp, err := h.orch.IngestMetadata(context.Background(), "no-such-competition")
	require.NoError(t, err)
	assert.Nil(t, comp)

	row, err := h.store.GetCompetition(context.Background(), "no-such-competition")
	require.NoError(t, err)
	assert.Nil(t, row)
}

const discussionListHTML = `
<ul>
  <li class="MuiListItem-root">
    <span>push_pin</span>
    <a href="/competitions/comp/discussion/1">Welcome thread</a>
    <span aria-label="3 votes">3</span>
  </li>
  <li class="MuiListItem-root">
    <a href="/competitions/comp/discussion/2">1st Place Solution</a>
    <a aria-label="ada's profile" href="/ada"></a>
    <span aria-label="120 votes">120</span>
    <span>12 comments</span>
  </li>
  <li class="MuiListItem-root">
    <a href="/competitions/comp/discussion/3">EDA results</a>
    <a aria-label="bob's profile" href="/bob"></a>
    <span aria-label="40 votes">40</span>
    <span>5 comments</span>
  </li>
</ul>`

const writeupListHTML = `
<ul>
  <li class="MuiListItem-root">
    <a href="/competitions/comp/writeups/team-x">How we did it</a>
    <a aria-label="carol's profile" href="/carol"></a>
    <span aria-label="60 votes">60</span>
  </li>
  <li class="MuiListItem-root">
    <a href="/competitions/comp/discussion/2">1st Place Solution</a>
    <span aria-label="120 votes">120</span>
  </li>
</ul>`

func setupDiscussionTabs(h *harness) {
	h.fetcher.pages["https://www.kaggle.com/competitions/comp/discussion?sort=votes&page=1"] =
		htmlPage("", discussionListHTML)
	h.fetcher.pages["https://www.kaggle.com/competitions/comp/writeups?page=1"] =
		htmlPage("", writeupListHTML)
}

func TestIngestDiscussions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")
	setupDiscussionTabs(h)

	counters, err := h.orch.IngestDiscussions(ctx, "comp", 1)
	require.NoError(t, err)

	// Pinned dropped; duplicate write-up tab entry deduplicated.
	assert.Equal(t, 3, counters["discussions"].Total)
	assert.Equal(t, 3, counters["discussions"].Saved)
	assert.Equal(t, 2, counters["solutions"].Total, "1st place title plus write-up promotion")

	discussions, err := h.store.ListDiscussions(ctx, "comp", "", "", 0)
	require.NoError(t, err)
	require.Len(t, discussions, 3)
	for _, d := range discussions {
		assert.False(t, d.IsPinned, "pinned items must never be persisted")
	}

	solutions, err := h.store.ListSolutions(ctx, "comp", "", "rank", "asc", 0)
	require.NoError(t, err)
	require.Len(t, solutions, 2)
	first := solutions[0]
	assert.Equal(t, "1st Place Solution", first.Title)
	require.NotNil(t, first.Rank)
	assert.Equal(t, 1, *first.Rank)
	assert.Equal(t, model.MedalGold, first.Medal)
	assert.Equal(t, model.SolutionTypeDiscussion, first.Type)

	promoted := solutions[1]
	assert.Equal(t, "How we did it", promoted.Title)
	assert.Nil(t, promoted.Rank)

	// The write-up row is also a discussion with its category preserved.
	var writeupSeen bool
	for _, d := range discussions {
		if d.Category == model.CategoryWriteup {
			writeupSeen = true
		}
	}
	assert.True(t, writeupSeen)
}

func TestIngestDiscussions_Rerun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")
	setupDiscussionTabs(h)

	_, err := h.orch.IngestDiscussions(ctx, "comp", 1)
	require.NoError(t, err)
	counters, err := h.orch.IngestDiscussions(ctx, "comp", 1)
	require.NoError(t, err)

	assert.Equal(t, 0, counters["discussions"].Saved)
	assert.Equal(t, 3, counters["discussions"].Updated)
	assert.Equal(t, 3, counters["discussions"].Total)

	runs, err := h.store.ListIngestRuns(ctx, "comp", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestIngestDiscussions_ListPagesCached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")
	setupDiscussionTabs(h)

	_, err := h.orch.IngestDiscussions(ctx, "comp", 1)
	require.NoError(t, err)
	fetches := len(h.fetcher.calls)

	_, err = h.orch.IngestDiscussions(ctx, "comp", 1)
	require.NoError(t, err)
	assert.Equal(t, fetches, len(h.fetcher.calls), "second run is served from the page cache")
}

func TestFetchDiscussionDetail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")

	url := "https://www.kaggle.com/competitions/comp/discussion/2"
	id, _, err := h.store.UpsertDiscussion(ctx, &model.Discussion{
		CompetitionID: "comp", Title: "1st Place Solution", URL: url,
		Category: model.CategoryDiscussion,
	})
	require.NoError(t, err)

	body := strings.Repeat("x", 1500)
	h.fetcher.pages[url] = textPage(url, body)
	h.llm.discussion = `{"overview":"a","main_topic":"b","key_points":["c"]}`
	h.llm.translated = "Section\n━━━\nMore"

	require.NoError(t, h.orch.FetchDiscussionDetail(ctx, id))

	cached, ok := h.cache.Get(ctx, discussionContentKey(id))
	require.True(t, ok)
	assert.Equal(t, body, cached)

	translated, ok := h.cache.Get(ctx, discussionContentKey(id)+":translated")
	require.True(t, ok)
	assert.Contains(t, translated, "━━━")

	d, err := h.store.GetDiscussion(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, h.llm.discussion, d.Summary)

	content, ok := h.orch.DiscussionContent(ctx, id)
	require.True(t, ok)
	assert.Equal(t, body, content.Body)
	assert.Equal(t, 3, content.TTLDays)
}

func TestFetchDiscussionDetail_ShortBodySkipsLLM(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")

	url := "https://www.kaggle.com/competitions/comp/discussion/5"
	id, _, err := h.store.UpsertDiscussion(ctx, &model.Discussion{
		CompetitionID: "comp", Title: "short", URL: url, Category: model.CategoryDiscussion,
	})
	require.NoError(t, err)
	h.fetcher.pages[url] = textPage(url, "tiny body")

	require.NoError(t, h.orch.FetchDiscussionDetail(ctx, id))
	assert.Empty(t, h.llm.ops)

	_, ok := h.cache.Get(ctx, discussionContentKey(id))
	assert.True(t, ok, "body is cached even when too short to summarize")
}

func TestFetchDiscussionDetail_FailedLLMKeepsSummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")

	url := "https://www.kaggle.com/competitions/comp/discussion/7"
	id, _, err := h.store.UpsertDiscussion(ctx, &model.Discussion{
		CompetitionID: "comp", Title: "t", URL: url, Category: model.CategoryDiscussion,
	})
	require.NoError(t, err)
	require.NoError(t, h.store.UpdateDiscussionSummary(ctx, id, `{"overview":"existing"}`))

	h.fetcher.pages[url] = textPage(url, strings.Repeat("y", 900))
	h.llm.discussion = "" // enrichment failed after retries

	require.NoError(t, h.orch.FetchDiscussionDetail(ctx, id))

	d, err := h.store.GetDiscussion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `{"overview":"existing"}`, d.Summary)
}

func TestFetchDiscussionDetail_Missing(t *testing.T) {
	h := newHarness(t)
	err := h.orch.FetchDiscussionDetail(context.Background(), 999)
	assert.Error(t, err)
}

func TestEnrich(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")

	h.llm.metric = "RMSE"
	h.llm.metricDesc = "Root mean squared error, penalizing large misses."
	h.llm.summary = `{"overview":"x","objective":"y","data":"z","evaluation":{},"business_value":"v","key_challenges":[]}`
	h.llm.tags = llm.TagResult{
		DataTypes: []string{"tabular"},
		Tags:      []string{"regression", "code-competition", "ensembling"},
		Domain:    "finance",
	}

	require.NoError(t, h.orch.Enrich(ctx, "comp", false))

	comp, err := h.store.GetCompetition(ctx, "comp")
	require.NoError(t, err)
	assert.Equal(t, "RMSE", comp.Metric)
	assert.NotEmpty(t, comp.MetricDescription)
	assert.NotEmpty(t, comp.Summary)
	assert.Equal(t, []string{"tabular"}, comp.DataTypes)
	assert.Equal(t, []string{"regression"}, comp.TaskTypes)
	assert.Equal(t, []string{"code-competition"}, comp.CompetitionFeatures)
	assert.Equal(t, []string{"ensembling"}, comp.Tags)
	assert.Equal(t, "finance", comp.Domain)

	// Re-running generates nothing new: every field is already populated.
	h.llm.ops = nil
	require.NoError(t, h.orch.Enrich(ctx, "comp", false))
	assert.Empty(t, h.llm.ops)
}

func TestEnrich_NoDescriptionSkips(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.store.UpsertCompetition(ctx, &model.Competition{
		ID: "bare", Title: "Bare", URL: "u",
	})
	require.NoError(t, err)

	require.NoError(t, h.orch.Enrich(ctx, "bare", false))
	assert.Empty(t, h.llm.ops)
}

func TestEnrich_WithDataset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")

	dataURL := "https://www.kaggle.com/competitions/comp/data"
	h.fetcher.pages[dataURL] = textPage(dataURL, "train.csv test.csv sample_submission.csv")
	h.llm.datasetInfo = `{"files":["train.csv"],"description":"tabular data"}`

	require.NoError(t, h.orch.Enrich(ctx, "comp", true))

	comp, err := h.store.GetCompetition(ctx, "comp")
	require.NoError(t, err)
	assert.Equal(t, h.llm.datasetInfo, comp.DatasetInfo)
}

func TestFetchSolutionDetail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")

	url := "https://www.kaggle.com/competitions/comp/discussion/9"
	rank := 1
	id, _, err := h.store.UpsertSolution(ctx, &model.Solution{
		CompetitionID: "comp", Title: "1st Place Solution", URL: url,
		Type: model.SolutionTypeDiscussion, Medal: model.MedalGold, Rank: &rank,
	})
	require.NoError(t, err)

	h.fetcher.pages[url] = textPage(url, strings.Repeat("z", 2000))
	h.llm.solution = `{"overview":"o","approach":"a"}`
	h.llm.techniques = `[{"name":"stacking","english":"stacking","description":"d"}]`

	require.NoError(t, h.orch.FetchSolutionDetail(ctx, id))

	sol, err := h.store.GetSolution(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, h.llm.solution, sol.Summary)
	assert.JSONEq(t, h.llm.techniques, sol.Techniques)

	content, ok := h.orch.SolutionContent(ctx, id)
	require.True(t, ok)
	assert.Len(t, content.Body, 2000)
}

const notebookListHTML = `
<ul>
  <li class="MuiListItem-root">
    <a href="/code/ada/winning-notebook">Winning notebook</a>
    <a aria-label="ada's profile" href="/ada"></a>
    <span aria-label="200 votes">200</span>
  </li>
  <li class="MuiListItem-root">
    <a href="/code/bob/eda-notebook">EDA notebook</a>
    <a aria-label="bob's profile" href="/bob"></a>
    <span aria-label="80 votes">80</span>
  </li>
</ul>`

func TestFetchNotebooks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")
	h.fetcher.pages["https://www.kaggle.com/competitions/comp/code?page=1"] =
		htmlPage("", notebookListHTML)

	counters, err := h.orch.FetchNotebooks(ctx, "comp", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, counters.Saved)
	assert.Equal(t, 2, counters.Total)

	notebooks, err := h.store.ListSolutions(ctx, "comp", model.SolutionTypeNotebook, "vote_count", "desc", 0)
	require.NoError(t, err)
	require.Len(t, notebooks, 2)
	assert.Equal(t, "Winning notebook", notebooks[0].Title)
}

func TestSummarizeNotebook(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")

	url := "https://www.kaggle.com/code/ada/winning-notebook"
	id, _, err := h.store.UpsertSolution(ctx, &model.Solution{
		CompetitionID: "comp", Title: "Winning notebook", URL: url,
		Type: model.SolutionTypeNotebook,
	})
	require.NoError(t, err)

	h.fetcher.pages[url] = textPage(url, strings.Repeat("n", 800))
	h.llm.notebook = `{"purpose":"p","processing_steps":["s1"]}`

	require.NoError(t, h.orch.SummarizeNotebook(ctx, id))

	sol, err := h.store.GetSolution(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, h.llm.notebook, sol.Summary)

	// Already summarized: second call is a no-op without LLM traffic.
	h.llm.ops = nil
	require.NoError(t, h.orch.SummarizeNotebook(ctx, id))
	assert.Empty(t, h.llm.ops)
}

func TestSummarizeNotebook_WrongType(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCompetition(t, "comp")

	id, _, err := h.store.UpsertSolution(ctx, &model.Solution{
		CompetitionID: "comp", Title: "write-up", URL: "u",
		Type: model.SolutionTypeDiscussion,
	})
	require.NoError(t, err)

	assert.Error(t, h.orch.SummarizeNotebook(ctx, id))
}

const listingHTML = `
<div>
  <a href="/competitions/spaceship-titanic">Spaceship Titanic</a>
  <a href="/competitions/digit-recognizer">Digit Recognizer</a>
  <a href="/competitions/spaceship-titanic?sort=prize">dup</a>
</div>`

func TestDiscover(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.fetcher.pages["https://www.kaggle.com/competitions?listOption=completed&sortOption=newest"] =
		htmlPage("", listingHTML)
	for _, slug := range []string{"spaceship-titanic", "digit-recognizer"} {
		url := "https://www.kaggle.com/competitions/" + slug
		h.fetcher.pages[url] = textPage(url, metaPageText)
	}

	added, err := h.orch.Discover(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"spaceship-titanic", "digit-recognizer"}, added)

	// A second discovery pass finds nothing new.
	added, err = h.orch.Discover(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestInvalidateCompetition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.cache.Set(ctx, pageKey("comp", "discussion", 1), "html", time.Hour)
	h.cache.Set(ctx, metaKey("comp"), "text", time.Hour)
	h.cache.Set(ctx, pageKey("other", "discussion", 1), "html", time.Hour)

	n := h.orch.InvalidateCompetition(ctx, "comp")
	assert.Equal(t, 2, n)

	_, ok := h.cache.Get(ctx, pageKey("other", "discussion", 1))
	assert.True(t, ok)
}
