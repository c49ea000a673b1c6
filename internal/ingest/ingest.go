// Package ingest is the enrichment orchestrator: it composes the cache, the
// browser fetcher, the parsers, the classifier, the LLM gateway, and the
// catalog store into idempotent per-competition operations. Every operation
// is safe to re-run; upserts and populated-field checks absorb repeats.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/compass-ml/compkb/internal/browser"
	"github.com/compass-ml/compkb/internal/cache"
	"github.com/compass-ml/compkb/internal/llm"
	"github.com/compass-ml/compkb/internal/model"
	"github.com/compass-ml/compkb/internal/store"
)

// summaryThreshold is the minimum body length worth sending to the LLM.
// Shorter bodies are stub pages or parse residue.
const summaryThreshold = 200

// PageFetcher is the browser surface the orchestrator needs. One fetcher
// drives one browser and must not be shared across workers.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*browser.Page, error)
	Close()
}

// Enricher is the LLM surface the orchestrator needs. Implemented by
// llm.Gateway; tests substitute a fake.
type Enricher interface {
	ExtractMetric(ctx context.Context, desc, title string) string
	DescribeMetric(ctx context.Context, metric, desc, title string) string
	GenerateSummary(ctx context.Context, desc, title, metric string) string
	GenerateTags(ctx context.Context, desc, title, metric string, taxonomy model.Taxonomy) llm.TagResult
	ExtractDatasetInfo(ctx context.Context, dataText, title string) string
	SummarizeDiscussion(ctx context.Context, content, title string) string
	TranslateAndOrganize(ctx context.Context, content string) string
	SummarizeSolution(ctx context.Context, content, title string) string
	ExtractTechniques(ctx context.Context, content, title string) string
	SummarizeNotebook(ctx context.Context, content, title string) string
}

// Options wires an Orchestrator.
type Options struct {
	Cache   *cache.Cache
	Fetcher PageFetcher
	LLM     Enricher
	Store   *store.Store
	// BaseURL is the platform root, default https://www.kaggle.com.
	BaseURL string
	// PageTTL caches list and tab pages; default 1 day.
	PageTTL time.Duration
	// ContentTTL caches rendered topic bodies; default 3 days.
	ContentTTL time.Duration
}

// Orchestrator runs the ingestion and enrichment operations.
type Orchestrator struct {
	cache      *cache.Cache
	fetcher    PageFetcher
	llm        Enricher
	store      *store.Store
	baseURL    string
	pageTTL    time.Duration
	contentTTL time.Duration
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.kaggle.com"
	}
	if opts.PageTTL <= 0 {
		opts.PageTTL = 24 * time.Hour
	}
	if opts.ContentTTL <= 0 {
		opts.ContentTTL = 3 * 24 * time.Hour
	}
	return &Orchestrator{
		cache:      opts.Cache,
		fetcher:    opts.Fetcher,
		llm:        opts.LLM,
		store:      opts.Store,
		baseURL:    opts.BaseURL,
		pageTTL:    opts.PageTTL,
		contentTTL: opts.ContentTTL,
	}
}

// WithFetcher returns a copy bound to a different fetcher. Batch ingestion
// uses this to give each worker its own browser.
func (o *Orchestrator) WithFetcher(f PageFetcher) *Orchestrator {
	clone := *o
	clone.fetcher = f
	return &clone
}

// cache keys

func metaKey(compID string) string {
	return "meta:" + compID
}

func pageKey(compID, tab string, page int) string {
	return fmt.Sprintf("page:%s:%s:%d", compID, tab, page)
}

func discussionContentKey(id int64) string {
	return fmt.Sprintf("content:discussion:%d", id)
}

func solutionContentKey(id int64) string {
	return fmt.Sprintf("content:solution:%d", id)
}

// URL builders

func (o *Orchestrator) competitionURL(compID string) string {
	return o.baseURL + "/competitions/" + compID
}

func (o *Orchestrator) tabURL(compID, tab string, page int) string {
	url := fmt.Sprintf("%s/competitions/%s/%s", o.baseURL, compID, tab)
	switch tab {
	case "discussion":
		url += fmt.Sprintf("?sort=votes&page=%d", page)
	default:
		url += fmt.Sprintf("?page=%d", page)
	}
	return url
}

// fetchTab returns the rendered tab page, served from cache when fresh. The
// cached value is the container HTML; text-only consumers re-fetch.
func (o *Orchestrator) fetchTab(ctx context.Context, compID, tab string, page int) (string, error) {
	key := pageKey(compID, tab, page)
	if html, ok := o.cache.Get(ctx, key); ok {
		return html, nil
	}

	p, err := o.fetcher.FetchPage(ctx, o.tabURL(compID, tab, page))
	if err != nil {
		return "", err
	}
	if p.NotFound() {
		return "", nil
	}
	o.cache.Set(ctx, key, p.HTML, o.pageTTL)
	return p.HTML, nil
}

// InvalidateCompetition drops every cached page for a competition, forcing
// the next ingest to hit the live site.
func (o *Orchestrator) InvalidateCompetition(ctx context.Context, compID string) int {
	n := o.cache.DeletePrefix(ctx, "page:"+compID+":")
	n += o.cache.DeletePrefix(ctx, metaKey(compID))
	if n > 0 {
		zap.L().Info("competition cache invalidated",
			zap.String("competition", compID),
			zap.Int("entries", n))
	}
	return n
}
