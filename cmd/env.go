package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/compass-ml/compkb/internal/browser"
	"github.com/compass-ml/compkb/internal/cache"
	"github.com/compass-ml/compkb/internal/ingest"
	"github.com/compass-ml/compkb/internal/llm"
	"github.com/compass-ml/compkb/internal/store"
	"github.com/compass-ml/compkb/pkg/anthropic"
)

// env bundles the wired collaborators every command needs.
type env struct {
	Store   *store.Store
	Cache   *cache.Cache
	Fetcher *browser.Fetcher
	Orch    *ingest.Orchestrator
}

// initEnv opens the catalog and cache, builds the fetcher and LLM gateway,
// and wires the orchestrator.
func initEnv(ctx context.Context) (*env, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	c := cache.Open(cfg.Cache.Path)

	fetcher := browser.New(browser.Options{
		Headless: cfg.Scraper.Headless,
		Delay:    cfg.Scraper.Delay(),
		Timeout:  cfg.Scraper.Timeout(),
	})

	if cfg.LLM.Key == "" {
		st.Close()
		c.Close()
		return nil, eris.New("llm key not configured, set COMPKB_LLM_KEY")
	}
	gateway, err := llm.New(anthropic.NewClient(cfg.LLM.Key), llm.Options{
		Model:       cfg.LLM.Model,
		MaxRetries:  cfg.LLM.MaxRetries,
		RetryDelay:  cfg.LLM.RetryDelay(),
		PromptsPath: cfg.LLM.PromptsPath,
	})
	if err != nil {
		st.Close()
		c.Close()
		return nil, err
	}

	orch := ingest.New(ingest.Options{
		Cache:      c,
		Fetcher:    fetcher,
		LLM:        gateway,
		Store:      st,
		BaseURL:    cfg.Scraper.BaseURL,
		PageTTL:    cfg.Cache.PageTTL(),
		ContentTTL: cfg.Cache.ContentTTL(),
	})

	return &env{Store: st, Cache: c, Fetcher: fetcher, Orch: orch}, nil
}

// newFetcher builds an extra fetcher for a batch worker.
func (e *env) newFetcher() ingest.PageFetcher {
	return browser.New(browser.Options{
		Headless: cfg.Scraper.Headless,
		Delay:    cfg.Scraper.Delay(),
		Timeout:  cfg.Scraper.Timeout(),
	})
}

func (e *env) Close() {
	e.Fetcher.Close()
	e.Cache.Close()
	e.Store.Close()
}
