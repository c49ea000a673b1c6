package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/compass-ml/compkb/internal/model"
	"github.com/compass-ml/compkb/internal/parse"
)

// FetchSolutionDetail renders one solution write-up, caches its body, and
// generates the structured summary plus the technique list.
func (o *Orchestrator) FetchSolutionDetail(ctx context.Context, id int64) error {
	sol, err := o.store.GetSolution(ctx, id)
	if err != nil {
		return err
	}
	if sol == nil {
		return eris.Errorf("ingest: solution not found: %d", id)
	}

	body, ok := o.cache.Get(ctx, solutionContentKey(id))
	if !ok {
		page, err := o.fetcher.FetchPage(ctx, sol.URL)
		if err != nil {
			return eris.Wrapf(err, "ingest: fetch solution %d", id)
		}
		if page.NotFound() {
			return eris.Errorf("ingest: solution page gone: %s", sol.URL)
		}
		body = page.Text
		o.cache.Set(ctx, solutionContentKey(id), body, o.contentTTL)

		if detail, err := parse.ParseDetail(page.Text, page.HTML, o.baseURL); err == nil {
			logLinkInventory(id, detail)
		}
	}

	if len(body) <= summaryThreshold {
		zap.L().Debug("solution body too short to summarize",
			zap.Int64("id", id), zap.Int("length", len(body)))
		return nil
	}

	summary := sol.Summary
	if summary == "" {
		summary = o.llm.SummarizeSolution(ctx, body, sol.Title)
	}
	techniques := sol.Techniques
	if techniques == "" {
		techniques = o.llm.ExtractTechniques(ctx, body, sol.Title)
	}
	return o.store.UpdateSolutionEnrichment(ctx, id, summary, techniques)
}

// SolutionContent serves the cached body for a solution write-up.
func (o *Orchestrator) SolutionContent(ctx context.Context, id int64) (*Content, bool) {
	body, ok := o.cache.Get(ctx, solutionContentKey(id))
	if !ok {
		return nil, false
	}
	return &Content{
		Body:    body,
		TTLDays: int(o.contentTTL.Hours() / 24),
	}, true
}

// FetchSolutions re-runs list ingestion to refresh the promoted solution set
// and, when enableAI is set, renders and enriches every solution still
// missing a summary. The ai_analyzed counter reports how many were enriched.
func (o *Orchestrator) FetchSolutions(ctx context.Context, compID string, enableAI bool) (map[string]model.Counters, error) {
	counters, err := o.IngestDiscussions(ctx, compID, 0)
	if err != nil {
		return nil, err
	}
	if !enableAI {
		return counters, nil
	}

	solutions, err := o.store.ListSolutions(ctx, compID, model.SolutionTypeDiscussion, "rank", "asc", 0)
	if err != nil {
		return nil, err
	}
	sc := counters["solutions"]
	for _, sol := range solutions {
		if sol.Summary != "" {
			continue
		}
		if err := o.FetchSolutionDetail(ctx, sol.ID); err != nil {
			// Acquisition failure skips the solution, the batch goes on.
			zap.L().Warn("solution enrichment skipped",
				zap.Int64("id", sol.ID), zap.Error(err))
			continue
		}
		sc.AIAnalyzed++
	}
	counters["solutions"] = sc
	return counters, nil
}

// FetchNotebooks walks the competition's code tab and persists each entry as
// a notebook-typed solution. Summaries are generated on demand per notebook,
// not here.
func (o *Orchestrator) FetchNotebooks(ctx context.Context, compID string, pages int) (model.Counters, error) {
	if pages <= 0 {
		pages = 1
	}
	runID, err := o.store.StartIngestRun(ctx, compID, "fetch-notebooks")
	if err != nil {
		return model.Counters{}, err
	}

	var counters model.Counters
	for page := 1; page <= pages; page++ {
		html, err := o.fetchTab(ctx, compID, "code", page)
		if err != nil {
			o.finishRun(ctx, runID, "failed", nil)
			return counters, eris.Wrapf(err, "ingest: fetch code tab %s", compID)
		}
		if html == "" {
			break
		}

		items, err := parse.ParseList(html, o.baseURL)
		if err != nil {
			o.finishRun(ctx, runID, "failed", nil)
			return counters, eris.Wrap(err, "ingest: parse code tab")
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			if item.IsPinned {
				continue
			}
			sol := &model.Solution{
				CompetitionID: compID,
				Title:         item.Title,
				URL:           item.URL,
				Author:        item.Author,
				AuthorTier:    item.AuthorTier,
				TierColor:     item.TierColor,
				VoteCount:     item.VoteCount,
				CommentCount:  item.CommentCount,
				Type:          model.SolutionTypeNotebook,
			}
			_, created, err := o.store.UpsertSolution(ctx, sol)
			if err != nil {
				zap.L().Error("notebook upsert failed",
					zap.String("url", item.URL), zap.Error(err))
				continue
			}
			counters.Total++
			if created {
				counters.Saved++
			} else {
				counters.Updated++
			}
		}
	}

	o.finishRun(ctx, runID, "complete", map[string]model.Counters{"notebooks": counters})
	zap.L().Info("notebooks ingested",
		zap.String("competition", compID),
		zap.Int("total", counters.Total))
	return counters, nil
}

// SummarizeNotebook renders one notebook and generates its didactic summary.
func (o *Orchestrator) SummarizeNotebook(ctx context.Context, id int64) error {
	sol, err := o.store.GetSolution(ctx, id)
	if err != nil {
		return err
	}
	if sol == nil {
		return eris.Errorf("ingest: notebook not found: %d", id)
	}
	if sol.Type != model.SolutionTypeNotebook {
		return eris.Errorf("ingest: solution %d is not a notebook", id)
	}
	if sol.Summary != "" {
		return nil
	}

	body, ok := o.cache.Get(ctx, solutionContentKey(id))
	if !ok {
		page, err := o.fetcher.FetchPage(ctx, sol.URL)
		if err != nil {
			return eris.Wrapf(err, "ingest: fetch notebook %d", id)
		}
		if page.NotFound() {
			return eris.Errorf("ingest: notebook page gone: %s", sol.URL)
		}
		body = page.Text
		o.cache.Set(ctx, solutionContentKey(id), body, o.contentTTL)
	}

	if len(body) <= summaryThreshold {
		return nil
	}
	summary := o.llm.SummarizeNotebook(ctx, body, sol.Title)
	return o.store.UpdateSolutionEnrichment(ctx, id, summary, "")
}

func logLinkInventory(id int64, detail *parse.Detail) {
	links := detail.Links
	if len(links.Notebooks)+len(links.GitHub)+len(links.Other) == 0 {
		return
	}
	zap.L().Debug("solution link inventory",
		zap.Int64("id", id),
		zap.Strings("notebooks", links.Notebooks),
		zap.Strings("github", links.GitHub),
		zap.Strings("other", links.Other))
}
