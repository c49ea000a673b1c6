package ingest

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/compass-ml/compkb/internal/classify"
	"github.com/compass-ml/compkb/internal/model"
	"github.com/compass-ml/compkb/internal/parse"
)

// discussionTabs are the two list surfaces a competition's threads live on.
// Items from the write-up tab are promoted to solutions unconditionally.
var discussionTabs = []string{"discussion", "writeups"}

// IngestDiscussions walks the discussion and write-up tabs, persists every
// unpinned thread, and promotes qualifying items to solutions. Returns
// per-collection counters.
func (o *Orchestrator) IngestDiscussions(ctx context.Context, compID string, pages int) (map[string]model.Counters, error) {
	if pages <= 0 {
		pages = 3
	}
	runID, err := o.store.StartIngestRun(ctx, compID, "ingest-discussions")
	if err != nil {
		return nil, err
	}

	items, err := o.collectListItems(ctx, compID, pages)
	if err != nil {
		o.finishRun(ctx, runID, "failed", nil)
		return nil, err
	}

	counters := map[string]model.Counters{
		"discussions": {},
		"solutions":   {},
	}
	for _, item := range items {
		dc := counters["discussions"]
		sc := counters["solutions"]

		d := &model.Discussion{
			CompetitionID: compID,
			Title:         item.Title,
			URL:           item.URL,
			Author:        item.Author,
			AuthorTier:    item.AuthorTier,
			TierColor:     item.TierColor,
			VoteCount:     item.VoteCount,
			CommentCount:  item.CommentCount,
			Category:      item.Category,
		}
		_, created, err := o.store.UpsertDiscussion(ctx, d)
		if err != nil {
			// Fatal for this item; the batch continues.
			zap.L().Error("discussion upsert failed",
				zap.String("url", item.URL), zap.Error(err))
			continue
		}
		dc.Total++
		if created {
			dc.Saved++
		} else {
			dc.Updated++
		}

		if verdict := classify.Classify(item); verdict.IsSolution {
			sol := &model.Solution{
				CompetitionID: compID,
				Title:         item.Title,
				URL:           item.URL,
				Author:        item.Author,
				AuthorTier:    item.AuthorTier,
				TierColor:     item.TierColor,
				VoteCount:     item.VoteCount,
				CommentCount:  item.CommentCount,
				Type:          verdict.Type,
				Medal:         verdict.Medal,
				Rank:          verdict.Rank,
			}
			_, created, err := o.store.UpsertSolution(ctx, sol)
			if err != nil {
				zap.L().Error("solution upsert failed",
					zap.String("url", item.URL), zap.Error(err))
			} else {
				sc.Total++
				if created {
					sc.Saved++
				} else {
					sc.Updated++
				}
			}
		}

		counters["discussions"] = dc
		counters["solutions"] = sc
	}

	o.finishRun(ctx, runID, "complete", counters)
	zap.L().Info("discussions ingested",
		zap.String("competition", compID),
		zap.Int("discussions", counters["discussions"].Total),
		zap.Int("solutions", counters["solutions"].Total))
	return counters, nil
}

// collectListItems enumerates both tabs, drops pinned items, deduplicates by
// URL across tabs, and orders by votes descending.
func (o *Orchestrator) collectListItems(ctx context.Context, compID string, pages int) ([]model.ListItem, error) {
	seen := make(map[string]bool)
	var items []model.ListItem

	for _, tab := range discussionTabs {
		for page := 1; page <= pages; page++ {
			html, err := o.fetchTab(ctx, compID, tab, page)
			if err != nil {
				// One unreadable tab page skips that page only.
				zap.L().Warn("tab fetch failed",
					zap.String("competition", compID),
					zap.String("tab", tab),
					zap.Int("page", page),
					zap.Error(err))
				continue
			}
			if html == "" {
				break // tab absent or past the last page
			}

			parsed, err := parse.ParseList(html, o.baseURL)
			if err != nil {
				return nil, eris.Wrapf(err, "ingest: parse %s tab", tab)
			}
			if len(parsed) == 0 {
				break
			}
			for _, item := range parsed {
				if item.IsPinned || seen[item.URL] {
					continue
				}
				if tab == "writeups" {
					item.Category = model.CategoryWriteup
				}
				seen[item.URL] = true
				items = append(items, item)
			}
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].VoteCount > items[j].VoteCount
	})
	return items, nil
}

// FetchDiscussionDetail renders one thread, caches its body, and generates
// the structured summary plus the organized translation. The body itself is
// never written to the catalog; it lives in the cache for its content TTL.
func (o *Orchestrator) FetchDiscussionDetail(ctx context.Context, id int64) error {
	d, err := o.store.GetDiscussion(ctx, id)
	if err != nil {
		return err
	}
	if d == nil {
		return eris.Errorf("ingest: discussion not found: %d", id)
	}

	body, ok := o.cache.Get(ctx, discussionContentKey(id))
	if !ok {
		page, err := o.fetcher.FetchPage(ctx, d.URL)
		if err != nil {
			return eris.Wrapf(err, "ingest: fetch discussion %d", id)
		}
		if page.NotFound() {
			return eris.Errorf("ingest: discussion page gone: %s", d.URL)
		}
		body = page.Text
		o.cache.Set(ctx, discussionContentKey(id), body, o.contentTTL)
	}

	if len(body) <= summaryThreshold {
		zap.L().Debug("discussion body too short to summarize",
			zap.Int64("id", id), zap.Int("length", len(body)))
		return nil
	}

	if d.Summary == "" {
		if summary := o.llm.SummarizeDiscussion(ctx, body, d.Title); summary != "" {
			if err := o.store.UpdateDiscussionSummary(ctx, id, summary); err != nil {
				return err
			}
		}
	}

	translatedKey := discussionContentKey(id) + ":translated"
	if _, ok := o.cache.Get(ctx, translatedKey); !ok {
		if translated := o.llm.TranslateAndOrganize(ctx, body); translated != "" {
			o.cache.Set(ctx, translatedKey, translated, o.contentTTL)
		}
	}
	return nil
}

// Content is a cached topic body with its organized translation.
type Content struct {
	Body       string `json:"body"`
	Translated string `json:"translated,omitempty"`
	TTLDays    int    `json:"ttl_days"`
}

// DiscussionContent serves the cached body and translation for a thread.
// A miss means the detail fetch has not run or the cache expired.
func (o *Orchestrator) DiscussionContent(ctx context.Context, id int64) (*Content, bool) {
	body, ok := o.cache.Get(ctx, discussionContentKey(id))
	if !ok {
		return nil, false
	}
	translated, _ := o.cache.Get(ctx, discussionContentKey(id)+":translated")
	return &Content{
		Body:       body,
		Translated: translated,
		TTLDays:    int(o.contentTTL.Hours() / 24),
	}, true
}

func (o *Orchestrator) finishRun(ctx context.Context, runID, status string, counters map[string]model.Counters) {
	if err := o.store.FinishIngestRun(ctx, runID, status, counters); err != nil {
		zap.L().Warn("ingest run record not closed", zap.String("run", runID), zap.Error(err))
	}
}
