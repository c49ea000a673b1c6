package ingest

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/compass-ml/compkb/internal/parse"
)

// Discover walks the completed-competitions listing and ingests metadata for
// every competition the catalog has not seen yet. Returns the new IDs.
func (o *Orchestrator) Discover(ctx context.Context, pages int) ([]string, error) {
	if pages <= 0 {
		pages = 1
	}

	var added []string
	for page := 1; page <= pages; page++ {
		p, err := o.fetcher.FetchPage(ctx, o.listingURL(page))
		if err != nil {
			return added, eris.Wrapf(err, "ingest: fetch listing page %d", page)
		}
		if p.NotFound() {
			break
		}

		slugs, err := parse.ParseCompetitionSlugs(p.HTML)
		if err != nil {
			return added, eris.Wrap(err, "ingest: parse listing")
		}
		if len(slugs) == 0 {
			break
		}

		for _, slug := range slugs {
			existing, err := o.store.GetCompetition(ctx, slug)
			if err != nil {
				return added, err
			}
			if existing != nil {
				continue
			}
			comp, err := o.IngestMetadata(ctx, slug)
			if err != nil {
				zap.L().Warn("discovered competition skipped",
					zap.String("competition", slug), zap.Error(err))
				continue
			}
			if comp != nil {
				added = append(added, slug)
			}
		}
	}

	zap.L().Info("discovery finished", zap.Int("new_competitions", len(added)))
	return added, nil
}

func (o *Orchestrator) listingURL(page int) string {
	url := o.baseURL + "/competitions?listOption=completed&sortOption=newest"
	if page > 1 {
		url += "&page=" + strconv.Itoa(page)
	}
	return url
}

// IngestBatch runs metadata ingestion and discussion ingestion for many
// competitions in parallel. Each worker owns its own fetcher, since a browser
// must never be shared; the per-fetcher rate limiter keeps each worker at
// the polite-scrape floor.
func (o *Orchestrator) IngestBatch(ctx context.Context, compIDs []string, workers int, newFetcher func() PageFetcher) error {
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, compID := range compIDs {
		g.Go(func() error {
			f := newFetcher()
			defer f.Close()
			worker := o.WithFetcher(f)

			comp, err := worker.IngestMetadata(ctx, compID)
			if err != nil {
				// One broken competition does not abort the batch.
				zap.L().Error("batch metadata failed",
					zap.String("competition", compID), zap.Error(err))
				return nil
			}
			if comp == nil {
				return nil
			}
			if _, err := worker.IngestDiscussions(ctx, compID, 0); err != nil {
				zap.L().Error("batch discussions failed",
					zap.String("competition", compID), zap.Error(err))
			}
			return ctx.Err()
		})
	}
	return eris.Wrap(g.Wait(), "ingest: batch")
}
