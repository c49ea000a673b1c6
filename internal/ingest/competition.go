package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/compass-ml/compkb/internal/model"
	"github.com/compass-ml/compkb/internal/parse"
	"github.com/compass-ml/compkb/internal/store"
)

// IngestMetadata fetches the competition overview page and upserts the base
// row. Returns nil without error when the competition does not exist on the
// platform. A fresh meta cache entry short-circuits the fetch entirely.
func (o *Orchestrator) IngestMetadata(ctx context.Context, compID string) (*model.Competition, error) {
	if _, ok := o.cache.Get(ctx, metaKey(compID)); ok {
		comp, err := o.store.GetCompetition(ctx, compID)
		if err != nil {
			return nil, err
		}
		if comp != nil {
			zap.L().Debug("metadata cache hit", zap.String("competition", compID))
			return comp, nil
		}
		// Cache without a row means the catalog was wiped; fall through.
	}

	page, err := o.fetcher.FetchPage(ctx, o.competitionURL(compID))
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: fetch competition %s", compID)
	}
	if page.NotFound() {
		zap.L().Warn("competition not found on platform", zap.String("competition", compID))
		return nil, nil
	}

	meta := parse.ParseCompetitionText(page.Text)
	now := time.Now()

	comp := &model.Competition{
		ID:          compID,
		Title:       meta.Title,
		URL:         o.competitionURL(compID),
		StartDate:   meta.StartDate,
		EndDate:     meta.EndDate,
		Status:      model.ComputeStatus(meta.EndDate, now),
		Description: meta.Description,
	}
	if comp.Title == "" {
		comp.Title = compID
	}

	created, err := o.store.UpsertCompetition(ctx, comp)
	if err != nil {
		return nil, err
	}
	o.cache.Set(ctx, metaKey(compID), page.Text, o.pageTTL)

	zap.L().Info("competition metadata ingested",
		zap.String("competition", compID),
		zap.Bool("created", created),
		zap.String("status", string(comp.Status)))
	return o.store.GetCompetition(ctx, compID)
}

// Enrich runs the LLM pipeline over one competition. Each field is generated
// only when empty, so re-running is cheap and never destroys earlier output.
// Competitions without a description are skipped.
func (o *Orchestrator) Enrich(ctx context.Context, compID string, withDataset bool) error {
	comp, err := o.store.GetCompetition(ctx, compID)
	if err != nil {
		return err
	}
	if comp == nil {
		return eris.Errorf("ingest: competition not found: %s", compID)
	}
	if comp.Description == "" {
		zap.L().Info("enrich skipped, no description", zap.String("competition", compID))
		return nil
	}

	var u store.EnrichmentUpdate

	metric := comp.Metric
	if metric == "" {
		metric = o.llm.ExtractMetric(ctx, comp.Description, comp.Title)
		u.Metric = metric
	}
	if comp.MetricDescription == "" && metric != "" {
		u.MetricDescription = o.llm.DescribeMetric(ctx, metric, comp.Description, comp.Title)
	}
	if comp.Summary == "" {
		u.Summary = o.llm.GenerateSummary(ctx, comp.Description, comp.Title, metric)
	}

	if len(comp.Tags) == 0 && len(comp.DataTypes) == 0 {
		taxonomy, err := o.store.Taxonomy(ctx)
		if err != nil {
			return err
		}
		tags := o.llm.GenerateTags(ctx, comp.Description, comp.Title, metric, taxonomy)
		u.DataTypes = tags.DataTypes
		u.Domain = tags.Domain
		for _, tag := range tags.Tags {
			switch {
			case taxonomy.ContainsIn(model.TagTaskType, tag):
				u.TaskTypes = append(u.TaskTypes, tag)
			case taxonomy.ContainsIn(model.TagCompetitionFeature, tag):
				u.CompetitionFeatures = append(u.CompetitionFeatures, tag)
			default:
				u.Tags = append(u.Tags, tag)
			}
		}
	}

	if withDataset && comp.DatasetInfo == "" {
		dataText, err := o.fetchDataTab(ctx, compID)
		if err != nil {
			// Acquisition failure skips the dataset field, not the whole
			// enrichment.
			zap.L().Warn("data tab fetch failed",
				zap.String("competition", compID), zap.Error(err))
		} else if dataText != "" {
			u.DatasetInfo = o.llm.ExtractDatasetInfo(ctx, dataText, comp.Title)
		}
	}

	return o.store.UpdateEnrichment(ctx, compID, u)
}

// fetchDataTab returns the rendered text of the competition's data tab.
func (o *Orchestrator) fetchDataTab(ctx context.Context, compID string) (string, error) {
	key := pageKey(compID, "data", 1)
	if text, ok := o.cache.Get(ctx, key); ok {
		return text, nil
	}
	page, err := o.fetcher.FetchPage(ctx, o.competitionURL(compID)+"/data")
	if err != nil {
		return "", err
	}
	if page.NotFound() {
		return "", nil
	}
	o.cache.Set(ctx, key, page.Text, o.pageTTL)
	return page.Text, nil
}
