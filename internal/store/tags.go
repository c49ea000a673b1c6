package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/compass-ml/compkb/internal/model"
)

// seedTaxonomy is the closed tag set inserted at migration. The classifier
// and the tag generator only ever emit values from this set.
var seedTaxonomy = []model.Tag{
	{Name: "tabular", Category: model.TagDataType, DisplayOrder: 1},
	{Name: "image", Category: model.TagDataType, DisplayOrder: 2},
	{Name: "text", Category: model.TagDataType, DisplayOrder: 3},
	{Name: "audio", Category: model.TagDataType, DisplayOrder: 4},
	{Name: "video", Category: model.TagDataType, DisplayOrder: 5},
	{Name: "time-series", Category: model.TagDataType, DisplayOrder: 6},
	{Name: "geospatial", Category: model.TagDataType, DisplayOrder: 7},
	{Name: "graph", Category: model.TagDataType, DisplayOrder: 8},

	{Name: "classification", Category: model.TagTaskType, DisplayOrder: 1},
	{Name: "regression", Category: model.TagTaskType, DisplayOrder: 2},
	{Name: "segmentation", Category: model.TagTaskType, DisplayOrder: 3},
	{Name: "object-detection", Category: model.TagTaskType, DisplayOrder: 4},
	{Name: "forecasting", Category: model.TagTaskType, DisplayOrder: 5},
	{Name: "ranking", Category: model.TagTaskType, DisplayOrder: 6},
	{Name: "recommendation", Category: model.TagTaskType, DisplayOrder: 7},
	{Name: "generation", Category: model.TagTaskType, DisplayOrder: 8},
	{Name: "clustering", Category: model.TagTaskType, DisplayOrder: 9},

	{Name: "gradient-boosting", Category: model.TagModelType, DisplayOrder: 1},
	{Name: "neural-network", Category: model.TagModelType, DisplayOrder: 2},
	{Name: "transformer", Category: model.TagModelType, DisplayOrder: 3},
	{Name: "cnn", Category: model.TagModelType, DisplayOrder: 4},
	{Name: "llm", Category: model.TagModelType, DisplayOrder: 5},
	{Name: "linear-model", Category: model.TagModelType, DisplayOrder: 6},

	{Name: "ensembling", Category: model.TagSolutionMethod, DisplayOrder: 1},
	{Name: "stacking", Category: model.TagSolutionMethod, DisplayOrder: 2},
	{Name: "pseudo-labeling", Category: model.TagSolutionMethod, DisplayOrder: 3},
	{Name: "feature-engineering", Category: model.TagSolutionMethod, DisplayOrder: 4},
	{Name: "data-augmentation", Category: model.TagSolutionMethod, DisplayOrder: 5},
	{Name: "cross-validation", Category: model.TagSolutionMethod, DisplayOrder: 6},

	{Name: "code-competition", Category: model.TagCompetitionFeature, DisplayOrder: 1},
	{Name: "kernels-only", Category: model.TagCompetitionFeature, DisplayOrder: 2},
	{Name: "external-data-allowed", Category: model.TagCompetitionFeature, DisplayOrder: 3},
	{Name: "gpu-required", Category: model.TagCompetitionFeature, DisplayOrder: 4},
	{Name: "efficiency-prize", Category: model.TagCompetitionFeature, DisplayOrder: 5},
	{Name: "community-prediction", Category: model.TagCompetitionFeature, DisplayOrder: 6},

	{Name: "finance", Category: model.TagDomain, DisplayOrder: 1},
	{Name: "healthcare", Category: model.TagDomain, DisplayOrder: 2},
	{Name: "retail", Category: model.TagDomain, DisplayOrder: 3},
	{Name: "science", Category: model.TagDomain, DisplayOrder: 4},
	{Name: "nlp", Category: model.TagDomain, DisplayOrder: 5},
	{Name: "computer-vision", Category: model.TagDomain, DisplayOrder: 6},
	{Name: "gaming", Category: model.TagDomain, DisplayOrder: 7},
	{Name: "climate", Category: model.TagDomain, DisplayOrder: 8},
	{Name: "education", Category: model.TagDomain, DisplayOrder: 9},
}

func (s *Store) seedTags(ctx context.Context) error {
	for _, t := range seedTaxonomy {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tags (name, category, display_order) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET category = excluded.category, display_order = excluded.display_order`,
			t.Name, string(t.Category), t.DisplayOrder,
		)
		if err != nil {
			return eris.Wrapf(err, "store: seed tag %s", t.Name)
		}
	}
	return nil
}

// ListTags returns tags, optionally restricted to one category, in display
// order.
func (s *Store) ListTags(ctx context.Context, category model.TagCategory) ([]model.Tag, error) {
	query := `SELECT id, name, category, display_order FROM tags`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY category, display_order, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list tags")
	}
	defer rows.Close()

	out := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.DisplayOrder); err != nil {
			return nil, eris.Wrap(err, "store: scan tag")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "store: list tags iterate")
}

// Taxonomy loads the full tag set grouped by category, as handed to the tag
// generator.
func (s *Store) Taxonomy(ctx context.Context) (model.Taxonomy, error) {
	tags, err := s.ListTags(ctx, "")
	if err != nil {
		return nil, err
	}
	tx := model.Taxonomy{}
	for _, t := range tags {
		tx[t.Category] = append(tx[t.Category], t.Name)
	}
	return tx, nil
}
