package llm

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/compass-ml/compkb/internal/model"
)

// Per-task input character budgets.
const (
	metricBudget  = 4000
	descBudget    = 6000
	contentBudget = 8000
)

// metricMaxLen bounds an extracted metric name; longer answers are prose,
// not a metric.
const metricMaxLen = 30

// TagResult is the typed output of GenerateTags, already filtered against
// the supplied taxonomy.
type TagResult struct {
	DataTypes []string
	Tags      []string
	Domain    string
}

// Technique is one entry of an extracted technique list.
type Technique struct {
	Name        string `json:"name"`
	English     string `json:"english"`
	Description string `json:"description"`
}

// ExtractMetric names the competition's evaluation metric, or returns ""
// when the description does not state one.
func (g *Gateway) ExtractMetric(ctx context.Context, desc, title string) string {
	if desc == "" {
		return ""
	}
	out, ok := g.complete(ctx, "extract_metric",
		promptData{Title: title, Text: truncate(desc, metricBudget)}, 100,
		func(text string) (string, error) {
			if len(text) > metricMaxLen {
				return "", nil // prose answer, treat as "not stated"
			}
			return text, nil
		})
	if !ok {
		return ""
	}
	return out
}

// DescribeMetric produces a short explanation of the metric in context.
func (g *Gateway) DescribeMetric(ctx context.Context, metric, desc, title string) string {
	if metric == "" {
		return ""
	}
	out, _ := g.complete(ctx, "describe_metric",
		promptData{Title: title, Text: truncate(desc, metricBudget), Metric: metric}, 300,
		func(text string) (string, error) { return text, nil })
	return out
}

// GenerateSummary returns the structured competition summary as validated
// JSON text, or "" on failure.
func (g *Gateway) GenerateSummary(ctx context.Context, desc, title, metric string) string {
	if desc == "" {
		return ""
	}
	out, ok := g.complete(ctx, "generate_summary",
		promptData{Title: title, Text: truncate(desc, descBudget), Metric: metric}, 1000,
		func(text string) (string, error) {
			raw := cleanJSON(text)
			if _, err := validateObject(raw,
				"overview", "objective", "data", "evaluation", "business_value", "key_challenges"); err != nil {
				return "", err
			}
			return raw, nil
		})
	if !ok {
		return ""
	}
	return out
}

// GenerateTags classifies the competition against the closed taxonomy.
// Values outside the taxonomy are dropped, never stored.
func (g *Gateway) GenerateTags(ctx context.Context, desc, title, metric string, taxonomy model.Taxonomy) TagResult {
	if desc == "" && title == "" {
		return TagResult{}
	}
	taxonomyJSON, err := json.Marshal(taxonomy)
	if err != nil {
		return TagResult{}
	}

	var result TagResult
	_, ok := g.complete(ctx, "generate_tags",
		promptData{
			Title:    title,
			Text:     truncate(desc, descBudget),
			Metric:   metric,
			Taxonomy: string(taxonomyJSON),
		}, 500,
		func(text string) (string, error) {
			obj, err := validateObject(cleanJSON(text))
			if err != nil {
				return "", err
			}
			result = TagResult{
				DataTypes: stringSlice(obj["data_types"]),
				Tags:      stringSlice(obj["tags"]),
			}
			if domain, ok := obj["domain"].(string); ok {
				result.Domain = domain
			}
			return "", nil
		})
	if !ok {
		return TagResult{}
	}

	result.DataTypes = filterCategory(taxonomy, model.TagDataType, result.DataTypes)
	result.Tags = taxonomy.Filter(result.Tags)
	if !taxonomy.ContainsIn(model.TagDomain, result.Domain) {
		result.Domain = ""
	}
	return result
}

// filterCategory keeps only names present under the given category,
// order-preserving and deduplicated.
func filterCategory(tx model.Taxonomy, category model.TagCategory, names []string) []string {
	var out []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] || !tx.ContainsIn(category, n) {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ExtractDatasetInfo derives the dataset structure from the data tab text,
// returned as validated JSON with its list fields capped.
func (g *Gateway) ExtractDatasetInfo(ctx context.Context, dataText, title string) string {
	if dataText == "" {
		return ""
	}
	out, ok := g.complete(ctx, "extract_dataset_info",
		promptData{Title: title, Text: truncate(dataText, contentBudget)}, 1500,
		func(text string) (string, error) {
			obj, err := validateObject(cleanJSON(text), "files", "description")
			if err != nil {
				return "", err
			}
			capList(obj, "files", 10)
			capList(obj, "features", 15)
			capList(obj, "columns", 20)
			capped, err := json.Marshal(obj)
			if err != nil {
				return "", eris.Wrap(err, "remarshal dataset info")
			}
			return string(capped), nil
		})
	if !ok {
		return ""
	}
	return out
}

// SummarizeDiscussion turns a thread body into structured study notes,
// returned as validated JSON text.
func (g *Gateway) SummarizeDiscussion(ctx context.Context, content, title string) string {
	if content == "" {
		return ""
	}
	out, ok := g.complete(ctx, "summarize_discussion",
		promptData{Title: title, Text: truncate(content, contentBudget)}, 2000,
		func(text string) (string, error) {
			raw := cleanJSON(text)
			if _, err := validateObject(raw, "overview", "main_topic", "key_points"); err != nil {
				return "", err
			}
			return raw, nil
		})
	if !ok {
		return ""
	}
	return out
}

// TranslateAndOrganize restructures a post into separator-delimited sections
// while preserving numbers, code, and identifiers verbatim.
func (g *Gateway) TranslateAndOrganize(ctx context.Context, content string) string {
	if content == "" {
		return ""
	}
	out, _ := g.complete(ctx, "translate_organize",
		promptData{Text: truncate(content, contentBudget)}, 4000,
		func(text string) (string, error) {
			if text == "" {
				return "", eris.New("empty output")
			}
			return text, nil
		})
	return out
}

// SummarizeSolution summarizes a solution write-up as validated JSON text.
func (g *Gateway) SummarizeSolution(ctx context.Context, content, title string) string {
	if content == "" {
		return ""
	}
	out, ok := g.complete(ctx, "summarize_solution",
		promptData{Title: title, Text: truncate(content, contentBudget)}, 2000,
		func(text string) (string, error) {
			raw := cleanJSON(text)
			if _, err := validateObject(raw, "overview", "approach"); err != nil {
				return "", err
			}
			return raw, nil
		})
	if !ok {
		return ""
	}
	return out
}

// ExtractTechniques returns the ranked technique list of a write-up as JSON
// array text, or "" when nothing valid could be extracted.
func (g *Gateway) ExtractTechniques(ctx context.Context, content, title string) string {
	if content == "" {
		return ""
	}
	out, ok := g.complete(ctx, "extract_techniques",
		promptData{Title: title, Text: truncate(content, contentBudget)}, 1500,
		func(text string) (string, error) {
			var techniques []Technique
			if err := json.Unmarshal([]byte(cleanJSON(text)), &techniques); err != nil {
				return "", eris.Wrap(err, "malformed technique list")
			}
			valid := techniques[:0]
			for _, t := range techniques {
				if t.Name != "" {
					valid = append(valid, t)
				}
			}
			if len(valid) == 0 {
				return "", eris.New("no named techniques")
			}
			if len(valid) > 10 {
				valid = valid[:10]
			}
			capped, err := json.Marshal(valid)
			if err != nil {
				return "", eris.Wrap(err, "remarshal techniques")
			}
			return string(capped), nil
		})
	if !ok {
		return ""
	}
	return out
}

// SummarizeNotebook produces the didactic notebook summary as validated
// JSON text.
func (g *Gateway) SummarizeNotebook(ctx context.Context, content, title string) string {
	if content == "" {
		return ""
	}
	out, ok := g.complete(ctx, "summarize_notebook",
		promptData{Title: title, Text: truncate(content, contentBudget)}, 2500,
		func(text string) (string, error) {
			raw := cleanJSON(text)
			if _, err := validateObject(raw, "purpose", "processing_steps"); err != nil {
				return "", err
			}
			return raw, nil
		})
	if !ok {
		return ""
	}
	return out
}
