package model

// TagCategory groups taxonomy labels.
type TagCategory string

const (
	TagDataType           TagCategory = "data_type"
	TagTaskType           TagCategory = "task_type"
	TagModelType          TagCategory = "model_type"
	TagSolutionMethod     TagCategory = "solution_method"
	TagCompetitionFeature TagCategory = "competition_feature"
	TagDomain             TagCategory = "domain"
)

// Tag is one label of the closed classification taxonomy, seeded at bootstrap.
type Tag struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Category     TagCategory `json:"category"`
	DisplayOrder int         `json:"display_order"`
}

// Taxonomy is the closed tag set grouped by category, as supplied to the tag
// generator and used to validate its output.
type Taxonomy map[TagCategory][]string

// Contains reports whether name appears anywhere in the taxonomy.
func (tx Taxonomy) Contains(name string) bool {
	for _, names := range tx {
		for _, n := range names {
			if n == name {
				return true
			}
		}
	}
	return false
}

// ContainsIn reports whether name appears under the given category.
func (tx Taxonomy) ContainsIn(category TagCategory, name string) bool {
	for _, n := range tx[category] {
		if n == name {
			return true
		}
	}
	return false
}

// Filter returns the subset of names present anywhere in the taxonomy,
// preserving order and dropping duplicates.
func (tx Taxonomy) Filter(names []string) []string {
	var out []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] || !tx.Contains(n) {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
