package parse

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// nonSlugSegments are path segments under /competitions/ that are navigation,
// not competition slugs.
var nonSlugSegments = map[string]bool{
	"": true, "community": true, "hosted": true, "all": true,
}

// ParseCompetitionSlugs enumerates competition slugs from a listing page.
// Results are deduplicated and sorted lexicographically; an empty result
// signals the caller to stop paginating.
func ParseCompetitionSlugs(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "parse: listing document")
	}

	seen := make(map[string]bool)
	doc.Find(`a[href*="/competitions/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		slug := slugFromHref(href)
		if slug != "" && !seen[slug] {
			seen[slug] = true
		}
	})

	slugs := make([]string, 0, len(seen))
	for slug := range seen {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs, nil
}

// slugFromHref extracts the slug segment directly after /competitions/,
// discarding query strings, fragments, and deeper sub-paths.
func slugFromHref(href string) string {
	_, rest, found := strings.Cut(href, "/competitions/")
	if !found {
		return ""
	}
	slug := rest
	if i := strings.IndexAny(slug, "/?#"); i >= 0 {
		slug = slug[:i]
	}
	if nonSlugSegments[slug] {
		return ""
	}
	return slug
}
