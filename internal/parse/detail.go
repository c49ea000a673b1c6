package parse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// linkBucketCap bounds each bucket of the link inventory.
const linkBucketCap = 5

// Detail is the parsed body of a discussion, write-up, or solution page.
type Detail struct {
	Body  string
	Links LinkInventory
}

// LinkInventory buckets outbound links found in an article body.
type LinkInventory struct {
	Notebooks []string `json:"notebooks,omitempty"`
	GitHub    []string `json:"github,omitempty"`
	Other     []string `json:"other,omitempty"`
}

// ParseDetail pairs the rendered body text with a link inventory pulled from
// the page HTML. Links are deduplicated and each bucket is capped.
func ParseDetail(text, html, baseURL string) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "parse: detail document")
	}

	inv := LinkInventory{}
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		url := absoluteURL(href, baseURL)
		if !strings.HasPrefix(url, "http") || seen[url] {
			return
		}
		seen[url] = true

		switch {
		case strings.Contains(url, "github.com"):
			inv.GitHub = appendCapped(inv.GitHub, url)
		case strings.Contains(url, "/code/") || strings.Contains(url, "/notebooks/"):
			inv.Notebooks = appendCapped(inv.Notebooks, url)
		default:
			inv.Other = appendCapped(inv.Other, url)
		}
	})

	return &Detail{Body: strings.TrimSpace(text), Links: inv}, nil
}

func appendCapped(bucket []string, url string) []string {
	if len(bucket) >= linkBucketCap {
		return bucket
	}
	return append(bucket, url)
}
