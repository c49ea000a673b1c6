// Package parse turns rendered competition pages into typed records. The
// selectors target the platform's Material UI markup; everything else works
// on the rendered text so minor markup churn degrades fields instead of
// breaking the whole parser.
package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/compass-ml/compkb/internal/model"
)

// listItemSelector matches one row of a discussion, writeup, or notebook list.
const listItemSelector = "li.MuiListItem-root"

var strokeColorRe = regexp.MustCompile(`stroke:\s*(rgb\([^)]+\))`)

// ParseList extracts list items from a rendered list page. Relative hrefs
// are resolved against baseURL. Items without a topic link are skipped;
// pinned detection is reported, filtering is the caller's job.
func ParseList(html, baseURL string) ([]model.ListItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "parse: list document")
	}

	var items []model.ListItem
	doc.Find(listItemSelector).Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find(`a[href*="/discussion/"], a[href*="/writeups/"], a[href*="/code/"]`).First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		url := absoluteURL(href, baseURL)

		itemText := sel.Text()
		author := extractAuthor(sel)

		item := model.ListItem{
			Title:        CleanTitle(link.Text(), author),
			URL:          url,
			Author:       author,
			AuthorTier:   extractTier(sel, itemText),
			TierColor:    extractTierColor(sel),
			VoteCount:    extractVotes(sel),
			CommentCount: extractComments(sel),
			IsPinned:     strings.Contains(itemText, "push_pin"),
			Category:     CategoryForURL(url),
		}
		items = append(items, item)
	})
	return items, nil
}

// CategoryForURL classifies a topic URL: the dedicated writeups tab hosts
// solution write-ups, everything else is a plain discussion.
func CategoryForURL(url string) model.DiscussionCategory {
	if strings.Contains(url, "/writeups/") {
		return model.CategoryWriteup
	}
	return model.CategoryDiscussion
}

// CleanTitle strips the metadata the list view appends to a topic title:
// "Last comment 3d ago", "Posted ...", and a trailing author name, bare or
// parenthesized. Interpuncts inside the title itself are kept.
func CleanTitle(title string, author string) string {
	if i := strings.Index(title, "Last comment"); i >= 0 {
		title = title[:i]
	}
	if i := strings.Index(title, "Posted"); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(title), "·"))
	if author != "" {
		for _, suffix := range []string{"(" + author + ")", author} {
			if strings.HasSuffix(title, suffix) {
				title = strings.TrimSpace(title[:len(title)-len(suffix)])
				break
			}
		}
	}
	return title
}

func absoluteURL(href, baseURL string) string {
	if strings.HasPrefix(href, "/") {
		return strings.TrimSuffix(baseURL, "/") + href
	}
	return href
}

// extractAuthor reads the author name from the profile link's aria-label,
// which has the form "<name>'s profile".
func extractAuthor(sel *goquery.Selection) string {
	var author string
	sel.Find(`a[aria-label*="profile"]`).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		label, _ := link.Attr("aria-label")
		if name, _, found := strings.Cut(label, "'s profile"); found {
			author = name
			return false
		}
		return true
	})
	return author
}

// extractTier scans the item text first, then badge attributes, for a tier
// keyword.
func extractTier(sel *goquery.Selection, itemText string) model.AuthorTier {
	if tier := model.MatchTier(itemText); tier != "" {
		return tier
	}
	var tier model.AuthorTier
	sel.Find(`img, svg, [aria-label], [title]`).EachWithBreak(func(_ int, badge *goquery.Selection) bool {
		alt, _ := badge.Attr("alt")
		label, _ := badge.Attr("aria-label")
		title, _ := badge.Attr("title")
		if t := model.MatchTier(alt + " " + label + " " + title); t != "" {
			tier = t
			return false
		}
		return true
	})
	return tier
}

// extractTierColor reads the stroke color of the second circle in the author
// badge SVG. The first circle is the outer ring; the second carries the tier
// color.
func extractTierColor(sel *goquery.Selection) string {
	var color string
	sel.Find("svg").EachWithBreak(func(_ int, svg *goquery.Selection) bool {
		circles := svg.Find("circle")
		if circles.Length() < 2 {
			return true
		}
		style, _ := circles.Eq(1).Attr("style")
		if m := strokeColorRe.FindStringSubmatch(style); m != nil {
			color = m[1]
			return false
		}
		return true
	})
	return color
}

func extractVotes(sel *goquery.Selection) int {
	label, _ := sel.Find(`span[aria-label*="vote"]`).First().Attr("aria-label")
	return leadingInt(label)
}

func extractComments(sel *goquery.Selection) int {
	var count int
	sel.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := span.Text()
		if !strings.Contains(strings.ToLower(text), "comment") {
			return true
		}
		if n := leadingInt(text); n > 0 {
			count = n
			return false
		}
		return true
	})
	return count
}

// leadingInt parses the first whitespace-separated token as an integer,
// returning 0 when it is not numeric.
func leadingInt(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return n
}
