package parse

import (
	"strings"
	"time"
)

// CompetitionMeta holds the fields recoverable from a competition overview
// page's rendered text. Anything not found stays zero; enrichment fills the
// gaps later.
type CompetitionMeta struct {
	Title       string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	MetricHint  string
}

// dateLayouts covers the formats the overview timeline renders dates in.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
}

// ParseCompetitionText pulls title, dates, and a metric hint out of the
// rendered overview text. The full text is kept as the description for
// downstream enrichment.
func ParseCompetitionText(text string) CompetitionMeta {
	meta := CompetitionMeta{Description: strings.TrimSpace(text)}

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if meta.Title == "" {
			meta.Title = line
		}

		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "start"):
			if d := findDate(line, lines, i); d != nil {
				meta.StartDate = d
			}
		case strings.HasPrefix(lower, "close") || strings.HasPrefix(lower, "end"):
			if d := findDate(line, lines, i); d != nil && meta.EndDate == nil {
				meta.EndDate = d
			}
		case strings.Contains(lower, "evaluation") && meta.MetricHint == "":
			meta.MetricHint = nextNonEmpty(lines, i)
		}
	}
	return meta
}

// findDate tries the line itself first, then the following line, since the
// timeline renders label and value as separate text nodes.
func findDate(line string, lines []string, idx int) *time.Time {
	if d := parseDateIn(line); d != nil {
		return d
	}
	return parseDateIn(nextNonEmpty(lines, idx))
}

func parseDateIn(s string) *time.Time {
	s = strings.TrimSpace(s)
	// Strip a leading label like "Started" or "Close date:".
	if i := strings.IndexAny(s, ":"); i >= 0 && i < len(s)-1 {
		s = strings.TrimSpace(s[i+1:])
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
		// The date may trail a label: "Started June 1, 2026".
		if fields := strings.Fields(s); len(fields) > 3 {
			tail := strings.Join(fields[len(fields)-3:], " ")
			if t, err := time.Parse(layout, tail); err == nil {
				return &t
			}
		}
	}
	return nil
}

func nextNonEmpty(lines []string, idx int) string {
	for i := idx + 1; i < len(lines); i++ {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
