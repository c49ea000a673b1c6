// Package classify decides which list items qualify as solutions. Pure
// string heuristics, no I/O.
package classify

import (
	"regexp"
	"strings"

	"github.com/compass-ml/compkb/internal/model"
)

// rankPatterns capture the leaderboard rank from a topic title. First match
// wins.
var rankPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\s+place`),
	regexp.MustCompile(`#(\d+)\s+solution`),
	regexp.MustCompile(`rank\s+(\d+)`),
}

var solutionKeywords = []string{
	"solution", "approach", "write-up", "writeup",
	"our solution", "my solution",
}

// Result is the classifier verdict for one list item.
type Result struct {
	IsSolution bool
	Rank       *int
	Medal      model.Medal
	Type       model.SolutionType
}

// DetectSolution reports whether a title reads like a solution post and the
// leaderboard rank if one is stated. A rank pattern alone qualifies the
// title even without a solution keyword.
func DetectSolution(title string) (bool, *int) {
	lower := strings.ToLower(title)

	var rank *int
	for _, pattern := range rankPatterns {
		if m := pattern.FindStringSubmatch(lower); m != nil {
			n := atoiDigits(m[1])
			rank = &n
			break
		}
	}
	if rank != nil {
		return true, rank
	}

	for _, kw := range solutionKeywords {
		if strings.Contains(lower, kw) {
			return true, nil
		}
	}
	return false, nil
}

// Classify applies the full verdict to a list item. Items from the write-up
// tab are solutions unconditionally; the rank is still read from the title
// when present. Solutions promoted from lists are persisted with the
// discussion type; notebook-list entries get their type from the caller.
func Classify(item model.ListItem) Result {
	isSolution, rank := DetectSolution(item.Title)
	if item.Category == model.CategoryWriteup {
		isSolution = true
	}
	if !isSolution {
		return Result{}
	}
	return Result{
		IsSolution: true,
		Rank:       rank,
		Medal:      model.MedalForRank(rank),
		Type:       model.SolutionTypeDiscussion,
	}
}

// atoiDigits converts a digits-only string captured by the rank patterns.
func atoiDigits(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
