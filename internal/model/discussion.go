package model

import (
	"strings"
	"time"
)

// DiscussionCategory distinguishes forum threads from posts on the dedicated
// solution write-up tab.
type DiscussionCategory string

const (
	CategoryDiscussion DiscussionCategory = "discussion"
	CategoryWriteup    DiscussionCategory = "writeup"
)

// AuthorTier is the author's platform rank.
type AuthorTier string

const (
	TierNovice      AuthorTier = "Novice"
	TierContributor AuthorTier = "Contributor"
	TierExpert      AuthorTier = "Expert"
	TierMaster      AuthorTier = "Master"
	TierGrandmaster AuthorTier = "Grandmaster"
)

// tierScanOrder lists tiers longest-first so "Grandmaster" is matched before
// the "Master" substring it contains.
var tierScanOrder = []AuthorTier{
	TierGrandmaster, TierContributor, TierMaster, TierExpert, TierNovice,
}

// MatchTier scans free text for a tier keyword, case-insensitively. Returns
// the empty string when no tier is mentioned.
func MatchTier(text string) AuthorTier {
	lower := strings.ToLower(text)
	for _, tier := range tierScanOrder {
		if strings.Contains(lower, strings.ToLower(string(tier))) {
			return tier
		}
	}
	return ""
}

// Discussion is a forum thread attached to a competition. The (competition_id,
// url) pair is the logical unique key; rows are upserted by it on every scrape.
type Discussion struct {
	ID            int64              `json:"id"`
	CompetitionID string             `json:"competition_id"`
	Title         string             `json:"title"`
	URL           string             `json:"url"`
	Author        string             `json:"author"`
	AuthorTier    AuthorTier         `json:"author_tier,omitempty"`
	TierColor     string             `json:"tier_color,omitempty"` // e.g. "rgb(241, 243, 244)"
	VoteCount     int                `json:"vote_count"`
	CommentCount  int                `json:"comment_count"`
	Category      DiscussionCategory `json:"category"`
	IsPinned      bool               `json:"is_pinned"`
	Summary       string             `json:"summary,omitempty"` // structured JSON text
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
