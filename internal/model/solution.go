package model

import "time"

// SolutionType is the origin of a solution record. Writeup-promoted solutions
// are stored as "discussion"; notebook-list entries as "notebook".
type SolutionType string

const (
	SolutionTypeDiscussion SolutionType = "discussion"
	SolutionTypeNotebook   SolutionType = "notebook"
)

// Medal maps a leaderboard rank to its award.
type Medal string

const (
	MedalGold   Medal = "gold"
	MedalSilver Medal = "silver"
	MedalBronze Medal = "bronze"
)

// MedalForRank returns the medal for a leaderboard rank, or "" when the rank
// is outside the medal table.
func MedalForRank(rank *int) Medal {
	if rank == nil {
		return ""
	}
	switch *rank {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return ""
	}
}

// Solution is a competitive approach: a discussion promoted by the title/URL
// heuristics, or a notebook. Upserted by (competition_id, url).
type Solution struct {
	ID            int64        `json:"id"`
	CompetitionID string       `json:"competition_id"`
	Title         string       `json:"title"`
	URL           string       `json:"url"`
	Author        string       `json:"author"`
	AuthorTier    AuthorTier   `json:"author_tier,omitempty"`
	TierColor     string       `json:"tier_color,omitempty"`
	VoteCount     int          `json:"vote_count"`
	CommentCount  int          `json:"comment_count"`
	Type          SolutionType `json:"type"`
	Medal         Medal        `json:"medal,omitempty"`
	Rank          *int         `json:"rank,omitempty"`
	Summary       string       `json:"summary,omitempty"`    // structured JSON text
	Techniques    string       `json:"techniques,omitempty"` // structured JSON list text
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
