package model

// ListItem is a transient record extracted from a discussion, write-up, or
// notebook list page. It exists only during an ingestion run; persistence
// happens through Discussion and Solution rows.
type ListItem struct {
	Title        string             `json:"title"`
	URL          string             `json:"url"`
	Author       string             `json:"author"`
	AuthorTier   AuthorTier         `json:"author_tier,omitempty"`
	TierColor    string             `json:"tier_color,omitempty"`
	VoteCount    int                `json:"vote_count"`
	CommentCount int                `json:"comment_count"`
	IsPinned     bool               `json:"is_pinned"`
	Category     DiscussionCategory `json:"category"`
}

// Counters reports the outcome of one ingest operation for one collection.
type Counters struct {
	Saved      int `json:"saved"`
	Updated    int `json:"updated"`
	Total      int `json:"total"`
	AIAnalyzed int `json:"ai_analyzed,omitempty"`
}

// Add accumulates another set of counters.
func (c *Counters) Add(other Counters) {
	c.Saved += other.Saved
	c.Updated += other.Updated
	c.Total += other.Total
	c.AIAnalyzed += other.AIAnalyzed
}
