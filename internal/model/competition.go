package model

import "time"

// CompetitionStatus is the lifecycle state of a competition.
type CompetitionStatus string

const (
	StatusActive    CompetitionStatus = "active"
	StatusCompleted CompetitionStatus = "completed"
	StatusUpcoming  CompetitionStatus = "upcoming"
)

// Competition is a contest on the source platform, identified by a stable slug.
type Competition struct {
	ID                  string            `json:"id"`
	Title               string            `json:"title"`
	URL                 string            `json:"url"`
	StartDate           *time.Time        `json:"start_date,omitempty"`
	EndDate             *time.Time        `json:"end_date,omitempty"`
	Status              CompetitionStatus `json:"status"`
	Metric              string            `json:"metric,omitempty"`
	MetricDescription   string            `json:"metric_description,omitempty"`
	Description         string            `json:"description,omitempty"`
	Summary             string            `json:"summary,omitempty"` // structured JSON text
	Tags                []string          `json:"tags"`
	DataTypes           []string          `json:"data_types"`
	TaskTypes           []string          `json:"task_types"`
	CompetitionFeatures []string          `json:"competition_features"`
	Domain              string            `json:"domain,omitempty"`
	DatasetInfo         string            `json:"dataset_info,omitempty"` // structured JSON text
	DiscussionCount     int               `json:"discussion_count"`
	SolutionStatus      string            `json:"solution_status"`
	IsFavorite          bool              `json:"is_favorite"`
	DaysUntilDeadline   *int              `json:"days_until_deadline,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	LastScrapedAt       *time.Time        `json:"last_scraped_at,omitempty"`
}

// ComputeStatus derives the authoritative status from the end date. A
// competition whose deadline has passed is completed regardless of what any
// upstream source claims; one with no known deadline is treated as completed.
func ComputeStatus(endDate *time.Time, now time.Time) CompetitionStatus {
	if endDate == nil {
		return StatusCompleted
	}
	if endDate.Before(truncateToDay(now)) {
		return StatusCompleted
	}
	return StatusActive
}

// DaysUntil returns the number of whole days from now until the deadline, or
// nil when the competition is not active.
func DaysUntil(endDate *time.Time, now time.Time) *int {
	if endDate == nil {
		return nil
	}
	today := truncateToDay(now)
	deadline := truncateToDay(*endDate)
	if deadline.Before(today) {
		return nil
	}
	days := int(deadline.Sub(today).Hours() / 24)
	return &days
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
