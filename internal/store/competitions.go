package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/compass-ml/compkb/internal/model"
)

// filterScanCap bounds the candidate set for the in-memory filter path. Tag
// filters operate on JSON-encoded lists, which SQL cannot match portably.
const filterScanCap = 10000

// CompetitionFilter selects and orders competitions for listing.
type CompetitionFilter struct {
	Status     model.CompetitionStatus
	Domain     string
	Metrics    []string
	DataTypes  []string
	TaskTypes  []string
	Tags       []string
	IsFavorite *bool
	Search     string
	SortBy     string // created_at (default), end_date, start_date, title
	Order      string // asc | desc (default)
	Page       int
	Limit      int
}

// CompetitionPage is one page of the competition listing plus its envelope
// counts.
type CompetitionPage struct {
	Items          []model.Competition `json:"items"`
	Total          int                 `json:"total"`
	ActiveCount    int                 `json:"active_count"`
	CompletedCount int                 `json:"completed_count"`
	Page           int                 `json:"page"`
	Limit          int                 `json:"limit"`
	TotalPages     int                 `json:"total_pages"`
}

var competitionSortKeys = map[string]string{
	"created_at": "c.created_at",
	"end_date":   "c.end_date",
	"start_date": "c.start_date",
	"title":      "c.title",
}

const competitionColumns = `
	c.id, c.title, c.url, c.start_date, c.end_date,
	c.metric, c.metric_description, c.description, c.summary,
	c.tags, c.data_types, c.task_types, c.competition_features,
	c.domain, c.dataset_info, c.is_favorite, c.created_at, c.last_scraped_at,
	(SELECT COUNT(*) FROM discussions d WHERE d.competition_id = c.id),
	CASE
		WHEN EXISTS (SELECT 1 FROM solutions s WHERE s.competition_id = c.id AND s.summary != '') THEN 'summarized'
		WHEN EXISTS (SELECT 1 FROM solutions s WHERE s.competition_id = c.id) THEN 'fetched'
		ELSE 'none'
	END`

// UpsertCompetition inserts the competition or refreshes its scraped fields.
// Returns true when the row was created. Enrichment fields (summary, tags,
// metric) are not touched here; see UpdateEnrichment.
func (s *Store) UpsertCompetition(ctx context.Context, c *model.Competition) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM competitions WHERE id = ?`, c.ID,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "store: check competition %s", c.ID)
	}

	now := time.Now().UTC()
	if exists > 0 {
		_, err = s.db.ExecContext(ctx,
			`UPDATE competitions SET
				title = ?, url = ?, start_date = ?, end_date = ?, status = ?,
				description = CASE WHEN ? != '' THEN ? ELSE description END,
				last_scraped_at = ?
			 WHERE id = ?`,
			c.Title, c.URL, c.StartDate, c.EndDate, string(c.Status),
			c.Description, c.Description, now, c.ID,
		)
		return false, eris.Wrapf(err, "store: update competition %s", c.ID)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO competitions (id, title, url, start_date, end_date, status, description, created_at, last_scraped_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.URL, c.StartDate, c.EndDate, string(c.Status), c.Description, now, now,
	)
	if err != nil {
		return false, eris.Wrapf(err, "store: insert competition %s", c.ID)
	}
	return true, nil
}

// GetCompetition returns the competition or nil when absent.
func (s *Store) GetCompetition(ctx context.Context, id string) (*model.Competition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+competitionColumns+` FROM competitions c WHERE c.id = ?`, id,
	)
	c, err := scanCompetition(row, time.Now())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get competition %s", id)
	}
	return c, nil
}

// ListCompetitions applies the filter and returns one page. Scalar criteria
// go into SQL; the set-valued criteria (data types, task types, tags) and the
// status are applied in memory over a capped candidate set, since status is
// derived from end_date and the lists are JSON text.
func (s *Store) ListCompetitions(ctx context.Context, f CompetitionFilter) (*CompetitionPage, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions c WHERE 1=1`
	var args []any

	if f.Domain != "" {
		query += ` AND c.domain = ?`
		args = append(args, f.Domain)
	}
	if f.IsFavorite != nil {
		query += ` AND c.is_favorite = ?`
		args = append(args, boolToInt(*f.IsFavorite))
	}
	if f.Search != "" {
		query += ` AND (c.title LIKE ? OR c.description LIKE ?)`
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	if len(f.Metrics) > 0 {
		query += ` AND c.metric IN (?` + strings.Repeat(", ?", len(f.Metrics)-1) + `)`
		for _, m := range f.Metrics {
			args = append(args, m)
		}
	}

	sortCol, ok := competitionSortKeys[f.SortBy]
	if !ok {
		sortCol = "c.created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	query += ` ORDER BY ` + sortCol + ` ` + dir + ` LIMIT ?`
	args = append(args, filterScanCap)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list competitions")
	}
	defer rows.Close()

	now := time.Now()
	var candidates []model.Competition
	for rows.Next() {
		c, err := scanCompetition(rows, now)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan competition")
		}
		if !matchesSetFilters(c, f) {
			continue
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: list competitions iterate")
	}

	page := &CompetitionPage{Items: []model.Competition{}}
	var filtered []model.Competition
	for _, c := range candidates {
		switch c.Status {
		case model.StatusActive:
			page.ActiveCount++
		case model.StatusCompleted:
			page.CompletedCount++
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		filtered = append(filtered, c)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	pageNum := f.Page
	if pageNum <= 0 {
		pageNum = 1
	}

	page.Total = len(filtered)
	page.Page = pageNum
	page.Limit = limit
	page.TotalPages = (page.Total + limit - 1) / limit

	start := (pageNum - 1) * limit
	if start < len(filtered) {
		end := start + limit
		if end > len(filtered) {
			end = len(filtered)
		}
		page.Items = filtered[start:end]
	}
	return page, nil
}

// matchesSetFilters applies OR semantics per set-valued field: the row
// qualifies when it shares at least one value with each non-empty filter.
func matchesSetFilters(c *model.Competition, f CompetitionFilter) bool {
	if len(f.DataTypes) > 0 && !sharesAny(c.DataTypes, f.DataTypes) {
		return false
	}
	if len(f.TaskTypes) > 0 && !sharesAny(c.TaskTypes, f.TaskTypes) {
		return false
	}
	if len(f.Tags) > 0 && !sharesAny(c.Tags, f.Tags) {
		return false
	}
	return true
}

func sharesAny(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// ListNewCompetitions returns competitions first seen within the last N days,
// newest first.
func (s *Store) ListNewCompetitions(ctx context.Context, days, limit int) ([]model.Competition, error) {
	if days <= 0 {
		days = 30
	}
	if limit <= 0 {
		limit = 50
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+competitionColumns+` FROM competitions c
		 WHERE c.created_at >= ? ORDER BY c.created_at DESC LIMIT ?`,
		cutoff, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list new competitions")
	}
	defer rows.Close()

	now := time.Now()
	out := []model.Competition{}
	for rows.Next() {
		c, err := scanCompetition(rows, now)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan competition")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "store: list new competitions iterate")
}

// EnrichmentUpdate carries generated fields for one competition. Zero values
// mean "leave unchanged": enrichment never wipes previously-good data.
type EnrichmentUpdate struct {
	Summary             string
	Metric              string
	MetricDescription   string
	Domain              string
	Tags                []string
	DataTypes           []string
	TaskTypes           []string
	CompetitionFeatures []string
	DatasetInfo         string
}

// UpdateEnrichment writes the populated fields of u in one UPDATE.
func (s *Store) UpdateEnrichment(ctx context.Context, id string, u EnrichmentUpdate) error {
	var sets []string
	var args []any

	set := func(col, val string) {
		if val != "" {
			sets = append(sets, col+" = ?")
			args = append(args, val)
		}
	}
	setList := func(col string, val []string) {
		if len(val) > 0 {
			sets = append(sets, col+" = ?")
			args = append(args, marshalList(val))
		}
	}

	set("summary", u.Summary)
	set("metric", u.Metric)
	set("metric_description", u.MetricDescription)
	set("domain", u.Domain)
	set("dataset_info", u.DatasetInfo)
	setList("tags", u.Tags)
	setList("data_types", u.DataTypes)
	setList("task_types", u.TaskTypes)
	setList("competition_features", u.CompetitionFeatures)

	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE competitions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return eris.Wrapf(err, "store: update enrichment %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: competition not found: %s", id)
	}
	return nil
}

// SetFavorite flips the favorite flag. A true→false transition deletes the
// competition's discussions; the count of deleted rows is returned. Favorites
// gate deep ingestion storage, so unfavoriting releases it.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) (deleted int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "store: begin favorite tx")
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx,
		`SELECT is_favorite FROM competitions WHERE id = ?`, id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, eris.Errorf("store: competition not found: %s", id)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "store: read favorite %s", id)
	}

	if current == 1 && !favorite {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM discussions WHERE competition_id = ?`, id,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "store: cascade discussions %s", id)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "store: rows affected")
		}
		deleted = int(n)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE competitions SET is_favorite = ? WHERE id = ?`, boolToInt(favorite), id,
	); err != nil {
		return 0, eris.Wrapf(err, "store: set favorite %s", id)
	}
	return deleted, eris.Wrap(tx.Commit(), "store: commit favorite")
}

// scanCompetition reads one competition row. Status and days-until-deadline
// are derived from end_date at read time, making the deadline authoritative
// over whatever was stored.
func scanCompetition(row scannable, now time.Time) (*model.Competition, error) {
	var c model.Competition
	var startDate, endDate, lastScraped sql.NullTime
	var tags, dataTypes, taskTypes, features string
	var favorite int

	err := row.Scan(
		&c.ID, &c.Title, &c.URL, &startDate, &endDate,
		&c.Metric, &c.MetricDescription, &c.Description, &c.Summary,
		&tags, &dataTypes, &taskTypes, &features,
		&c.Domain, &c.DatasetInfo, &favorite, &c.CreatedAt, &lastScraped,
		&c.DiscussionCount, &c.SolutionStatus,
	)
	if err != nil {
		return nil, err
	}

	if startDate.Valid {
		c.StartDate = &startDate.Time
	}
	if endDate.Valid {
		c.EndDate = &endDate.Time
	}
	if lastScraped.Valid {
		c.LastScrapedAt = &lastScraped.Time
	}
	c.Tags = jsonList(tags)
	c.DataTypes = jsonList(dataTypes)
	c.TaskTypes = jsonList(taskTypes)
	c.CompetitionFeatures = jsonList(features)
	c.IsFavorite = favorite == 1
	c.Status = model.ComputeStatus(c.EndDate, now)
	if c.Status == model.StatusActive {
		c.DaysUntilDeadline = model.DaysUntil(c.EndDate, now)
	}
	return &c, nil
}
