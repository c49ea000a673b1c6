package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/compass-ml/compkb/internal/model"
)

var discussionSortKeys = map[string]string{
	"vote_count":    "vote_count",
	"comment_count": "comment_count",
	"created_at":    "created_at",
	"title":         "title",
}

const discussionColumns = `
	id, competition_id, title, url, author, author_tier, tier_color,
	vote_count, comment_count, category, is_pinned, summary,
	created_at, updated_at`

// UpsertDiscussion inserts or refreshes the row keyed by (competition_id,
// url). Returns the row ID and whether it was created. The summary survives
// refreshes; list scrapes never carry one.
func (s *Store) UpsertDiscussion(ctx context.Context, d *model.Discussion) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM discussions WHERE competition_id = ? AND url = ?`,
		d.CompetitionID, d.URL,
	).Scan(&id)
	if err != nil && err != sql.ErrNoRows {
		return 0, false, eris.Wrapf(err, "store: check discussion %s", d.URL)
	}

	now := time.Now().UTC()
	if err == nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE discussions SET
				title = ?, author = ?, author_tier = ?, tier_color = ?,
				vote_count = ?, comment_count = ?, category = ?, is_pinned = ?,
				updated_at = ?
			 WHERE id = ?`,
			d.Title, d.Author, string(d.AuthorTier), d.TierColor,
			d.VoteCount, d.CommentCount, string(d.Category), boolToInt(d.IsPinned),
			now, id,
		)
		return id, false, eris.Wrapf(err, "store: update discussion %d", id)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO discussions
			(competition_id, title, url, author, author_tier, tier_color,
			 vote_count, comment_count, category, is_pinned, summary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.CompetitionID, d.Title, d.URL, d.Author, string(d.AuthorTier), d.TierColor,
		d.VoteCount, d.CommentCount, string(d.Category), boolToInt(d.IsPinned),
		d.Summary, now, now,
	)
	if err != nil {
		return 0, false, eris.Wrapf(err, "store: insert discussion %s", d.URL)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, eris.Wrap(err, "store: discussion insert id")
	}
	return id, true, nil
}

// GetDiscussion returns the discussion or nil when absent.
func (s *Store) GetDiscussion(ctx context.Context, id int64) (*model.Discussion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+discussionColumns+` FROM discussions WHERE id = ?`, id,
	)
	d, err := scanDiscussion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get discussion %d", id)
	}
	return d, nil
}

// ListDiscussions returns a competition's discussions. Pinned rows sort
// first regardless of the requested key.
func (s *Store) ListDiscussions(ctx context.Context, competitionID, sortBy, order string, limit int) ([]model.Discussion, error) {
	col, ok := discussionSortKeys[sortBy]
	if !ok {
		col = "vote_count"
	}
	dir := "DESC"
	if strings.EqualFold(order, "asc") {
		dir = "ASC"
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+discussionColumns+` FROM discussions
		 WHERE competition_id = ?
		 ORDER BY is_pinned DESC, `+col+` `+dir+` LIMIT ?`,
		competitionID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list discussions")
	}
	defer rows.Close()

	out := []model.Discussion{}
	for rows.Next() {
		d, err := scanDiscussion(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan discussion")
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "store: list discussions iterate")
}

// UpdateDiscussionSummary stores the structured summary. An empty summary is
// a no-op: a failed enrichment never wipes an earlier one.
func (s *Store) UpdateDiscussionSummary(ctx context.Context, id int64, summary string) error {
	if summary == "" {
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE discussions SET summary = ?, updated_at = ? WHERE id = ?`,
		summary, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "store: update discussion summary %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: discussion not found: %d", id)
	}
	return nil
}

func scanDiscussion(row scannable) (*model.Discussion, error) {
	var d model.Discussion
	var pinned int
	err := row.Scan(
		&d.ID, &d.CompetitionID, &d.Title, &d.URL, &d.Author, &d.AuthorTier, &d.TierColor,
		&d.VoteCount, &d.CommentCount, &d.Category, &pinned, &d.Summary,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.IsPinned = pinned == 1
	return &d, nil
}
