package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/compass-ml/compkb/internal/model"
)

var solutionSortKeys = map[string]string{
	"rank":       "rank",
	"vote_count": "vote_count",
	"created_at": "created_at",
	"title":      "title",
}

const solutionColumns = `
	id, competition_id, title, url, author, author_tier, tier_color,
	vote_count, comment_count, type, medal, rank, summary, techniques,
	created_at, updated_at`

// UpsertSolution inserts or refreshes the row keyed by (competition_id, url).
// Returns the row ID and whether it was created. Summary and techniques
// survive refreshes.
func (s *Store) UpsertSolution(ctx context.Context, sol *model.Solution) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM solutions WHERE competition_id = ? AND url = ?`,
		sol.CompetitionID, sol.URL,
	).Scan(&id)
	if err != nil && err != sql.ErrNoRows {
		return 0, false, eris.Wrapf(err, "store: check solution %s", sol.URL)
	}

	now := time.Now().UTC()
	if err == nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE solutions SET
				title = ?, author = ?, author_tier = ?, tier_color = ?,
				vote_count = ?, comment_count = ?, type = ?, medal = ?, rank = ?,
				updated_at = ?
			 WHERE id = ?`,
			sol.Title, sol.Author, string(sol.AuthorTier), sol.TierColor,
			sol.VoteCount, sol.CommentCount, string(sol.Type), medalValue(sol.Medal), sol.Rank,
			now, id,
		)
		return id, false, eris.Wrapf(err, "store: update solution %d", id)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO solutions
			(competition_id, title, url, author, author_tier, tier_color,
			 vote_count, comment_count, type, medal, rank, summary, techniques,
			 created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sol.CompetitionID, sol.Title, sol.URL, sol.Author, string(sol.AuthorTier), sol.TierColor,
		sol.VoteCount, sol.CommentCount, string(sol.Type), medalValue(sol.Medal), sol.Rank,
		sol.Summary, sol.Techniques, now, now,
	)
	if err != nil {
		return 0, false, eris.Wrapf(err, "store: insert solution %s", sol.URL)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, eris.Wrap(err, "store: solution insert id")
	}
	return id, true, nil
}

// GetSolution returns the solution or nil when absent.
func (s *Store) GetSolution(ctx context.Context, id int64) (*model.Solution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+solutionColumns+` FROM solutions WHERE id = ?`, id,
	)
	sol, err := scanSolution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get solution %d", id)
	}
	return sol, nil
}

// ListSolutions returns a competition's solutions of the given type (empty
// type means both). When sorting by rank, NULL ranks always come last.
func (s *Store) ListSolutions(ctx context.Context, competitionID string, typ model.SolutionType, sortBy, order string, limit int) ([]model.Solution, error) {
	col, ok := solutionSortKeys[sortBy]
	if !ok {
		col = "rank"
	}
	dir := "ASC"
	if strings.EqualFold(order, "desc") {
		dir = "DESC"
	}
	if limit <= 0 {
		limit = 100
	}

	orderBy := col + " " + dir
	if col == "rank" {
		orderBy = "(rank IS NULL) ASC, rank " + dir + ", vote_count DESC"
	}

	query := `SELECT ` + solutionColumns + ` FROM solutions WHERE competition_id = ?`
	args := []any{competitionID}
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, string(typ))
	}
	query += ` ORDER BY ` + orderBy + ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list solutions")
	}
	defer rows.Close()

	out := []model.Solution{}
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan solution")
		}
		out = append(out, *sol)
	}
	return out, eris.Wrap(rows.Err(), "store: list solutions iterate")
}

// UpdateSolutionEnrichment stores the generated summary and technique list.
// Empty values leave the existing columns untouched.
func (s *Store) UpdateSolutionEnrichment(ctx context.Context, id int64, summary, techniques string) error {
	var sets []string
	var args []any
	if summary != "" {
		sets = append(sets, "summary = ?")
		args = append(args, summary)
	}
	if techniques != "" {
		sets = append(sets, "techniques = ?")
		args = append(args, techniques)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE solutions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return eris.Wrapf(err, "store: update solution enrichment %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: solution not found: %d", id)
	}
	return nil
}

// medalValue maps the empty medal to NULL for the CHECK constraint.
func medalValue(m model.Medal) any {
	if m == "" {
		return nil
	}
	return string(m)
}

func scanSolution(row scannable) (*model.Solution, error) {
	var sol model.Solution
	var medal sql.NullString
	var rank sql.NullInt64
	err := row.Scan(
		&sol.ID, &sol.CompetitionID, &sol.Title, &sol.URL, &sol.Author, &sol.AuthorTier, &sol.TierColor,
		&sol.VoteCount, &sol.CommentCount, &sol.Type, &medal, &rank, &sol.Summary, &sol.Techniques,
		&sol.CreatedAt, &sol.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if medal.Valid {
		sol.Medal = model.Medal(medal.String)
	}
	if rank.Valid {
		r := int(rank.Int64)
		sol.Rank = &r
	}
	return &sol, nil
}
