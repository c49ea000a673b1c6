// Package store is the catalog: competitions, discussions, solutions, and the
// tag taxonomy in a single SQLite file. Discussions and solutions are upserted
// by their (competition_id, url) logical key; list-valued fields are JSON
// text; booleans are 0/1 integers.
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Store wraps the catalog database. Single writer; SQLite serializes the rest.
type Store struct {
	db *sql.DB
}

// Open opens the catalog at path and configures WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS competitions (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	url                  TEXT NOT NULL,
	start_date           DATETIME,
	end_date             DATETIME,
	status               TEXT NOT NULL DEFAULT 'completed',
	metric               TEXT NOT NULL DEFAULT '',
	metric_description   TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	summary              TEXT NOT NULL DEFAULT '',
	tags                 TEXT NOT NULL DEFAULT '[]',
	data_types           TEXT NOT NULL DEFAULT '[]',
	task_types           TEXT NOT NULL DEFAULT '[]',
	competition_features TEXT NOT NULL DEFAULT '[]',
	domain               TEXT NOT NULL DEFAULT '',
	dataset_info         TEXT NOT NULL DEFAULT '',
	is_favorite          INTEGER NOT NULL DEFAULT 0,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	last_scraped_at      DATETIME
);

CREATE TABLE IF NOT EXISTS discussions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	competition_id TEXT NOT NULL REFERENCES competitions(id),
	title          TEXT NOT NULL,
	url            TEXT NOT NULL,
	author         TEXT NOT NULL DEFAULT '',
	author_tier    TEXT NOT NULL DEFAULT '',
	tier_color     TEXT NOT NULL DEFAULT '',
	vote_count     INTEGER NOT NULL DEFAULT 0,
	comment_count  INTEGER NOT NULL DEFAULT 0,
	category       TEXT NOT NULL DEFAULT 'discussion' CHECK (category IN ('discussion', 'writeup')),
	is_pinned      INTEGER NOT NULL DEFAULT 0,
	summary        TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (competition_id, url)
);

CREATE TABLE IF NOT EXISTS solutions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	competition_id TEXT NOT NULL REFERENCES competitions(id),
	title          TEXT NOT NULL,
	url            TEXT NOT NULL,
	author         TEXT NOT NULL DEFAULT '',
	author_tier    TEXT NOT NULL DEFAULT '',
	tier_color     TEXT NOT NULL DEFAULT '',
	vote_count     INTEGER NOT NULL DEFAULT 0,
	comment_count  INTEGER NOT NULL DEFAULT 0,
	type           TEXT NOT NULL DEFAULT 'discussion' CHECK (type IN ('notebook', 'discussion')),
	medal          TEXT CHECK (medal IN ('gold', 'silver', 'bronze')),
	rank           INTEGER,
	summary        TEXT NOT NULL DEFAULT '',
	techniques     TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (competition_id, url)
);

CREATE TABLE IF NOT EXISTS tags (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	category      TEXT NOT NULL,
	display_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id             TEXT PRIMARY KEY,
	competition_id TEXT NOT NULL,
	operation      TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'running',
	counters       TEXT,
	started_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_competitions_status ON competitions(status);
CREATE INDEX IF NOT EXISTS idx_competitions_end_date ON competitions(end_date);
CREATE INDEX IF NOT EXISTS idx_competitions_created_at ON competitions(created_at);
CREATE INDEX IF NOT EXISTS idx_competitions_is_favorite ON competitions(is_favorite);
CREATE INDEX IF NOT EXISTS idx_discussions_competition_id ON discussions(competition_id);
CREATE INDEX IF NOT EXISTS idx_discussions_vote_count ON discussions(vote_count DESC);
CREATE INDEX IF NOT EXISTS idx_solutions_competition_id ON solutions(competition_id);
CREATE INDEX IF NOT EXISTS idx_solutions_rank ON solutions(rank ASC);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_competition_id ON ingest_runs(competition_id);
`

// Migrate creates the schema and seeds the tag taxonomy.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migration); err != nil {
		return eris.Wrap(err, "store: migrate")
	}
	return s.seedTags(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

// jsonList decodes a JSON-encoded string list. Malformed text yields an
// empty list, never an error.
func jsonList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	if out == nil {
		return []string{}
	}
	return out
}

func marshalList(list []string) string {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
