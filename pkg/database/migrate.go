package database

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS comics (
  id          TEXT PRIMARY KEY,
  title       TEXT NOT NULL,
  cover       TEXT,
  author      TEXT,
  description TEXT,
  tags        TEXT, -- JSON array as text
  update_time TEXT,
  status      TEXT
);

CREATE TABLE IF NOT EXISTS chapters (
  id          TEXT PRIMARY KEY,
  comic_id    TEXT NOT NULL,
  title       TEXT,
  ord         INTEGER NOT NULL,
  update_time TEXT,
  page_count  INTEGER NOT NULL DEFAULT 0,
  UNIQUE (comic_id, ord)
);

CREATE INDEX IF NOT EXISTS idx_chapters_comic ON chapters (comic_id);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
