package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"comichub/pkg/models"
)

// SQLiteStore is the alternate catalog backend. It implements the same
// contract as JSONStore on top of two tables; the asset directories still
// live under the catalog root.
type SQLiteStore struct {
	DB   *sql.DB
	root string
}

func NewSQLiteStore(db *sql.DB, root string) (*SQLiteStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog root: %w", err)
	}
	return &SQLiteStore{DB: db, root: root}, nil
}

func (s *SQLiteStore) UpsertComic(ctx context.Context, c models.Comic) error {
	tagsJSON, err := json.Marshal(c.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags for %s: %w", c.ID, err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO comics (id, title, cover, author, description, tags, update_time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  cover = excluded.cover,
		  author = excluded.author,
		  description = excluded.description,
		  tags = excluded.tags,
		  update_time = excluded.update_time,
		  status = excluded.status
	`, c.ID, c.Title, c.Cover, c.Author, c.Description, string(tagsJSON), c.UpdateTime, c.Status)
	if err != nil {
		return fmt.Errorf("upsert comic %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpsertChapter(ctx context.Context, ch models.Chapter) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO chapters (id, comic_id, title, ord, update_time, page_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  comic_id = excluded.comic_id,
		  title = excluded.title,
		  ord = excluded.ord,
		  update_time = excluded.update_time,
		  page_count = excluded.page_count
	`, ch.ID, ch.ComicID, ch.Title, ch.Order, ch.UpdateTime, ch.PageCount)
	if err != nil {
		return fmt.Errorf("upsert chapter %s: %w", ch.ID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteComic(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chapters WHERE comic_id = ?`, id); err != nil {
		return fmt.Errorf("delete chapters of %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comics WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete comic %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	if err := os.RemoveAll(filepath.Join(s.root, id)); err != nil {
		return fmt.Errorf("remove assets for %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) GetComic(ctx context.Context, id string) (*models.Comic, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, title, cover, author, description, tags, update_time, status
		FROM comics
		WHERE id = ?
	`, id)

	c, err := scanComic(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan comic %s: %w", id, err)
	}
	return c, nil
}

func (s *SQLiteStore) ListComics(ctx context.Context) ([]models.Comic, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, title, cover, author, description, tags, update_time, status
		FROM comics
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list comics: %w", err)
	}
	defer rows.Close()

	var out []models.Comic
	for rows.Next() {
		c, err := scanComic(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan comic row: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) ListChapters(ctx context.Context, comicID string) ([]models.Chapter, error) {
	query := `
		SELECT id, comic_id, title, ord, update_time, page_count
		FROM chapters
	`
	var args []any
	if comicID != "" {
		query += ` WHERE comic_id = ?`
		args = append(args, comicID)
	}
	query += ` ORDER BY comic_id ASC, ord ASC`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var out []models.Chapter
	for rows.Next() {
		var (
			ch         models.Chapter
			title      sql.NullString
			updateTime sql.NullString
		)
		if err := rows.Scan(&ch.ID, &ch.ComicID, &title, &ch.Order, &updateTime, &ch.PageCount); err != nil {
			return nil, fmt.Errorf("scan chapter row: %w", err)
		}
		ch.Title = title.String
		ch.UpdateTime = updateTime.String
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func scanComic(scan func(dest ...any) error) (*models.Comic, error) {
	var (
		c           models.Comic
		cover       sql.NullString
		author      sql.NullString
		description sql.NullString
		tagsJSON    sql.NullString
		updateTime  sql.NullString
		status      sql.NullString
	)
	if err := scan(&c.ID, &c.Title, &cover, &author, &description, &tagsJSON, &updateTime, &status); err != nil {
		return nil, err
	}
	c.Cover = cover.String
	c.Author = author.String
	c.Description = description.String
	c.UpdateTime = updateTime.String
	c.Status = status.String
	if tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &c.Tags); err != nil {
			log.Printf("[catalog] tags of %s: %v", c.ID, err)
		}
	}
	return &c, nil
}
