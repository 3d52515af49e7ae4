package catalog

import (
	"context"
	"errors"

	"comichub/pkg/models"
)

// ErrNotFound reports an absent comic or chapter. Read paths generally
// surface absence as (nil, nil) instead; this sentinel is for callers that
// need an explicit failure outcome.
var ErrNotFound = errors.New("not found")

// Store is the catalog persistence contract. Two implementations exist:
// the canonical JSON index files (JSONStore) and a SQLite backend
// (SQLiteStore), selected by configuration.
//
// Upserts are idempotent replace-by-id operations. DeleteComic cascades to
// the comic's chapters and its asset directory and is a no-op for unknown
// ids. Callers must serialize writes; reads may run concurrently.
type Store interface {
	UpsertComic(ctx context.Context, c models.Comic) error
	UpsertChapter(ctx context.Context, ch models.Chapter) error
	DeleteComic(ctx context.Context, id string) error
	GetComic(ctx context.Context, id string) (*models.Comic, error)
	ListComics(ctx context.Context) ([]models.Comic, error)
	// ListChapters returns chapters for one comic, or all chapters when
	// comicID is empty.
	ListChapters(ctx context.Context, comicID string) ([]models.Chapter, error)
}
