package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"comichub/pkg/models"
)

const (
	comicsFile   = "comics.json"
	chaptersFile = "chapters.json"
)

// JSONStore keeps the catalog in two JSON index files under the catalog
// root. Every write is a whole-file read-modify-write finished with a
// rename into place, so readers never observe a torn file. A process-local
// mutex plus a flock file lock enforce the single-writer discipline across
// goroutines and processes.
type JSONStore struct {
	root string

	mu  sync.Mutex
	flk *flock.Flock
}

func NewJSONStore(root string) (*JSONStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog root: %w", err)
	}
	return &JSONStore{
		root: root,
		flk:  flock.New(filepath.Join(root, ".catalog.lock")),
	}, nil
}

func (s *JSONStore) comicsPath() string   { return filepath.Join(s.root, comicsFile) }
func (s *JSONStore) chaptersPath() string { return filepath.Join(s.root, chaptersFile) }

func (s *JSONStore) lock() error {
	s.mu.Lock()
	if err := s.flk.Lock(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("lock catalog: %w", err)
	}
	return nil
}

func (s *JSONStore) unlock() {
	_ = s.flk.Unlock()
	s.mu.Unlock()
}

func (s *JSONStore) UpsertComic(ctx context.Context, c models.Comic) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	comics, err := s.loadComics()
	if err != nil {
		return err
	}

	// detail-only field, never persisted in the index
	c.Chapters = nil

	replaced := false
	for i := range comics {
		if comics[i].ID == c.ID {
			comics[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		comics = append(comics, c)
	}

	return writeFileAtomic(s.comicsPath(), comics)
}

func (s *JSONStore) UpsertChapter(ctx context.Context, ch models.Chapter) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	chapters, err := s.loadChapters()
	if err != nil {
		return err
	}

	replaced := false
	for i := range chapters {
		if chapters[i].ID == ch.ID {
			chapters[i] = ch
			replaced = true
			break
		}
	}
	if !replaced {
		chapters = append(chapters, ch)
	}

	return writeFileAtomic(s.chaptersPath(), chapters)
}

// DeleteComic removes the comic record, every chapter referencing it and
// the comic's asset directory. Unknown ids are a no-op.
func (s *JSONStore) DeleteComic(ctx context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	comics, err := s.loadComics()
	if err != nil {
		return err
	}
	kept := make([]models.Comic, 0, len(comics))
	for _, c := range comics {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if err := writeFileAtomic(s.comicsPath(), kept); err != nil {
		return err
	}

	chapters, err := s.loadChapters()
	if err != nil {
		return err
	}
	keptCh := make([]models.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if ch.ComicID != id {
			keptCh = append(keptCh, ch)
		}
	}
	if err := writeFileAtomic(s.chaptersPath(), keptCh); err != nil {
		return err
	}

	if err := os.RemoveAll(filepath.Join(s.root, id)); err != nil {
		return fmt.Errorf("remove assets for %s: %w", id, err)
	}
	return nil
}

func (s *JSONStore) GetComic(ctx context.Context, id string) (*models.Comic, error) {
	comics, err := s.loadComics()
	if err != nil {
		return nil, err
	}
	for i := range comics {
		if comics[i].ID == id {
			return &comics[i], nil
		}
	}
	return nil, nil
}

func (s *JSONStore) ListComics(ctx context.Context) ([]models.Comic, error) {
	return s.loadComics()
}

func (s *JSONStore) ListChapters(ctx context.Context, comicID string) ([]models.Chapter, error) {
	chapters, err := s.loadChapters()
	if err != nil {
		return nil, err
	}
	if comicID == "" {
		return chapters, nil
	}
	out := make([]models.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if ch.ComicID == comicID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (s *JSONStore) loadComics() ([]models.Comic, error) {
	b, err := os.ReadFile(s.comicsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil // lazily created on first write
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", comicsFile, err)
	}
	var comics []models.Comic
	if err := json.Unmarshal(b, &comics); err != nil {
		return nil, fmt.Errorf("parse %s: %w", comicsFile, err)
	}
	return comics, nil
}

func (s *JSONStore) loadChapters() ([]models.Chapter, error) {
	b, err := os.ReadFile(s.chaptersPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", chaptersFile, err)
	}
	var chapters []models.Chapter
	if err := json.Unmarshal(b, &chapters); err != nil {
		return nil, fmt.Errorf("parse %s: %w", chaptersFile, err)
	}
	return chapters, nil
}

// writeFileAtomic serializes v and renames it over path so concurrent
// readers see either the old or the new index, never a partial write.
// HTML escaping is off to keep non-ASCII titles readable in the files.
func writeFileAtomic(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
