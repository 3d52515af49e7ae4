package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"comichub/internal/catalog"
	"comichub/pkg/models"
)

// fakeFetcher simulates the external downloader by dropping a directory of
// files into the work dir when invoked.
type fakeFetcher struct {
	dirName string
	files   map[string]string
	err     error
	workDir string
	calls   int
}

func (f *fakeFetcher) Fetch(ctx context.Context, comicID string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.dirName == "" {
		return nil // ran fine but produced nothing
	}
	dir := filepath.Join(f.workDir, f.dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, content := range f.files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type recordingHub struct {
	events []any
	done   chan struct{}
}

func (h *recordingHub) BroadcastJSON(v any) {
	h.events = append(h.events, v)
	close(h.done)
}

func newTestPipeline(t *testing.T, f *fakeFetcher) (*Pipeline, catalog.Store, string) {
	t.Helper()
	workDir := t.TempDir()
	catalogRoot := t.TempDir()
	f.workDir = workDir

	store, err := catalog.NewJSONStore(catalogRoot)
	if err != nil {
		t.Fatal(err)
	}
	return NewPipeline(store, f, nil, workDir, catalogRoot), store, catalogRoot
}

func TestIngestHappyPath(t *testing.T) {
	f := &fakeFetcher{
		dirName: "Some Raw Download Title",
		files: map[string]string{
			"scan_2.jpg": "two",
			"scan_1.jpg": "one",
			"notes.txt":  "junk",
		},
	}
	p, store, root := newTestPipeline(t, f)
	ctx := context.Background()

	comic, err := p.Ingest(ctx, "416330")
	if err != nil {
		t.Fatalf("Ingest error = %v", err)
	}

	if comic.ID != "416330" {
		t.Errorf("ID = %q, want 416330", comic.ID)
	}
	if comic.Title != "Some Raw Download Title" {
		t.Errorf("Title = %q, want the fetched directory name", comic.Title)
	}
	if comic.Cover != "416330/00001.jpg" {
		t.Errorf("Cover = %q, want first normalized page", comic.Cover)
	}
	if len(comic.Chapters) != 1 || comic.Chapters[0].PageCount != 2 {
		t.Fatalf("Chapters = %+v, want one chapter with 2 pages", comic.Chapters)
	}
	if comic.Chapters[0].ID != "416330-1" {
		t.Errorf("chapter ID = %q, want 416330-1", comic.Chapters[0].ID)
	}

	// canonical pages on disk
	if _, err := os.Stat(filepath.Join(root, "416330", "00002.jpg")); err != nil {
		t.Errorf("normalized page missing: %v", err)
	}

	// raw fetch directory cleaned up
	if _, err := os.Stat(filepath.Join(f.workDir, f.dirName)); !os.IsNotExist(err) {
		t.Errorf("raw fetch directory survived the ingest")
	}

	// persisted records visible through the store
	stored, err := store.GetComic(ctx, "416330")
	if err != nil || stored == nil {
		t.Fatalf("GetComic after ingest = %v, %v", stored, err)
	}
	chapters, _ := store.ListChapters(ctx, "416330")
	if len(chapters) != 1 {
		t.Errorf("chapters after ingest = %d, want 1", len(chapters))
	}
}

func TestIngestFetcherProducesNothing(t *testing.T) {
	f := &fakeFetcher{dirName: ""}
	p, store, _ := newTestPipeline(t, f)

	_, err := p.Ingest(context.Background(), "x1")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Ingest error = %v, want ErrFetchFailed", err)
	}

	comics, _ := store.ListComics(context.Background())
	if len(comics) != 0 {
		t.Errorf("failed ingest left catalog entries: %+v", comics)
	}
}

func TestIngestFetcherError(t *testing.T) {
	f := &fakeFetcher{err: errors.New("exit status 1")}
	p, store, _ := newTestPipeline(t, f)

	_, err := p.Ingest(context.Background(), "x1")
	if err == nil {
		t.Fatal("Ingest should fail when the fetcher fails")
	}

	comics, _ := store.ListComics(context.Background())
	if len(comics) != 0 {
		t.Errorf("failed ingest left catalog entries: %+v", comics)
	}
}

func TestIngestNoImagesIsFailure(t *testing.T) {
	f := &fakeFetcher{
		dirName: "empty-album",
		files:   map[string]string{"readme.txt": "no pages"},
	}
	p, store, _ := newTestPipeline(t, f)

	_, err := p.Ingest(context.Background(), "x1")
	if !errors.Is(err, ErrNoPages) {
		t.Fatalf("Ingest error = %v, want ErrNoPages", err)
	}

	// raw directory still cleaned up
	if _, err := os.Stat(filepath.Join(f.workDir, "empty-album")); !os.IsNotExist(err) {
		t.Errorf("raw fetch directory survived the failed ingest")
	}

	comics, _ := store.ListComics(context.Background())
	if len(comics) != 0 {
		t.Errorf("failed ingest left catalog entries: %+v", comics)
	}
}

func TestIngestShortCircuitsWhenAlreadyOnDisk(t *testing.T) {
	f := &fakeFetcher{dirName: "whatever"}
	p, store, root := newTestPipeline(t, f)
	ctx := context.Background()

	// simulate a completed earlier ingest
	if err := os.MkdirAll(filepath.Join(root, "done1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertComic(ctx, models.Comic{ID: "done1", Title: "Done"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertChapter(ctx, models.Chapter{ID: "done1-1", ComicID: "done1", Order: 1, PageCount: 9}); err != nil {
		t.Fatal(err)
	}

	comic, err := p.Ingest(ctx, "done1")
	if err != nil {
		t.Fatalf("Ingest error = %v", err)
	}
	if f.calls != 0 {
		t.Errorf("fetcher invoked %d times, want 0", f.calls)
	}
	if comic.Title != "Done" || len(comic.Chapters) != 1 {
		t.Errorf("short-circuit detail = %+v, want stored record with chapters", comic)
	}
}

func TestIngestNotifies(t *testing.T) {
	f := &fakeFetcher{
		dirName: "album",
		files:   map[string]string{"1.jpg": "page"},
	}
	hub := &recordingHub{done: make(chan struct{})}
	workDir := t.TempDir()
	catalogRoot := t.TempDir()
	f.workDir = workDir

	store, err := catalog.NewJSONStore(catalogRoot)
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline(store, f, hub, workDir, catalogRoot)

	if _, err := p.Ingest(context.Background(), "n1"); err != nil {
		t.Fatalf("Ingest error = %v", err)
	}

	<-hub.done
	if len(hub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(hub.events))
	}
}
