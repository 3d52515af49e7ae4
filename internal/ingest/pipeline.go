package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"comichub/internal/catalog"
	"comichub/internal/notify"
	"comichub/pkg/models"
)

var (
	// ErrFetchFailed means the fetcher ran but left no usable new
	// directory behind. Not retried automatically.
	ErrFetchFailed = errors.New("fetcher produced no new directory")

	// ErrNoPages means the fetched directory contained no image files.
	ErrNoPages = errors.New("no image files in fetched directory")
)

// Notifier is the outbound event channel. Delivery is best-effort and must
// never block or fail an ingest.
type Notifier interface {
	BroadcastJSON(v any)
}

// Pipeline turns one external fetch into catalog records:
// fetch -> locate output by directory diff -> normalize -> derive metadata
// -> upsert -> clean up -> notify. Any failure before the upsert leaves no
// catalog entry; the raw fetch directory is removed regardless.
type Pipeline struct {
	store       catalog.Store
	fetcher     Fetcher
	hub         Notifier
	workDir     string
	catalogRoot string

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

func NewPipeline(store catalog.Store, fetcher Fetcher, hub Notifier, workDir, catalogRoot string) *Pipeline {
	return &Pipeline{
		store:       store,
		fetcher:     fetcher,
		hub:         hub,
		workDir:     workDir,
		catalogRoot: catalogRoot,
		inflight:    make(map[string]*sync.Mutex),
	}
}

// lockFor serializes pipeline runs per comic id. Runs for different ids
// proceed in parallel; their target directories are disjoint and the store
// serializes index writes itself.
func (p *Pipeline) lockFor(comicID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.inflight[comicID]
	if !ok {
		m = &sync.Mutex{}
		p.inflight[comicID] = m
	}
	return m
}

func (p *Pipeline) Ingest(ctx context.Context, comicID string) (*models.Comic, error) {
	lock := p.lockFor(comicID)
	lock.Lock()
	defer lock.Unlock()

	// Presence on disk means a previous ingest completed its normalize
	// step; skip the fetch and answer from the catalog.
	target := filepath.Join(p.catalogRoot, comicID)
	if _, err := os.Stat(target); err == nil {
		log.Printf("[ingest] %s already on disk, skipping fetch", comicID)
		return p.detail(ctx, comicID)
	}

	if err := os.MkdirAll(p.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure work dir: %w", err)
	}

	before, err := p.snapshotDirs()
	if err != nil {
		return nil, fmt.Errorf("snapshot work dir: %w", err)
	}

	log.Printf("[ingest] fetching %s", comicID)
	if err := p.fetcher.Fetch(ctx, comicID); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", comicID, err)
	}

	srcDir, err := p.findNewDir(before)
	if err != nil {
		return nil, fmt.Errorf("locate output for %s: %w", comicID, err)
	}
	defer func() {
		// raw fetch debris goes away whatever happens downstream
		if err := os.RemoveAll(srcDir); err != nil {
			log.Printf("[ingest] cleanup %s: %v", srcDir, err)
		}
	}()

	pages, err := Normalize(srcDir, target)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", comicID, err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("normalize %s: %w", comicID, ErrNoPages)
	}

	// The fetcher gives us no richer metadata than its directory name;
	// everything else gets placeholder defaults until a real source of
	// metadata exists.
	now := time.Now().Format("2006-01-02")
	comic := models.Comic{
		ID:          comicID,
		Title:       filepath.Base(srcDir),
		Cover:       path.Join(comicID, pages[0]),
		Author:      "Unknown",
		Description: "Imported comic",
		Tags:        []string{"comic"},
		UpdateTime:  now,
		Status:      "completed",
	}
	chapter := models.Chapter{
		ID:         models.ChapterID(comicID, 1),
		ComicID:    comicID,
		Title:      "Chapter 1",
		Order:      1,
		UpdateTime: now,
		PageCount:  len(pages),
	}

	if err := p.store.UpsertComic(ctx, comic); err != nil {
		return nil, fmt.Errorf("persist comic %s: %w", comicID, err)
	}
	if err := p.store.UpsertChapter(ctx, chapter); err != nil {
		return nil, fmt.Errorf("persist chapter %s: %w", chapter.ID, err)
	}

	log.Printf("[ingest] %s ingested (%d pages)", comicID, len(pages))

	if p.hub != nil {
		go p.hub.BroadcastJSON(notify.Event{Action: notify.ActionTitleAdded, ComicID: comicID})
	}

	comic.Chapters = []models.Chapter{chapter}
	return &comic, nil
}

func (p *Pipeline) snapshotDirs() (map[string]bool, error) {
	entries, err := os.ReadDir(p.workDir)
	if err != nil {
		return nil, err
	}
	dirs := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs[e.Name()] = true
		}
	}
	return dirs, nil
}

// findNewDir diffs the work dir against the pre-fetch snapshot. When the
// fetcher leaves more than one new directory the most recently modified
// wins.
func (p *Pipeline) findNewDir(before map[string]bool) (string, error) {
	entries, err := os.ReadDir(p.workDir)
	if err != nil {
		return "", err
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if !e.IsDir() || before[e.Name()] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = e.Name()
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", ErrFetchFailed
	}
	return filepath.Join(p.workDir, newest), nil
}

func (p *Pipeline) detail(ctx context.Context, comicID string) (*models.Comic, error) {
	c, err := p.store.GetComic(ctx, comicID)
	if err != nil {
		return nil, fmt.Errorf("get comic %s: %w", comicID, err)
	}
	if c == nil {
		// assets exist but the index write never landed; a delete of the
		// directory would allow a clean re-ingest
		return nil, fmt.Errorf("comic %s: %w", comicID, catalog.ErrNotFound)
	}
	chapters, err := p.store.ListChapters(ctx, comicID)
	if err != nil {
		return nil, fmt.Errorf("list chapters of %s: %w", comicID, err)
	}
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Order < chapters[j].Order })
	out := *c
	out.Chapters = chapters
	return &out, nil
}
