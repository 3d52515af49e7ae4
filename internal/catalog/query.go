package catalog

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"comichub/pkg/models"
	"comichub/pkg/utils"
)

// Query is the read side of the catalog. All operations are read-only and
// safe for unbounded concurrency. Store failures degrade to empty results:
// a momentarily unreadable index should not take the read API down.
type Query struct {
	store Store
	cfg   utils.Config
}

func NewQuery(store Store, cfg utils.Config) *Query {
	return &Query{store: store, cfg: cfg}
}

// List pages through the catalog in index-file order.
func (q *Query) List(ctx context.Context, page, pageSize int) models.PaginatedComics {
	comics, err := q.store.ListComics(ctx)
	if err != nil {
		log.Printf("[catalog] list comics: %v", err)
		comics = nil
	}
	return q.paginate(comics, page, pageSize)
}

// Latest pages through the catalog sorted by update time, newest first.
func (q *Query) Latest(ctx context.Context, page, pageSize int) models.PaginatedComics {
	comics, err := q.store.ListComics(ctx)
	if err != nil {
		log.Printf("[catalog] list comics: %v", err)
		comics = nil
	}
	sortByUpdateTime(comics, true)
	return q.paginate(comics, page, pageSize)
}

// Search filters the full catalog before paginating. The keyword matches
// title and description case-insensitively and tags by membership; an empty
// keyword matches everything. tags (if given) is an any-match filter.
// sort is "newest" (default) or "oldest".
func (q *Query) Search(ctx context.Context, keyword string, tags []string, sortOrder string, page, pageSize int) models.PaginatedComics {
	comics, err := q.store.ListComics(ctx)
	if err != nil {
		log.Printf("[catalog] search comics: %v", err)
		comics = nil
	}

	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw != "" {
		matched := make([]models.Comic, 0, len(comics))
		for _, c := range comics {
			if matchesKeyword(c, kw) {
				matched = append(matched, c)
			}
		}
		comics = matched
	}

	if len(tags) > 0 {
		matched := make([]models.Comic, 0, len(comics))
		for _, c := range comics {
			if hasAnyTag(c, tags) {
				matched = append(matched, c)
			}
		}
		comics = matched
	}

	sortByUpdateTime(comics, sortOrder != "oldest")
	return q.paginate(comics, page, pageSize)
}

// Detail returns the comic with its chapters joined by comic id and ordered
// by reading order. Returns nil when the comic does not exist or the index
// is unreadable.
func (q *Query) Detail(ctx context.Context, id string) *models.Comic {
	c, err := q.store.GetComic(ctx, id)
	if err != nil {
		log.Printf("[catalog] get comic %s: %v", id, err)
		return nil
	}
	if c == nil {
		return nil
	}

	chapters, err := q.store.ListChapters(ctx, id)
	if err != nil {
		log.Printf("[catalog] chapters of %s: %v", id, err)
		chapters = nil
	}
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Order < chapters[j].Order })

	out := *c
	out.Cover = utils.StaticURL(q.cfg, out.Cover)
	out.Chapters = chapters
	return &out
}

// ChapterPages synthesizes the page list for a chapter from its recorded
// page count; no filesystem access happens at read time. A malformed id is
// a client error; an unknown chapter or an unreadable index yields nil. A
// known chapter with zero pages yields an empty, non-nil list.
func (q *Query) ChapterPages(ctx context.Context, chapterID string) ([]models.Page, error) {
	comicID, order, err := models.ParseChapterID(chapterID)
	if err != nil {
		return nil, err
	}

	chapters, err := q.store.ListChapters(ctx, comicID)
	if err != nil {
		log.Printf("[catalog] chapters of %s: %v", comicID, err)
		return nil, nil
	}

	for _, ch := range chapters {
		if ch.Order != order {
			continue
		}
		pages := make([]models.Page, 0, ch.PageCount)
		for i := 1; i <= ch.PageCount; i++ {
			pages = append(pages, models.Page{
				ID:        fmt.Sprintf("%s-%d", chapterID, i),
				ChapterID: chapterID,
				Order:     i,
				URL:       utils.StaticURL(q.cfg, fmt.Sprintf("%s/%05d.jpg", comicID, i)),
			})
		}
		return pages, nil
	}
	return nil, nil
}

func (q *Query) paginate(comics []models.Comic, page, pageSize int) models.PaginatedComics {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	total := len(comics)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	items := make([]models.Comic, end-start)
	copy(items, comics[start:end])
	for i := range items {
		items[i].Cover = utils.StaticURL(q.cfg, items[i].Cover)
		items[i].Chapters = nil // list reads omit chapters
	}

	return models.PaginatedComics{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  end < total,
	}
}

func matchesKeyword(c models.Comic, kw string) bool {
	if strings.Contains(strings.ToLower(c.Title), kw) {
		return true
	}
	if strings.Contains(strings.ToLower(c.Description), kw) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.EqualFold(tag, kw) {
			return true
		}
	}
	return false
}

func hasAnyTag(c models.Comic, tags []string) bool {
	for _, want := range tags {
		for _, tag := range c.Tags {
			if strings.EqualFold(tag, want) {
				return true
			}
		}
	}
	return false
}

// Update times are ISO dates, so string comparison orders correctly.
func sortByUpdateTime(comics []models.Comic, newestFirst bool) {
	sort.SliceStable(comics, func(i, j int) bool {
		if newestFirst {
			return comics[i].UpdateTime > comics[j].UpdateTime
		}
		return comics[i].UpdateTime < comics[j].UpdateTime
	})
}
