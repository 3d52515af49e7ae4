package models

// Comic is the canonical catalog entry for one series. It is the record
// stored in comics.json (or the comics table) and returned by the read API.
//
// Cover is stored as a catalog-relative path (e.g. "416330/00001.jpg") or a
// full URL when the upstream source provided one; the query layer rewrites
// relative values into full URLs before they leave the process.
type Comic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Cover       string    `json:"cover"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	UpdateTime  string    `json:"update_time"` // ISO date, e.g. "2026-08-31"
	Status      string    `json:"status"`      // "ongoing" or "completed"
	Chapters    []Chapter `json:"chapters,omitempty"`
}

// Chapter is one orderable unit of pages within a comic. Chapters reference
// their comic by ID only; they are found by scanning chapters.json, never by
// following a pointer from the comic record.
type Chapter struct {
	ID         string `json:"id"` // "{comic_id}-{order}", see ChapterID
	ComicID    string `json:"comic_id"`
	Title      string `json:"title"`
	Order      int    `json:"order"` // 1-based reading order
	UpdateTime string `json:"update_time"`
	PageCount  int    `json:"page_count"`
}

// Page is never persisted; it is synthesized on demand from a chapter's
// PageCount and the fixed page naming convention.
type Page struct {
	ID        string `json:"id"`
	ChapterID string `json:"chapter_id"`
	Order     int    `json:"order"`
	URL       string `json:"url"`
}

// PaginatedComics is the list/search response envelope.
type PaginatedComics struct {
	Items    []Comic `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	HasMore  bool    `json:"has_more"`
}
