package comics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"comichub/internal/catalog"
	"comichub/internal/notify"
	"comichub/pkg/models"
	"comichub/pkg/utils"
)

type recordingHub struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingHub) BroadcastJSON(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := v.(notify.Event); ok {
		r.events = append(r.events, ev)
	}
}

func (r *recordingHub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestRouter(t *testing.T, comics []models.Comic, chapters []models.Chapter) (*gin.Engine, *recordingHub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := catalog.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, c := range comics {
		if err := store.UpsertComic(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	for _, ch := range chapters {
		if err := store.UpsertChapter(ctx, ch); err != nil {
			t.Fatal(err)
		}
	}

	cfg := utils.Config{BaseURL: "http://localhost:8080", StaticPath: "/static"}
	query := catalog.NewQuery(store, cfg)
	hub := &recordingHub{}
	h := NewHandler(query, store, nil, hub)

	router := gin.New()
	h.RegisterRoutes(router.Group("/api/comics"))
	h.RegisterChapterRoutes(router.Group("/api/chapters"))
	h.RegisterAdminRoutes(router.Group("/api/comics"))
	return router, hub
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func sampleComic(id, title string) models.Comic {
	return models.Comic{
		ID:         id,
		Title:      title,
		Cover:      id + "/00001.jpg",
		Author:     "Unknown",
		Tags:       []string{"comic"},
		UpdateTime: "2026-08-31",
		Status:     "completed",
	}
}

func TestListEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, []models.Comic{
		sampleComic("a", "Alpha"),
		sampleComic("b", "Beta"),
	}, nil)

	w := doGet(router, "/api/comics?page=1&page_size=20")
	assert.Equal(t, http.StatusOK, w.Code)

	var res models.PaginatedComics
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Items, 2)
	assert.False(t, res.HasMore)
	assert.Equal(t, "http://localhost:8080/static/a/00001.jpg", res.Items[0].Cover)
}

func TestDetailEndpoint(t *testing.T) {
	router, _ := newTestRouter(t,
		[]models.Comic{sampleComic("abc123", "Alpha")},
		[]models.Chapter{{ID: "abc123-1", ComicID: "abc123", Title: "Chapter 1", Order: 1, PageCount: 4}},
	)

	t.Run("found", func(t *testing.T) {
		w := doGet(router, "/api/comics/abc123")
		assert.Equal(t, http.StatusOK, w.Code)

		var c models.Comic
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
		assert.Equal(t, "Alpha", c.Title)
		assert.Len(t, c.Chapters, 1)
	})

	t.Run("absent", func(t *testing.T) {
		w := doGet(router, "/api/comics/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSearchEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, []models.Comic{
		sampleComic("a", "One Piece"),
		sampleComic("b", "Berserk"),
	}, nil)

	w := doGet(router, "/api/comics/search?keyword=piece")
	assert.Equal(t, http.StatusOK, w.Code)

	var res models.PaginatedComics
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Total)

	w = doGet(router, "/api/comics/search?sort=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChapterPagesEndpoint(t *testing.T) {
	router, _ := newTestRouter(t,
		[]models.Comic{sampleComic("abc123", "Alpha")},
		[]models.Chapter{
			{ID: "abc123-1", ComicID: "abc123", Order: 1, PageCount: 2},
			{ID: "abc123-2", ComicID: "abc123", Order: 2, PageCount: 0},
		},
	)

	t.Run("found", func(t *testing.T) {
		w := doGet(router, "/api/chapters/abc123-1/pages")
		assert.Equal(t, http.StatusOK, w.Code)

		var res struct {
			Items []models.Page `json:"items"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Len(t, res.Items, 2)
		assert.Equal(t, "http://localhost:8080/static/abc123/00002.jpg", res.Items[1].URL)
	})

	t.Run("zero-page chapter", func(t *testing.T) {
		w := doGet(router, "/api/chapters/abc123-2/pages")
		assert.Equal(t, http.StatusOK, w.Code)

		var res struct {
			Items []models.Page `json:"items"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Empty(t, res.Items)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := doGet(router, "/api/chapters/abc123/pages")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown chapter", func(t *testing.T) {
		w := doGet(router, "/api/chapters/abc123-9/pages")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeleteEndpoint(t *testing.T) {
	router, hub := newTestRouter(t,
		[]models.Comic{sampleComic("gone", "Gone")},
		[]models.Chapter{{ID: "gone-1", ComicID: "gone", Order: 1}},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/comics/gone", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// record gone from subsequent reads
	w = doGet(router, "/api/comics/gone")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the broadcast runs in a goroutine
	deadline := time.Now().Add(2 * time.Second)
	for hub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no delete event broadcast")
		}
		time.Sleep(10 * time.Millisecond)
	}
	hub.mu.Lock()
	ev := hub.events[0]
	hub.mu.Unlock()
	assert.Equal(t, notify.ActionTitleDeleted, ev.Action)
	assert.Equal(t, "gone", ev.ComicID)

	// idempotent, and the repeat does not announce a phantom deletion
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/comics/gone", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, hub.count())
}

func TestDeleteUnknownIDDoesNotBroadcast(t *testing.T) {
	router, hub := newTestRouter(t, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/comics/never-existed", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, hub.count())
}
