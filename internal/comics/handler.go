package comics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"comichub/internal/catalog"
	"comichub/internal/ingest"
	"comichub/internal/notify"
	"comichub/pkg/models"
)

// Broadcaster pushes catalog change events to connected clients.
type Broadcaster interface {
	BroadcastJSON(v any)
}

type Handler struct {
	Query    *catalog.Query
	Store    catalog.Store
	Pipeline *ingest.Pipeline
	Hub      Broadcaster
}

func NewHandler(query *catalog.Query, store catalog.Store, pipeline *ingest.Pipeline, hub Broadcaster) *Handler {
	return &Handler{Query: query, Store: store, Pipeline: pipeline, Hub: hub}
}

// RegisterRoutes mounts the public read API.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)          // GET /comics
	rg.GET("/latest", h.latest) // GET /comics/latest
	rg.GET("/search", h.search) // GET /comics/search
	rg.GET("/:id", h.detail)    // GET /comics/:id
}

// RegisterChapterRoutes mounts the chapter page resolver.
func (h *Handler) RegisterChapterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/pages", h.chapterPages) // GET /chapters/:id/pages
}

// RegisterAdminRoutes mounts the mutating endpoints; the caller wraps the
// group in auth middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/ingest", h.triggerIngest) // POST /comics/:id/ingest
	rg.DELETE("/:id", h.remove)             // DELETE /comics/:id
}

func (h *Handler) list(c *gin.Context) {
	page := parseInt(c.Query("page"), 1)
	pageSize := clamp(parseInt(c.Query("page_size"), 20), 1, 100)

	result := h.Query.List(c.Request.Context(), page, pageSize)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) latest(c *gin.Context) {
	limit := clamp(parseInt(c.Query("limit"), 10), 1, 50)

	result := h.Query.Latest(c.Request.Context(), 1, limit)
	c.JSON(http.StatusOK, gin.H{"items": result.Items})
}

func (h *Handler) search(c *gin.Context) {
	keyword := c.Query("keyword")
	page := parseInt(c.Query("page"), 1)
	pageSize := clamp(parseInt(c.Query("page_size"), 20), 1, 100)

	sortOrder := strings.TrimSpace(c.Query("sort"))
	switch sortOrder {
	case "", "newest", "oldest":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be newest or oldest"})
		return
	}

	// tags=action,drama OR tags=action&tags=drama
	tags := c.QueryArray("tags")
	if len(tags) == 1 && strings.Contains(tags[0], ",") {
		tags = strings.Split(tags[0], ",")
	}

	result := h.Query.Search(c.Request.Context(), keyword, tags, sortOrder, page, pageSize)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) detail(c *gin.Context) {
	id := c.Param("id")

	comic := h.Query.Detail(c.Request.Context(), id)
	if comic == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, comic)
}

func (h *Handler) chapterPages(c *gin.Context) {
	id := c.Param("id")

	pages, err := h.Query.ChapterPages(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrMalformedChapterID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed chapter id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get pages failed"})
		return
	}
	// nil means the chapter does not exist; a zero-page chapter comes back
	// as an empty list and is still a 200.
	if pages == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": pages})
}

// triggerIngest queues a background pipeline run and returns immediately.
// The pipeline serializes runs per comic id itself.
func (h *Handler) triggerIngest(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comic id required"})
		return
	}

	jobID := uuid.NewString()
	go func() {
		if _, err := h.Pipeline.Ingest(context.Background(), id); err != nil {
			log.Printf("[ingest] job %s (%s) failed: %v", jobID, id, err)
			return
		}
		log.Printf("[ingest] job %s (%s) done", jobID, id)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":   jobID,
		"comic_id": id,
		"status":   "queued",
	})
}

func (h *Handler) remove(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comic id required"})
		return
	}

	existing, err := h.Store.GetComic(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	if err := h.Store.DeleteComic(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	// deleting an id that was never in the catalog is a no-op; listeners
	// only hear about records that actually existed
	if existing != nil && h.Hub != nil {
		go h.Hub.BroadcastJSON(notify.Event{Action: notify.ActionTitleDeleted, ComicID: id})
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
