package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	dbtypes "github.com/nitesh/news_portal/internal/db"
	"github.com/nitesh/news_portal/internal/metrics"
	"github.com/nitesh/news_portal/internal/render"
	"github.com/nitesh/news_portal/internal/service"
	"github.com/nitesh/news_portal/pkg/models"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	svc      *service.Service
	renderer render.Renderer
	log      *slog.Logger
	checks   map[string]HealthCheck
}

func NewHandler(svc *service.Service, renderer render.Renderer, log *slog.Logger, checks map[string]HealthCheck) *Handler {
	return &Handler{svc: svc, renderer: renderer, log: log, checks: checks}
}

// Index: GET / and GET /page/:page
func (h *Handler) Index(c *gin.Context) {
	view, err := h.svc.Latest(c.Request.Context(), pageParam(c))
	h.respond(c, view, err)
}

// ArticlesByTag: GET /tag/:id and GET /tag/:id/page/:page
func (h *Handler) ArticlesByTag(c *gin.Context) {
	view, err := h.svc.ByTag(c.Request.Context(), c.GetInt64(paramID), pageParam(c))
	h.respond(c, view, err)
}

// Search: POST /search, form field "query"
func (h *Handler) Search(c *gin.Context) {
	view, err := h.svc.Search(c.Request.Context(), c.DefaultPostForm("query", ""))
	h.respond(c, view, err)
}

type ingestArticle struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Tags      []string  `json:"tags"`
}

// Ingest: POST /api/articles
// Body: JSON array of articles, tags given by name
func (h *Handler) Ingest(c *gin.Context) {
	var payload []ingestArticle
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	articles := make([]*models.Article, 0, len(payload))
	for _, p := range payload {
		a := &models.Article{
			ID:        p.ID,
			Title:     p.Title,
			Summary:   p.Summary,
			Content:   p.Content,
			CreatedAt: p.CreatedAt,
			Tags:      make(dbtypes.TagList, 0, len(p.Tags)),
		}
		for _, name := range p.Tags {
			a.Tags = append(a.Tags, dbtypes.TagRef{Name: name})
		}
		articles = append(articles, a)
	}

	if err := h.svc.Ingest(c.Request.Context(), articles); err != nil {
		if errors.Is(err, service.ErrInvalidArticle) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("ingest failed", slog.Any("err", err), slog.Int("count", len(articles)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingest failed"})
		return
	}

	metrics.ArticlesIngested.Add(float64(len(articles)))
	ids := make([]string, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, a.ID)
	}
	c.JSON(http.StatusCreated, gin.H{
		"meta": gin.H{"imported": len(articles)},
		"ids":  ids,
	})
}

// HotSearches: GET /api/search/hot?limit=10
func (h *Handler) HotSearches(c *gin.Context) {
	lim := parseLimit(c.DefaultQuery("limit", "10"))
	terms, err := h.svc.HotSearches(c.Request.Context(), lim)
	if err != nil {
		h.log.Error("hot searches failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hot searches unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(terms), "limit": lim},
		"data": terms,
	})
}

// Health: GET /health
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	report := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			report[name] = err.Error()
			continue
		}
		report[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{"status": state, "checks": report})
}

func (h *Handler) respond(c *gin.Context, view *service.View, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}

	body, err := h.renderer.Render(view.Name, view.Model)
	if err != nil {
		h.fail(c, err)
		return
	}

	metrics.PagesRendered.WithLabelValues(view.Name).Inc()
	if articles, ok := view.Model["articles"].([]*models.Article); ok {
		metrics.ArticlesServed.WithLabelValues(view.Name).Add(float64(len(articles)))
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.log.Error("request failed",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Any("err", err),
	)
	c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func pageParam(c *gin.Context) int {
	if v, ok := c.Get(paramPage); ok {
		if n, ok := v.(int64); ok {
			return int(n)
		}
	}
	return 1
}

// parseLimit ensures a sane integer limit, with bounds
func parseLimit(s string) int {
	l, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || l <= 0 {
		return 10
	}
	if l > 50 {
		return 50
	}
	return l
}
