package api

import (
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nitesh/news_portal/internal/metrics"
)

const (
	paramPage = "page"
	paramID   = "id"
)

var (
	pagePattern = regexp.MustCompile(`^[1-9]\d*$`)
	idPattern   = regexp.MustCompile(`^\d+$`)
)

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// routes is the complete routing table of the portal.
func (h *Handler) routes() []route {
	page := constrain(paramPage, pagePattern, 32)
	id := constrain(paramID, idPattern, 64)

	return []route{
		{http.MethodGet, "/", []gin.HandlerFunc{h.Index}},
		{http.MethodGet, "/page/:page", []gin.HandlerFunc{page, h.Index}},
		{http.MethodGet, "/tag/:id", []gin.HandlerFunc{id, h.ArticlesByTag}},
		{http.MethodGet, "/tag/:id/page/:page", []gin.HandlerFunc{id, page, h.ArticlesByTag}},
		{http.MethodPost, "/search", []gin.HandlerFunc{h.Search}},

		{http.MethodPost, "/api/articles", []gin.HandlerFunc{h.Ingest}},
		{http.MethodGet, "/api/search/hot", []gin.HandlerFunc{h.HotSearches}},
		{http.MethodGet, "/health", []gin.HandlerFunc{h.Health}},
		{http.MethodGet, "/metrics", []gin.HandlerFunc{gin.WrapH(promhttp.Handler())}},
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	for _, rt := range h.routes() {
		r.Handle(rt.method, rt.path, rt.handlers...)
	}
}

// NewRouter builds the gin engine with recovery, request logging and metrics.
func NewRouter(h *Handler, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), metrics.Middleware("news-portal"))
	RegisterRoutes(r, h)
	return r
}

// constrain rejects the request with 404 unless the named path parameter
// matches pattern and fits a signed integer of bitSize. The parsed value is stored on the
// context as int64 under the parameter name.
func constrain(param string, pattern *regexp.Regexp, bitSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(param)
		if !pattern.MatchString(raw) {
			c.String(http.StatusNotFound, "404 page not found")
			c.Abort()
			return
		}
		n, err := strconv.ParseInt(raw, 10, bitSize)
		if err != nil {
			c.String(http.StatusNotFound, "404 page not found")
			c.Abort()
			return
		}
		c.Set(param, n)
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}
