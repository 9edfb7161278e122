package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	dbtypes "github.com/nitesh/news_portal/internal/db"
	"github.com/nitesh/news_portal/internal/hotsearch"
	"github.com/nitesh/news_portal/internal/logger"
	"github.com/nitesh/news_portal/internal/render"
	"github.com/nitesh/news_portal/internal/service"
	"github.com/nitesh/news_portal/internal/store"
	"github.com/nitesh/news_portal/pkg/models"
)

type stubStore struct {
	articles []*models.Article
	tags     map[int64]*models.Tag
	err      error

	latestPages []int
	byTag       [][2]int64
	queries     []string
	saved       []*models.Article
}

func (s *stubStore) FindLatest(_ context.Context, page int) (*models.ArticlePage, error) {
	s.latestPages = append(s.latestPages, page)
	if s.err != nil {
		return nil, s.err
	}
	return &models.ArticlePage{Articles: s.articles, Number: page, Size: 10, Total: len(s.articles)}, nil
}

func (s *stubStore) FindByTag(_ context.Context, tagID int64, page int) (*models.ArticlePage, error) {
	s.byTag = append(s.byTag, [2]int64{tagID, int64(page)})
	return &models.ArticlePage{Articles: []*models.Article{}, Number: page, Size: 10}, nil
}

func (s *stubStore) FindBySearchQuery(_ context.Context, query string) ([]*models.Article, error) {
	s.queries = append(s.queries, query)
	return []*models.Article{}, nil
}

func (s *stubStore) SaveMany(_ context.Context, articles []*models.Article) error {
	for _, a := range articles {
		if a.ID == "" {
			a.ID = "generated-id"
		}
	}
	s.saved = append(s.saved, articles...)
	return nil
}

func (s *stubStore) FindMostPopular(_ context.Context, _ int) ([]*models.Tag, error) {
	return []*models.Tag{{ID: 3, Name: "kubernetes", Popularity: 12}, {ID: 1, Name: "golang", Popularity: 4}}, nil
}

func (s *stubStore) FindTag(_ context.Context, id int64) (*models.Tag, error) {
	if t, ok := s.tags[id]; ok {
		return t, nil
	}
	return nil, store.ErrTagNotFound
}

type testServer struct {
	store  *stubStore
	router *gin.Engine
}

func newTestServer(t *testing.T, hot service.HotSearches, checks map[string]HealthCheck) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := &stubStore{
		articles: []*models.Article{{
			ID:        "a-1",
			Title:     "Kubernetes 1.30 is out",
			Summary:   "Sidecars graduate.",
			CreatedAt: time.Now(),
			Tags:      dbtypes.TagList{{ID: 3, Name: "kubernetes"}},
		}},
		tags: map[int64]*models.Tag{3: {ID: 3, Name: "kubernetes"}},
	}
	renderer, err := render.NewTemplateRenderer()
	require.NoError(t, err)

	log := logger.Discard()
	svc := service.NewService(st, st, hot, log)
	h := NewHandler(svc, renderer, log, checks)
	return &testServer{store: st, router: NewRouter(h, log)}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestIndexRendersLatest(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Contains(t, w.Body.String(), "Kubernetes 1.30 is out")
	require.Contains(t, w.Body.String(), `href="/tag/3"`)
	require.Equal(t, []int{1}, ts.store.latestPages)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/page/3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []int{1, 3}, ts.store.latestPages)
}

func TestPageConstraintRejectsBeforeAction(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	for _, path := range []string{"/page/0", "/page/abc", "/page/01", "/page/-1", "/page/99999999999999", "/tag/x", "/tag/1/page/0"} {
		w := ts.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, w.Code, path)
	}
	require.Empty(t, ts.store.latestPages)
	require.Empty(t, ts.store.byTag)
}

func TestArticlesByTag(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/tag/3/page/2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "News by tag kubernetes")
	require.Equal(t, [][2]int64{{3, 2}}, ts.store.byTag)
}

func TestArticlesByUnknownTagStillRenders(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/tag/404", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "News by tag #404")
	require.Equal(t, [][2]int64{{404, 1}}, ts.store.byTag)
}

func TestSearchNeutralizesMarkup(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	ts := newTestServer(t, hotsearch.NewRecorder(rdb, time.Hour), nil)

	form := url.Values{"query": {"<script>x</script>"}}
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "<script>")
	require.Contains(t, w.Body.String(), "Search results for &#34;x&#34;")
	require.Equal(t, []string{"x"}, ts.store.queries)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/search/hot?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"meta":{"count":1,"limit":5},"data":[{"query":"x","count":1}]}`, w.Body.String())
}

func TestSearchWithoutQueryField(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	w := ts.do(httptest.NewRequest(http.MethodPost, "/search", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{""}, ts.store.queries)
}

func TestStoreFailureIs500(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.store.err = errors.New("connection refused")

	w := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "connection refused")
}

func TestIngest(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	body := `[{"title":"Go 1.24","summary":"Swiss tables","tags":["golang","release"]}]`
	req := httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := ts.do(req)
	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"meta":{"imported":1},"ids":["generated-id"]}`, w.Body.String())
	require.Len(t, ts.store.saved, 1)
	require.Equal(t, []string{"golang", "release"}, ts.store.saved[0].Tags.Names())
}

func TestIngestRejectsBadPayloads(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	for _, body := range []string{`{not json`, `[{"title":"  "}]`} {
		req := httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := ts.do(req)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	require.Empty(t, ts.store.saved)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	})
	w := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy","checks":{"postgres":"ok"}}`, w.Body.String())

	ts = newTestServer(t, nil, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	w = ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "refused")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.do(httptest.NewRequest(http.MethodGet, "/", nil))

	w := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "news_pages_rendered_total")
}

func TestParseLimit(t *testing.T) {
	require.Equal(t, 10, parseLimit(""))
	require.Equal(t, 10, parseLimit("-3"))
	require.Equal(t, 7, parseLimit("7"))
	require.Equal(t, 50, parseLimit("500"))
}
