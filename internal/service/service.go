package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nitesh/news_portal/internal/hotsearch"
	"github.com/nitesh/news_portal/internal/sanitize"
	"github.com/nitesh/news_portal/internal/store"
	"github.com/nitesh/news_portal/pkg/models"
)

// Views rendered by the portal.
const (
	ViewNews   = "news"
	ViewTag    = "tag"
	ViewSearch = "search"
)

const (
	hotTermsShown = 10
	// hot search tracking must not hold up a search page
	hotSearchTimeout = 500 * time.Millisecond
	// total time an ingest request may spend writing summaries
	summarizeBudget = 10 * time.Second
)

type ArticleStore interface {
	FindLatest(ctx context.Context, page int) (*models.ArticlePage, error)
	FindByTag(ctx context.Context, tagID int64, page int) (*models.ArticlePage, error)
	FindBySearchQuery(ctx context.Context, query string) ([]*models.Article, error)
	SaveMany(ctx context.Context, articles []*models.Article) error
}

type TagStore interface {
	FindMostPopular(ctx context.Context, windowDays int) ([]*models.Tag, error)
	FindTag(ctx context.Context, id int64) (*models.Tag, error)
}

// HotSearches remembers what people search for. Optional.
type HotSearches interface {
	Record(ctx context.Context, query string) error
	Top(ctx context.Context, n int) ([]hotsearch.Term, error)
}

// Summarizer writes a summary for an article that was ingested without one.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (string, error)
}

// ViewModel maps template field names to values.
type ViewModel map[string]any

// View is a template name plus the model it is rendered with.
type View struct {
	Name  string
	Model ViewModel
}

// Paginator feeds the pager partial; Prefix is the listing path the page
// segment is appended to.
type Paginator struct {
	*models.ArticlePage
	Prefix string
}

type Service struct {
	articles ArticleStore
	tags     TagStore
	hot      HotSearches
	summary  Summarizer
	log      *slog.Logger
}

// NewService wires the stores. hot may be nil.
func NewService(articles ArticleStore, tags TagStore, hot HotSearches, log *slog.Logger) *Service {
	return &Service{articles: articles, tags: tags, hot: hot, log: log}
}

// SetSummarizer enables summary generation on ingest. nil disables it.
func (s *Service) SetSummarizer(sum Summarizer) {
	s.summary = sum
}

// Latest builds the front page listing for page.
func (s *Service) Latest(ctx context.Context, page int) (*View, error) {
	latest, err := s.articles.FindLatest(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("latest articles: %w", err)
	}
	popular, err := s.popularTags(ctx)
	if err != nil {
		return nil, err
	}

	return &View{Name: ViewNews, Model: ViewModel{
		"articles":  latest.Articles,
		"tags":      popular,
		"paginator": Paginator{ArticlePage: latest, Prefix: ""},
	}}, nil
}

// ByTag lists the articles carrying tagID. An unknown tag still renders,
// with a placeholder in the title and whatever the store returned.
func (s *Service) ByTag(ctx context.Context, tagID int64, page int) (*View, error) {
	tagged, err := s.articles.FindByTag(ctx, tagID, page)
	if err != nil {
		return nil, fmt.Errorf("articles by tag %d: %w", tagID, err)
	}
	popular, err := s.popularTags(ctx)
	if err != nil {
		return nil, err
	}

	tag, err := s.tags.FindTag(ctx, tagID)
	switch {
	case errors.Is(err, store.ErrTagNotFound):
		s.log.Debug("tag not found", slog.Int64("tag_id", tagID))
		tag = &models.Tag{ID: tagID, Name: fmt.Sprintf("#%d", tagID)}
	case err != nil:
		return nil, fmt.Errorf("resolve tag %d: %w", tagID, err)
	}

	return &View{Name: ViewTag, Model: ViewModel{
		"articles":  tagged.Articles,
		"tags":      popular,
		"tag":       tag,
		"title":     "News by tag " + tag.String(),
		"paginator": Paginator{ArticlePage: tagged, Prefix: fmt.Sprintf("/tag/%d", tagID)},
	}}, nil
}

// Search sanitizes rawQuery and looks it up. The result set is not paginated;
// the store caps its size.
func (s *Service) Search(ctx context.Context, rawQuery string) (*View, error) {
	popular, err := s.popularTags(ctx)
	if err != nil {
		return nil, err
	}

	query := sanitize.SearchQuery(rawQuery)
	found, err := s.articles.FindBySearchQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	model := ViewModel{
		"articles": found,
		"tags":     popular,
		"title":    `Search results for "` + query + `"`,
		"query":    query,
	}

	if s.hot != nil {
		if terms, ok := s.trackSearch(ctx, query); ok {
			model["hot"] = terms
		}
	}

	return &View{Name: ViewSearch, Model: model}, nil
}

// trackSearch records query and reads the current top terms. Failures are
// logged and reported as !ok.
func (s *Service) trackSearch(ctx context.Context, query string) ([]hotsearch.Term, bool) {
	ctx, cancel := context.WithTimeout(ctx, hotSearchTimeout)
	defer cancel()

	if query != "" {
		if err := s.hot.Record(ctx, query); err != nil {
			s.log.Warn("record hot search", slog.Any("err", err))
		}
	}
	terms, err := s.hot.Top(ctx, hotTermsShown)
	if err != nil {
		s.log.Warn("read hot searches", slog.Any("err", err))
		return nil, false
	}
	return terms, true
}

// HotSearches returns the most searched queries, or an empty list when
// tracking is disabled.
func (s *Service) HotSearches(ctx context.Context, n int) ([]hotsearch.Term, error) {
	if s.hot == nil {
		return []hotsearch.Term{}, nil
	}
	return s.hot.Top(ctx, n)
}

// ErrInvalidArticle marks ingest payloads that cannot be stored.
var ErrInvalidArticle = errors.New("invalid article")

// Ingest stores articles from the editorial feed. Articles that arrive with
// content but no summary get one from the summarizer when it is set; a
// failed summary leaves the field empty.
func (s *Service) Ingest(ctx context.Context, articles []*models.Article) error {
	for i, a := range articles {
		if a == nil || strings.TrimSpace(a.Title) == "" {
			return fmt.Errorf("%w: item %d has no title", ErrInvalidArticle, i)
		}
		a.Title = strings.TrimSpace(a.Title)
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
	}
	if len(articles) == 0 {
		return nil
	}

	if s.summary != nil {
		sumCtx, cancel := context.WithTimeout(ctx, summarizeBudget)
		for _, a := range articles {
			s.summarize(sumCtx, a)
		}
		cancel()
	}
	return s.articles.SaveMany(ctx, articles)
}

func (s *Service) summarize(ctx context.Context, a *models.Article) {
	if strings.TrimSpace(a.Summary) != "" || strings.TrimSpace(a.Content) == "" {
		return
	}
	text, err := s.summary.Summarize(ctx, a.Title, a.Content)
	if err != nil {
		s.log.Warn("summarize article", slog.String("title", a.Title), slog.Any("err", err))
		return
	}
	a.Summary = text
}

func (s *Service) popularTags(ctx context.Context) ([]*models.Tag, error) {
	tags, err := s.tags.FindMostPopular(ctx, models.RelevanceTimeInDays)
	if err != nil {
		return nil, fmt.Errorf("popular tags: %w", err)
	}
	return tags, nil
}
