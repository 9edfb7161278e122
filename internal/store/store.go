package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nitesh/news_portal/internal/sanitize"
	"github.com/nitesh/news_portal/pkg/models"
)

// ErrTagNotFound is returned by FindTag when no tag has the requested id.
var ErrTagNotFound = errors.New("tag not found")

// minTermLength drops one-letter search terms, they match nearly everything.
const minTermLength = 2

// Options bound the result sets PgStore hands out.
type Options struct {
	PageSize    int
	SearchLimit int
	PopularTags int
}

type PgStore struct {
	db   *sqlx.DB
	opts Options
}

func NewPgStore(db *sql.DB, opts Options) *PgStore {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = opts.PageSize
	}
	if opts.PopularTags <= 0 {
		opts.PopularTags = 20
	}
	return &PgStore{db: sqlx.NewDb(db, "postgres"), opts: opts}
}

func RunMigrations(db *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS tags(
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS articles(
  id UUID PRIMARY KEY,
  title TEXT NOT NULL,
  summary TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS article_tags(
  article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
  PRIMARY KEY (article_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_articles_created ON articles(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_article_tags_tag ON article_tags(tag_id);
`
	_, err := db.Exec(initSQL)
	return err
}

// articleColumns selects an article row with its tags folded into one json column.
const articleColumns = `
a.id, a.title, a.summary, a.content, a.created_at,
COALESCE((
  SELECT json_agg(json_build_object('id', t.id, 'name', t.name) ORDER BY t.name)
  FROM article_tags at JOIN tags t ON t.id = at.tag_id
  WHERE at.article_id = a.id
), '[]'::json) AS tags`

// Ping verifies the database is reachable.
func (p *PgStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// FindLatest returns one page of articles, newest first.
func (p *PgStore) FindLatest(ctx context.Context, page int) (*models.ArticlePage, error) {
	out := p.newPage(page)

	if err := p.db.GetContext(ctx, &out.Total, `SELECT COUNT(*) FROM articles`); err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}

	query := `
SELECT ` + articleColumns + `
FROM articles a
ORDER BY a.created_at DESC, a.id
LIMIT $1 OFFSET $2
`
	if err := p.db.SelectContext(ctx, &out.Articles, query, out.Size, offset(out)); err != nil {
		return nil, fmt.Errorf("select latest articles: %w", err)
	}
	return out, nil
}

// FindByTag returns one page of the articles carrying tagID, newest first.
func (p *PgStore) FindByTag(ctx context.Context, tagID int64, page int) (*models.ArticlePage, error) {
	out := p.newPage(page)

	if err := p.db.GetContext(ctx, &out.Total, `SELECT COUNT(*) FROM article_tags WHERE tag_id = $1`, tagID); err != nil {
		return nil, fmt.Errorf("count articles by tag %d: %w", tagID, err)
	}

	query := `
SELECT ` + articleColumns + `
FROM articles a
JOIN article_tags f ON f.article_id = a.id
WHERE f.tag_id = $1
ORDER BY a.created_at DESC, a.id
LIMIT $2 OFFSET $3
`
	if err := p.db.SelectContext(ctx, &out.Articles, query, tagID, out.Size, offset(out)); err != nil {
		return nil, fmt.Errorf("select articles by tag %d: %w", tagID, err)
	}
	return out, nil
}

// FindBySearchQuery matches every term of the query against title and summary.
// A query without usable terms yields an empty result without touching the database.
func (p *PgStore) FindBySearchQuery(ctx context.Context, query string) ([]*models.Article, error) {
	terms := sanitize.Terms(query, minTermLength)
	rows := []*models.Article{}
	if len(terms) == 0 {
		return rows, nil
	}

	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)+1)
	for i, term := range terms {
		conds = append(conds, fmt.Sprintf("a.title ILIKE $%d OR a.summary ILIKE $%d", i+1, i+1))
		args = append(args, "%"+escapeLike(term)+"%")
	}
	args = append(args, p.opts.SearchLimit)

	stmt := `
SELECT ` + articleColumns + `
FROM articles a
WHERE ` + strings.Join(conds, " OR ") + `
ORDER BY a.created_at DESC, a.id
LIMIT $` + fmt.Sprint(len(args))

	if err := p.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	return rows, nil
}

// FindMostPopular ranks tags by how many articles used them in the last windowDays days.
func (p *PgStore) FindMostPopular(ctx context.Context, windowDays int) ([]*models.Tag, error) {
	query := `
SELECT t.id, t.name, COUNT(a.id) AS popularity
FROM tags t
JOIN article_tags at ON at.tag_id = t.id
JOIN articles a ON a.id = at.article_id
WHERE a.created_at >= NOW() - make_interval(days => $1)
GROUP BY t.id, t.name
ORDER BY popularity DESC, t.name ASC
LIMIT $2
`
	rows := []*models.Tag{}
	if err := p.db.SelectContext(ctx, &rows, query, windowDays, p.opts.PopularTags); err != nil {
		return nil, fmt.Errorf("select popular tags: %w", err)
	}
	return rows, nil
}

// FindTag resolves a tag by id.
func (p *PgStore) FindTag(ctx context.Context, id int64) (*models.Tag, error) {
	var tag models.Tag
	err := p.db.GetContext(ctx, &tag, `SELECT id, name FROM tags WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select tag %d: %w", id, err)
	}
	return &tag, nil
}

// SaveMany upserts articles and replaces their tag associations in one transaction.
// Tags are created by name on first use.
func (p *PgStore) SaveMany(ctx context.Context, articles []*models.Article) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	upsert := `
INSERT INTO articles (id, title, summary, content, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET
 title=EXCLUDED.title,
 summary=EXCLUDED.summary,
 content=EXCLUDED.content,
 created_at=EXCLUDED.created_at;
`

	for _, a := range articles {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}

		if _, err := tx.ExecContext(ctx, upsert, a.ID, a.Title, a.Summary, a.Content, a.CreatedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert article id=%s: %w", a.ID, err)
		}
		if err := replaceTags(ctx, tx, a.ID, normalizeNames(a.Tags.Names())); err != nil {
			tx.Rollback()
			return fmt.Errorf("tag article id=%s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

func replaceTags(ctx context.Context, tx *sqlx.Tx, articleID string, names []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM article_tags WHERE article_id = $1`, articleID); err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tags (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`,
		pq.Array(names),
	); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO article_tags (article_id, tag_id) SELECT $1, id FROM tags WHERE name = ANY($2::text[])`,
		articleID, pq.Array(names),
	)
	return err
}

func (p *PgStore) newPage(page int) *models.ArticlePage {
	if page < 1 {
		page = 1
	}
	return &models.ArticlePage{
		Articles: []*models.Article{},
		Number:   page,
		Size:     p.opts.PageSize,
	}
}

func offset(page *models.ArticlePage) int {
	return (page.Number - 1) * page.Size
}

func normalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
