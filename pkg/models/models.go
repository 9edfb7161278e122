package models

import (
	"time"

	dbtypes "github.com/nitesh/news_portal/internal/db"
)

// RelevanceTimeInDays is the trailing window over which tag popularity is counted.
const RelevanceTimeInDays = 7

// Article represents a news article record used across the service.
type Article struct {
	ID        string          `db:"id" json:"id"`
	Title     string          `db:"title" json:"title"`
	Summary   string          `db:"summary" json:"summary"`
	Content   string          `db:"content" json:"content"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	Tags      dbtypes.TagList `db:"tags" json:"tags"`
}

// Tag is a label attached to any number of articles.
type Tag struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`

	// Popularity is set by the most-popular query only (not persisted).
	Popularity int `db:"popularity" json:"popularity,omitempty"`
}

func (t Tag) String() string {
	return t.Name
}

// ArticlePage is one slice of an ordered article listing.
type ArticlePage struct {
	Articles []*Article `json:"articles"`
	Number   int        `json:"page"`
	Size     int        `json:"page_size"`
	Total    int        `json:"total"`
}

// LastPage returns the number of the last non-empty page, at least 1.
func (p *ArticlePage) LastPage() int {
	if p.Size <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

func (p *ArticlePage) HasPrevious() bool {
	return p.Number > 1
}

func (p *ArticlePage) HasNext() bool {
	return p.Number < p.LastPage()
}

func (p *ArticlePage) PreviousPage() int {
	if p.Number <= 1 {
		return 1
	}
	return p.Number - 1
}

func (p *ArticlePage) NextPage() int {
	return p.Number + 1
}
