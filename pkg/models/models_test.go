package models_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nitesh/news_portal/pkg/models"
)

func TestArticlePageNavigation(t *testing.T) {
	p := &models.ArticlePage{Number: 2, Size: 10, Total: 25}
	require.Equal(t, 3, p.LastPage())
	require.True(t, p.HasPrevious())
	require.True(t, p.HasNext())
	require.Equal(t, 1, p.PreviousPage())
	require.Equal(t, 3, p.NextPage())

	last := &models.ArticlePage{Number: 3, Size: 10, Total: 25}
	require.False(t, last.HasNext())
}

func TestArticlePageEmpty(t *testing.T) {
	p := &models.ArticlePage{Number: 1, Size: 10}
	require.Equal(t, 1, p.LastPage())
	require.False(t, p.HasPrevious())
	require.False(t, p.HasNext())

	beyond := &models.ArticlePage{Number: 9, Size: 10, Total: 5}
	require.False(t, beyond.HasNext())
	require.True(t, beyond.HasPrevious())
}

func TestTagString(t *testing.T) {
	require.Equal(t, "golang", models.Tag{ID: 1, Name: "golang"}.String())
}
