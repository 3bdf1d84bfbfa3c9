package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/feedpilot/feedpilot-backend/internal/model"
)

func TestKeywordRelevance(t *testing.T) {
	ctx := context.Background()
	checker := KeywordRelevance{}

	campaign := &model.Campaign{TopicKeywords: []string{"golang", "database"}}

	relevant, err := checker.Relevant(ctx, &model.Post{Title: "Why Golang won"}, campaign)
	require.NoError(t, err)
	require.True(t, relevant)

	relevant, err = checker.Relevant(ctx, &model.Post{
		Title:   "Cooking tips",
		Summary: "Great database of recipes",
	}, campaign)
	require.NoError(t, err)
	require.True(t, relevant)

	relevant, err = checker.Relevant(ctx, &model.Post{Title: "Cooking tips"}, campaign)
	require.NoError(t, err)
	require.False(t, relevant)

	// No keywords configured: everything is relevant.
	relevant, err = checker.Relevant(ctx, &model.Post{Title: "Anything"}, &model.Campaign{})
	require.NoError(t, err)
	require.True(t, relevant)
}
