package enrich

import (
	"context"
	"strings"

	"github.com/feedpilot/feedpilot-backend/internal/model"
)

// KeywordRelevance scores a post against the campaign's topic keywords. A
// campaign without keywords accepts everything.
type KeywordRelevance struct{}

func (KeywordRelevance) Relevant(ctx context.Context, post *model.Post, campaign *model.Campaign) (bool, error) {
	if len(campaign.TopicKeywords) == 0 {
		return true, nil
	}

	text := strings.ToLower(post.Title + " " + post.Summary)
	for _, keyword := range campaign.TopicKeywords {
		k := strings.ToLower(strings.TrimSpace(keyword))
		if k == "" {
			continue
		}
		if strings.Contains(text, k) {
			return true, nil
		}
	}
	return false, nil
}
