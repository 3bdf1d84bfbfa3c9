// Package enrich produces captions and images for draft posts.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/feedpilot/feedpilot-backend/internal/model"
)

const defaultCaptionTemplate = "{title} {link}"

// maxSummaryRunes bounds how much of the item summary a caption may carry;
// each failed safety attempt halves it.
const maxSummaryRunes = 280

// Captioner renders a campaign's caption template against a post's feed-item
// fields, retrying with a shorter summary until the safety validator passes.
type Captioner struct {
	Safety      *SafetyValidator
	MaxAttempts int
}

func NewCaptioner(safety *SafetyValidator) *Captioner {
	return &Captioner{Safety: safety, MaxAttempts: 3}
}

func (c *Captioner) Generate(ctx context.Context, post *model.Post, campaign *model.Campaign) (string, error) {
	template := campaign.CaptionTemplate
	if strings.TrimSpace(template) == "" {
		template = defaultCaptionTemplate
	}

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	summaryBudget := maxSummaryRunes
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		caption := RenderTemplate(template, map[string]string{
			"title":   post.Title,
			"link":    post.SourceURL,
			"summary": truncateRunes(post.Summary, summaryBudget),
		})
		caption = strings.Join(strings.Fields(caption), " ")

		if err := c.Safety.Validate(caption); err != nil {
			lastErr = err
			summaryBudget /= 2
			continue
		}
		return caption, nil
	}
	return "", fmt.Errorf("caption rejected after %d attempts: %w", attempts, lastErr)
}

// RenderTemplate substitutes {placeholder} markers with the given values.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}
