package enrich

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/feedpilot/feedpilot-backend/internal/model"
)

func TestCaptionerRendersTemplate(t *testing.T) {
	c := NewCaptioner(NewSafetyValidator())
	post := &model.Post{
		Title:     "Go 1.25 released",
		SourceURL: "https://example.com/go",
		Summary:   "The latest Go release.",
	}
	campaign := &model.Campaign{CaptionTemplate: "{title} — {summary} {link}"}

	caption, err := c.Generate(context.Background(), post, campaign)
	require.NoError(t, err)
	require.Equal(t, "Go 1.25 released — The latest Go release. https://example.com/go", caption)
}

func TestCaptionerDefaultTemplate(t *testing.T) {
	c := NewCaptioner(NewSafetyValidator())
	post := &model.Post{Title: "Hello", SourceURL: "https://example.com"}

	caption, err := c.Generate(context.Background(), post, &model.Campaign{})
	require.NoError(t, err)
	require.Equal(t, "Hello https://example.com", caption)
}

func TestCaptionerRetriesWithShorterSummary(t *testing.T) {
	validator := &SafetyValidator{MaxLength: 160}
	c := NewCaptioner(validator)
	post := &model.Post{
		Title:     "Short title",
		SourceURL: "https://example.com",
		Summary:   strings.Repeat("word ", 100),
	}
	campaign := &model.Campaign{CaptionTemplate: "{title} {summary} {link}"}

	caption, err := c.Generate(context.Background(), post, campaign)
	require.NoError(t, err)
	require.LessOrEqual(t, len(caption), 160)
	require.Contains(t, caption, "Short title")
}

func TestCaptionerExhaustsAttempts(t *testing.T) {
	// A banned phrase in the title cannot be fixed by truncating the summary.
	c := NewCaptioner(NewSafetyValidator())
	post := &model.Post{Title: "Buy now and save", SourceURL: "https://example.com"}
	campaign := &model.Campaign{CaptionTemplate: "{title} {link}"}

	_, err := c.Generate(context.Background(), post, campaign)
	require.Error(t, err)
	require.Contains(t, err.Error(), "banned phrase")
}

func TestSafetyValidator(t *testing.T) {
	v := NewSafetyValidator()

	require.NoError(t, v.Validate("A perfectly fine caption"))
	require.Error(t, v.Validate(""))
	require.Error(t, v.Validate("   "))
	require.Error(t, v.Validate("CLICK HERE for more"))
	require.Error(t, v.Validate(strings.Repeat("x", 501)))
}

func TestRenderTemplate(t *testing.T) {
	out := RenderTemplate("{a} and {b}", map[string]string{"a": "one", "b": "two"})
	require.Equal(t, "one and two", out)
}
