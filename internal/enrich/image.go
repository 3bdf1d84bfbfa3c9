package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/feedpilot/feedpilot-backend/internal/model"
)

// ImageLookup answers whether an image URL is already attached to any post.
type ImageLookup interface {
	ImageURLInUse(url string) (bool, error)
}

// ImageSearcher finds an illustrative image for a post through an
// Openverse-compatible search API. URLs already used by any post are rejected;
// when the caption-derived query misses, a concept search on the campaign name
// is tried as a fallback.
type ImageSearcher struct {
	BaseURL     string
	Client      *http.Client
	Lookup      ImageLookup
	MaxAttempts int
}

func NewImageSearcher(baseURL string, lookup ImageLookup) *ImageSearcher {
	return &ImageSearcher{
		BaseURL:     baseURL,
		Client:      &http.Client{Timeout: 15 * time.Second},
		Lookup:      lookup,
		MaxAttempts: 3,
	}
}

type imageSearchResponse struct {
	Results []struct {
		URL string `json:"url"`
	} `json:"results"`
}

func (s *ImageSearcher) FindImage(ctx context.Context, post *model.Post, campaign *model.Campaign) (string, error) {
	queries := []string{searchTerms(post.Title), campaign.Name}

	var lastErr error
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		for attempt := 1; attempt <= s.attempts(); attempt++ {
			imageURL, err := s.search(ctx, q, attempt)
			if err != nil {
				lastErr = err
				continue
			}
			if imageURL != "" {
				return imageURL, nil
			}
			lastErr = fmt.Errorf("no unused image for query %q", q)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no search terms available")
	}
	return "", fmt.Errorf("image search exhausted: %w", lastErr)
}

// search returns the first result URL not yet used by an existing post. The
// page parameter skips results that earlier attempts already rejected.
func (s *ImageSearcher) search(ctx context.Context, query string, page int) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/images/?q=%s&page=%d&page_size=10",
		strings.TrimRight(s.BaseURL, "/"), url.QueryEscape(query), page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image search returned %d", resp.StatusCode)
	}

	var body imageSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	for _, result := range body.Results {
		if result.URL == "" {
			continue
		}
		used, err := s.Lookup.ImageURLInUse(result.URL)
		if err != nil {
			return "", err
		}
		if !used {
			return result.URL, nil
		}
	}
	return "", nil
}

func (s *ImageSearcher) attempts() int {
	if s.MaxAttempts < 1 {
		return 1
	}
	return s.MaxAttempts
}

// searchTerms keeps the few longest words of the title as the search query.
func searchTerms(title string) string {
	words := strings.Fields(title)
	terms := make([]string, 0, 4)
	for _, w := range words {
		cleaned := strings.Trim(strings.ToLower(w), ".,!?:;\"'")
		if len(cleaned) < 4 {
			continue
		}
		terms = append(terms, cleaned)
		if len(terms) == 4 {
			break
		}
	}
	return strings.Join(terms, " ")
}
