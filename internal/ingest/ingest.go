// Package ingest pulls a campaign's syndication feeds and turns unseen items
// into posts. Items are de-duplicated against existing posts by GUID, URL and
// title before anything is created.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/feedpilot/feedpilot-backend/internal/audit"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/repository"
)

// FeedFetcher retrieves and parses one feed URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// HTTPFetcher is the production fetcher backed by gofeed.
type HTTPFetcher struct {
	Parser *gofeed.Parser
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Parser: gofeed.NewParser()}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	return f.Parser.ParseURLWithContext(url, ctx)
}

// Result summarizes one ingestion run.
type Result struct {
	ItemsFetched int
	ItemsNew     int
	Errors       []error

	// NewPosts are the created posts, and Scheduled is the one that took the
	// target slot when one was given (nil otherwise).
	NewPosts  []*model.Post
	Scheduled *model.Post
}

type Ingestor struct {
	Campaigns    repository.CampaignRepositoryInterface
	Posts        repository.PostRepositoryInterface
	Fetcher      FeedFetcher
	Audit        *audit.Recorder
	FetchTimeout time.Duration

	Now func() time.Time
}

func (i *Ingestor) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// Ingest fetches every source of the campaign. With a target slot on an
// auto-publish campaign the most recently published new item is created
// directly as scheduled for that slot; everything else lands as a draft.
func (i *Ingestor) Ingest(ctx context.Context, campaign *model.Campaign, targetSlot *time.Time) (*Result, error) {
	result := &Result{}

	var newest *model.Post
	var newestPublished time.Time

	for _, feedURL := range campaign.FeedURLs {
		feed, err := i.fetchOne(ctx, feedURL)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("fetch %s: %w", feedURL, err))
			i.Audit.Warning(campaign.ID, nil, "Feed fetch failed", map[string]any{
				"feed_url": feedURL,
				"error":    err.Error(),
			})
			continue
		}

		result.ItemsFetched += len(feed.Items)
		for _, item := range feed.Items {
			exists, err := i.Posts.ExistsBySource(campaign.ID, item.GUID, item.Link, item.Title)
			if err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			if exists {
				continue
			}

			post := &model.Post{
				CampaignID: campaign.ID,
				GUID:       item.GUID,
				SourceURL:  item.Link,
				Title:      item.Title,
				Summary:    item.Description,
				Status:     model.StatusDraft,
			}
			if err := i.Posts.Create(post); err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			result.ItemsNew++
			result.NewPosts = append(result.NewPosts, post)

			published := i.now()
			if item.PublishedParsed != nil {
				published = *item.PublishedParsed
			}
			if newest == nil || published.After(newestPublished) {
				newest = post
				newestPublished = published
			}
		}
	}

	if result.ItemsFetched > 0 {
		if err := i.Campaigns.TouchLastIngested(campaign.ID, i.now()); err != nil {
			result.Errors = append(result.Errors, err)
		}
	}

	if targetSlot != nil && campaign.AutoPublish && newest != nil {
		slot := targetSlot.UTC()
		newest.Status = model.StatusScheduled
		newest.ScheduledFor = &slot
		if err := i.Posts.Update(newest); err != nil {
			result.Errors = append(result.Errors, err)
		} else {
			result.Scheduled = newest
		}
	}

	i.Audit.Info(campaign.ID, nil, "Ingestion finished", map[string]any{
		"items_fetched": result.ItemsFetched,
		"items_new":     result.ItemsNew,
		"errors":        len(result.Errors),
	})
	return result, nil
}

func (i *Ingestor) fetchOne(ctx context.Context, url string) (*gofeed.Feed, error) {
	timeout := i.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return i.Fetcher.Fetch(fetchCtx, url)
}
