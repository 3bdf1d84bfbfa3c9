// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feedpilot/feedpilot-backend/internal/ingest"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/repository"
	"github.com/feedpilot/feedpilot-backend/internal/timeutil"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	PostRepo     repository.PostRepositoryInterface
	LogRepo      repository.LogRepositoryInterface
	Ingestor     *ingest.Ingestor
}

type CampaignDetails struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	FeedURLs       []string       `json:"feed_urls"`
	Schedule       string         `json:"schedule"`
	Timezone       string         `json:"timezone"`
	AutoPublish    bool           `json:"auto_publish"`
	IsActive       bool           `json:"is_active"`
	LastIngestedAt *time.Time     `json:"last_ingested_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Stats          map[string]int `json:"stats"`
}

type CreateCampaignInput struct {
	Name            string   `json:"name"`
	FeedURLs        []string `json:"feed_urls"`
	Schedule        string   `json:"schedule"`
	Timezone        *string  `json:"timezone"`
	CaptionTemplate string   `json:"caption_template"`
	TopicKeywords   []string `json:"topic_keywords"`
	AutoPublish     bool     `json:"auto_publish"`
}

// UpdateCampaignInput carries a partial update; nil fields are left unchanged.
type UpdateCampaignInput struct {
	Name            *string  `json:"name"`
	FeedURLs        []string `json:"feed_urls"`
	Schedule        *string  `json:"schedule"`
	Timezone        *string  `json:"timezone"`
	CaptionTemplate *string  `json:"caption_template"`
	TopicKeywords   []string `json:"topic_keywords"`
	AutoPublish     *bool    `json:"auto_publish"`
	IsActive        *bool    `json:"is_active"`
}

func (s *CampaignService) CreateCampaign(in CreateCampaignInput) (*model.Campaign, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("campaign name cannot be empty")
	}
	if len(in.FeedURLs) == 0 {
		return nil, fmt.Errorf("campaign needs at least one feed URL")
	}

	c := &model.Campaign{
		Name:            in.Name,
		FeedURLs:        in.FeedURLs,
		Schedule:        in.Schedule,
		Timezone:        in.Timezone,
		CaptionTemplate: in.CaptionTemplate,
		TopicKeywords:   in.TopicKeywords,
		AutoPublish:     in.AutoPublish,
		IsActive:        true,
	}
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) UpdateCampaign(campaignID int, in UpdateCampaignInput) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, fmt.Errorf("campaign name cannot be empty")
		}
		c.Name = *in.Name
	}
	if in.FeedURLs != nil {
		if len(in.FeedURLs) == 0 {
			return nil, fmt.Errorf("campaign needs at least one feed URL")
		}
		c.FeedURLs = in.FeedURLs
	}
	if in.Schedule != nil {
		c.Schedule = *in.Schedule
	}
	if in.Timezone != nil {
		c.Timezone = in.Timezone
	}
	if in.CaptionTemplate != nil {
		c.CaptionTemplate = *in.CaptionTemplate
	}
	if in.TopicKeywords != nil {
		c.TopicKeywords = in.TopicKeywords
	}
	if in.AutoPublish != nil {
		c.AutoPublish = *in.AutoPublish
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}

	if err := s.CampaignRepo.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, active *bool) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, active)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(campaignID int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.PostRepo.StatsByCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	return &CampaignDetails{
		ID:             campaign.ID,
		Name:           campaign.Name,
		FeedURLs:       campaign.FeedURLs,
		Schedule:       campaign.Schedule,
		Timezone:       timeutil.ResolveTimezone(campaign.Timezone),
		AutoPublish:    campaign.AutoPublish,
		IsActive:       campaign.IsActive,
		LastIngestedAt: campaign.LastIngestedAt,
		CreatedAt:      campaign.CreatedAt,
		Stats:          stats,
	}, nil
}

// ListActivity returns the campaign's newest activity log entries.
func (s *CampaignService) ListActivity(campaignID, limit int) ([]*model.LogEntry, error) {
	if _, err := s.CampaignRepo.GetByID(campaignID); err != nil {
		return nil, err
	}
	return s.LogRepo.ListByCampaign(campaignID, limit)
}

// TriggerIngest runs an immediate, user-requested ingestion with no schedule
// target; new items land as drafts regardless of campaign mode.
func (s *CampaignService) TriggerIngest(ctx context.Context, campaignID int) (*ingest.Result, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	return s.Ingestor.Ingest(ctx, campaign, nil)
}
