// internal/service/post_service.go
package service

import (
	"context"

	"github.com/feedpilot/feedpilot-backend/internal/lifecycle"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/repository"
)

type PostService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	PostRepo     repository.PostRepositoryInterface
	Machine      *lifecycle.Machine
}

func (s *PostService) ListByCampaign(campaignID int, status model.Status) ([]*model.Post, error) {
	return s.PostRepo.ListByCampaignAndStatus(campaignID, status)
}

// Unschedule reverts a scheduled post to draft. There is no cancelled state.
func (s *PostService) Unschedule(postID int) (*model.Post, error) {
	post, campaign, err := s.load(postID)
	if err != nil {
		return nil, err
	}
	if err := s.Machine.Unschedule(post, campaign); err != nil {
		return nil, err
	}
	return post, nil
}

// Reprocess returns a failed post to the draft pool and re-runs enrichment
// without a schedule target, leaving the result for manual review.
func (s *PostService) Reprocess(ctx context.Context, postID int) (*model.Post, error) {
	post, campaign, err := s.load(postID)
	if err != nil {
		return nil, err
	}
	if err := s.Machine.Reenter(post, campaign); err != nil {
		return nil, err
	}
	if err := s.Machine.Enrich(ctx, post, campaign, nil); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) load(postID int) (*model.Post, *model.Campaign, error) {
	post, err := s.PostRepo.GetByID(postID)
	if err != nil {
		return nil, nil, err
	}
	campaign, err := s.CampaignRepo.GetByID(post.CampaignID)
	if err != nil {
		return nil, nil, err
	}
	return post, campaign, nil
}
