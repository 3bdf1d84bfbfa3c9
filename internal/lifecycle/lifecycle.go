// Package lifecycle owns every post status transition. All mutations of a
// post's status, schedule, and failure bookkeeping go through the Machine so
// the legal-transition table in model is enforced in one place.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/feedpilot/feedpilot-backend/internal/audit"
	appErrors "github.com/feedpilot/feedpilot-backend/internal/errors"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/repository"
	"github.com/feedpilot/feedpilot-backend/internal/timeutil"
)

// RelevanceRejectedReason marks a terminal content rejection; posts failed
// with this reason are never retried by the scheduler.
const RelevanceRejectedReason = "content not relevant to campaign"

type RelevanceChecker interface {
	Relevant(ctx context.Context, post *model.Post, campaign *model.Campaign) (bool, error)
}

type CaptionGenerator interface {
	Generate(ctx context.Context, post *model.Post, campaign *model.Campaign) (string, error)
}

type ImageFinder interface {
	FindImage(ctx context.Context, post *model.Post, campaign *model.Campaign) (string, error)
}

type Machine struct {
	Posts     repository.PostRepositoryInterface
	Relevance RelevanceChecker
	Captions  CaptionGenerator
	Images    ImageFinder
	Audit     *audit.Recorder
}

// Enrich validates relevance, generates a missing caption and image, and
// finishes the post either into scheduled (only when a schedule target is
// given and the campaign is an active auto-publisher) or back into draft for
// manual review. Failures land the post in failed with a captured reason.
func (m *Machine) Enrich(ctx context.Context, post *model.Post, campaign *model.Campaign, scheduleTarget *time.Time) error {
	if post.Status == model.StatusFailed && post.FailureReason == RelevanceRejectedReason {
		return fmt.Errorf("post %d: %s", post.ID, RelevanceRejectedReason)
	}
	if post.Status != model.StatusDraft && post.Status != model.StatusScheduled {
		return appErrors.NewIllegalTransition(post.Status.String(), model.StatusScheduled.String())
	}

	relevant, err := m.Relevance.Relevant(ctx, post, campaign)
	if err != nil {
		// Availability over precision: a broken relevance check must not
		// starve the campaign.
		m.Audit.Warning(campaign.ID, &post.ID, "Relevance check errored, assuming relevant",
			map[string]any{"error": err.Error()})
		relevant = true
	}
	if !relevant {
		post.FailureReason = RelevanceRejectedReason
		post.Status = model.StatusFailed
		post.ScheduledFor = nil
		if err := m.Posts.Update(post); err != nil {
			return err
		}
		m.Audit.Warning(campaign.ID, &post.ID, "Post rejected as not relevant", nil)
		return nil
	}

	if !post.HasCaption() {
		caption, err := m.Captions.Generate(ctx, post, campaign)
		if err != nil {
			return m.failPost(post, campaign, fmt.Errorf("caption generation: %w", err))
		}
		post.GeneratedCaption = caption
	}

	if post.ImageURL == "" {
		imageURL, err := m.Images.FindImage(ctx, post, campaign)
		if err != nil {
			return m.failPost(post, campaign, fmt.Errorf("image search: %w", err))
		}
		post.ImageURL = imageURL
	}

	if post.Status == model.StatusScheduled {
		// Preparation of an already-scheduled post: keep its slot, persist the
		// generated caption and image.
		if err := m.Posts.Update(post); err != nil {
			return err
		}
		m.Audit.Info(campaign.ID, &post.ID, "Scheduled post prepared", nil)
		return nil
	}

	if scheduleTarget != nil && campaign.IsActive && campaign.AutoPublish {
		target := scheduleTarget.UTC()
		post.Status = model.StatusScheduled
		post.ScheduledFor = &target
		if err := m.Posts.Update(post); err != nil {
			return err
		}
		m.Audit.Info(campaign.ID, &post.ID, "Post enriched and scheduled", map[string]any{
			"scheduled_for": timeutil.FormatInstant(target, campaign.Timezone),
		})
		return nil
	}

	// No explicit target: the post stays in draft for manual review.
	post.Status = model.StatusDraft
	post.ScheduledFor = nil
	if err := m.Posts.Update(post); err != nil {
		return err
	}
	m.Audit.Info(campaign.ID, &post.ID, "Post enriched, awaiting review", nil)
	return nil
}

// Promote moves a ready draft straight into scheduled for the target slot.
func (m *Machine) Promote(post *model.Post, campaign *model.Campaign, target time.Time) error {
	if !post.Status.CanTransitionTo(model.StatusScheduled) {
		return appErrors.NewIllegalTransition(post.Status.String(), model.StatusScheduled.String())
	}
	slot := target.UTC()
	post.Status = model.StatusScheduled
	post.ScheduledFor = &slot
	if err := m.Posts.Update(post); err != nil {
		return err
	}
	m.Audit.Info(campaign.ID, &post.ID, "Draft promoted to scheduled", map[string]any{
		"scheduled_for": timeutil.FormatInstant(slot, campaign.Timezone),
	})
	return nil
}

// MarkPosted finishes a successful publish.
func (m *Machine) MarkPosted(post *model.Post, campaign *model.Campaign, at time.Time) error {
	if !post.Status.CanTransitionTo(model.StatusPosted) {
		return appErrors.NewIllegalTransition(post.Status.String(), model.StatusPosted.String())
	}
	posted := at.UTC()
	post.Status = model.StatusPosted
	post.PostedAt = &posted
	post.ScheduledFor = nil
	post.FailureReason = ""
	if err := m.Posts.Update(post); err != nil {
		return err
	}
	m.Audit.Info(campaign.ID, &post.ID, "Post published", map[string]any{
		"posted_at": timeutil.FormatInstant(posted, campaign.Timezone),
	})
	return nil
}

// MarkFailed records a publish failure after retries were exhausted.
func (m *Machine) MarkFailed(post *model.Post, campaign *model.Campaign, reason string, attempts int) error {
	if !post.Status.CanTransitionTo(model.StatusFailed) {
		return appErrors.NewIllegalTransition(post.Status.String(), model.StatusFailed.String())
	}
	post.Status = model.StatusFailed
	post.ScheduledFor = nil
	post.FailureReason = reason
	post.RetryCount = attempts
	if err := m.Posts.Update(post); err != nil {
		return err
	}
	m.Audit.Error(campaign.ID, &post.ID, "Post failed", map[string]any{
		"reason":   reason,
		"attempts": attempts,
	})
	return nil
}

// Unschedule is the user-triggered return of a scheduled post to the draft
// pool. There is no cancelled state; unscheduling is simply reverting.
func (m *Machine) Unschedule(post *model.Post, campaign *model.Campaign) error {
	if post.Status != model.StatusScheduled {
		return appErrors.NewIllegalTransition(post.Status.String(), model.StatusDraft.String())
	}
	post.Status = model.StatusDraft
	post.ScheduledFor = nil
	if err := m.Posts.Update(post); err != nil {
		return err
	}
	m.Audit.Info(campaign.ID, &post.ID, "Post unscheduled back to draft", nil)
	return nil
}

// Reenter is the manual recovery path for failed posts.
func (m *Machine) Reenter(post *model.Post, campaign *model.Campaign) error {
	if post.Status != model.StatusFailed {
		return appErrors.NewIllegalTransition(post.Status.String(), model.StatusDraft.String())
	}
	post.Status = model.StatusDraft
	post.ScheduledFor = nil
	post.FailureReason = ""
	post.RetryCount = 0
	if err := m.Posts.Update(post); err != nil {
		return err
	}
	m.Audit.Info(campaign.ID, &post.ID, "Failed post returned to draft", nil)
	return nil
}

func (m *Machine) failPost(post *model.Post, campaign *model.Campaign, cause error) error {
	post.Status = model.StatusFailed
	post.ScheduledFor = nil
	post.FailureReason = cause.Error()
	post.RetryCount++
	if err := m.Posts.Update(post); err != nil {
		return err
	}
	m.Audit.Error(campaign.ID, &post.ID, "Enrichment failed", map[string]any{
		"reason": cause.Error(),
	})
	return nil
}
