// Package scheduler drives the recurring cycle: slot filling, preparation,
// publication and cleanup. One controller instance owns all mutable scheduler
// state; a fresh instance per test gives a fresh state.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feedpilot/feedpilot-backend/internal/audit"
	"github.com/feedpilot/feedpilot-backend/internal/lifecycle"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/repository"
	"github.com/feedpilot/feedpilot-backend/internal/schedule"
	"github.com/feedpilot/feedpilot-backend/internal/selection"
	"github.com/feedpilot/feedpilot-backend/internal/timeutil"
)

const dayLayout = "2006-01-02"

// State is the controller's mutable scheduler state.
type State struct {
	LastCycleStarted time.Time
	LastCleanupDay   string
}

type Controller struct {
	Campaigns repository.CampaignRepositoryInterface
	Posts     repository.PostRepositoryInterface
	Machine   *lifecycle.Machine
	Policy    *selection.Policy
	Ingestor  selection.Ingestor
	Executor  *Executor
	Audit     *audit.Recorder
	Logger    *logrus.Logger

	CycleInterval    time.Duration
	MinCycleGap      time.Duration
	StartupDelay     time.Duration
	Lookahead        time.Duration
	OverdueGrace     time.Duration
	ReingestInterval time.Duration
	RetentionDays    int

	// Now is injectable for tests.
	Now func() time.Time

	State State
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Run blocks until ctx is cancelled. The startup delay avoids acting on cold
// state right after a process start.
func (c *Controller) Run(ctx context.Context) {
	c.Logger.WithField("interval", c.CycleInterval.String()).Info("Starting scheduler")

	select {
	case <-ctx.Done():
		return
	case <-time.After(c.StartupDelay):
	}

	ticker := time.NewTicker(c.CycleInterval)
	defer ticker.Stop()

	c.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("Stopping scheduler")
			return
		case <-ticker.C:
			c.RunCycle(ctx)
		}
	}
}

// RunCycle executes one full cycle: per-campaign slot work, then preparation,
// then publication, then (once per day) cleanup. Returns false if the minimum
// gap since the previous cycle has not elapsed.
func (c *Controller) RunCycle(ctx context.Context) bool {
	now := c.now()

	// Cycles never overlap: rapid re-entry after a restart is refused until
	// the minimum gap since the previous cycle began has passed.
	if !c.State.LastCycleStarted.IsZero() && now.Sub(c.State.LastCycleStarted) < c.MinCycleGap {
		c.Logger.WithField("last_cycle", c.State.LastCycleStarted).Debug("Skipping cycle, minimum gap not elapsed")
		return false
	}
	c.State.LastCycleStarted = now
	c.Executor.ResetCycle()

	campaigns, err := c.Campaigns.ListActive()
	if err != nil {
		c.Logger.WithError(err).Error("Failed to list active campaigns")
		return true
	}

	for _, campaign := range campaigns {
		if ctx.Err() != nil {
			return true
		}
		// One campaign's failure must not abort the cycle for the others.
		if err := c.runCampaign(ctx, campaign, now); err != nil {
			c.Audit.Error(campaign.ID, nil, "Campaign cycle step failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	c.runPreparation(ctx, campaigns, now)

	result, err := c.Executor.PublishDue(ctx, now)
	if err != nil {
		c.Logger.WithError(err).Error("Publish pass failed")
	} else if result.Published > 0 || result.Failed > 0 {
		c.Logger.WithFields(logrus.Fields{
			"published": result.Published,
			"failed":    result.Failed,
		}).Info("Publish pass finished")
	}

	c.runCleanup(now)
	return true
}

// runCampaign branches on the campaign's mode. Auto-publish campaigns consult
// the slot calculator and selection policy; manual campaigns only get the
// ingestion gating rule.
func (c *Controller) runCampaign(ctx context.Context, campaign *model.Campaign, now time.Time) error {
	if !campaign.AutoPublish {
		return c.runManual(ctx, campaign, now)
	}

	// Seeding the search one grace period back picks up a slot missed while
	// the process was down; the selection policy's covered/served checks stop
	// it from being filled twice.
	slot, ok, err := schedule.NextSlot(campaign, now.Add(-c.OverdueGrace))
	if err != nil {
		// Invalid recurrence degrades to "no action this cycle".
		c.Audit.Warning(campaign.ID, nil, "Unusable recurrence expression", map[string]any{
			"schedule": campaign.Schedule,
			"error":    err.Error(),
		})
		return nil
	}
	if !ok {
		return nil
	}

	// The policy is only consulted for slots inside the actionable window.
	if slot.After(now.Add(c.Lookahead)) {
		return nil
	}

	outcome, err := c.Policy.FillSlot(ctx, campaign, slot)
	if err != nil {
		return err
	}
	c.Logger.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"slot":        timeutil.FormatInstant(slot, campaign.Timezone),
		"outcome":     string(outcome),
	}).Debug("Slot decision")
	return nil
}

// runManual applies the gating rule: re-ingest when the interval has elapsed
// or the draft pool is empty.
func (c *Controller) runManual(ctx context.Context, campaign *model.Campaign, now time.Time) error {
	stale := campaign.LastIngestedAt == nil || now.Sub(*campaign.LastIngestedAt) >= c.ReingestInterval

	var empty bool
	if !stale {
		count, err := c.Posts.CountByCampaignAndStatus(campaign.ID, model.StatusDraft)
		if err != nil {
			return err
		}
		empty = count == 0
	}

	if !stale && !empty {
		return nil
	}
	_, err := c.Ingestor.Ingest(ctx, campaign, nil)
	return err
}

// runPreparation enriches near-due scheduled posts that still lack a caption
// or image, so the publish pass never waits on generation.
func (c *Controller) runPreparation(ctx context.Context, campaigns []*model.Campaign, now time.Time) {
	due, err := c.Posts.ScheduledDueWithin(now.Add(c.Lookahead))
	if err != nil {
		c.Logger.WithError(err).Error("Preparation pass failed to collect posts")
		return
	}

	byID := make(map[int]*model.Campaign, len(campaigns))
	for _, campaign := range campaigns {
		byID[campaign.ID] = campaign
	}

	for _, post := range due {
		if post.HasCaption() && post.ImageURL != "" {
			continue
		}
		campaign, ok := byID[post.CampaignID]
		if !ok {
			continue
		}
		if err := c.Machine.Enrich(ctx, post, campaign, nil); err != nil {
			c.Audit.Error(campaign.ID, &post.ID, "Preparation enrichment failed", map[string]any{
				"error": err.Error(),
			})
		}
	}
}

// runCleanup deletes aged-out posted posts once per calendar day.
func (c *Controller) runCleanup(now time.Time) {
	day := now.Format(dayLayout)
	if c.State.LastCleanupDay == day {
		return
	}
	c.State.LastCleanupDay = day

	cutoff := now.AddDate(0, 0, -c.retentionDays())
	deleted, err := c.Posts.DeletePostedBefore(cutoff)
	if err != nil {
		c.Logger.WithError(err).Error("Cleanup pass failed")
		return
	}
	if deleted > 0 {
		c.Logger.WithField("deleted", deleted).Info("Cleaned up aged posted posts")
	}
}

func (c *Controller) retentionDays() int {
	if c.RetentionDays < 1 {
		return 30
	}
	return c.RetentionDays
}
