package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/feedpilot/feedpilot-backend/internal/audit"
	"github.com/feedpilot/feedpilot-backend/internal/lifecycle"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/publish"
	"github.com/feedpilot/feedpilot-backend/internal/repository"
)

// Executor publishes every due scheduled post at most once per cycle. The
// published-id set is shared across campaigns within a cycle and cleared by
// the controller at the start of the next one.
type Executor struct {
	Campaigns repository.CampaignRepositoryInterface
	Posts     repository.PostRepositoryInterface
	Machine   *lifecycle.Machine
	Transport publish.Transport
	Exporter  publish.AuditExporter
	Audit     *audit.Recorder

	Attempts int
	Backoff  time.Duration

	// Sleep is injectable so tests never wait for real backoff.
	Sleep func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	published map[int]struct{}
}

// PublishResult counts outcomes of one publish pass.
type PublishResult struct {
	Published int
	Failed    int
}

// ResetCycle clears the published-id set. Called once per cycle, never
// between the passes of a single cycle.
func (e *Executor) ResetCycle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published = make(map[int]struct{})
}

// PublishDue collects due scheduled posts across all active campaigns and
// delivers each at most once.
func (e *Executor) PublishDue(ctx context.Context, now time.Time) (PublishResult, error) {
	var result PublishResult

	campaigns, err := e.Campaigns.ListActive()
	if err != nil {
		return result, fmt.Errorf("listing active campaigns: %w", err)
	}

	for _, campaign := range campaigns {
		due, err := e.Posts.DueScheduled(campaign.ID, now)
		if err != nil {
			e.Audit.Error(campaign.ID, nil, "Failed to collect due posts", map[string]any{
				"error": err.Error(),
			})
			continue
		}

		for _, candidate := range due {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if e.alreadyAttempted(candidate.ID) {
				continue
			}

			published, err := e.publishOne(ctx, candidate.ID, campaign, now)
			e.markAttempted(candidate.ID)
			if err != nil {
				result.Failed++
				continue
			}
			if published {
				result.Published++
			}
		}
	}
	return result, nil
}

// publishOne re-fetches the post, verifies it is still scheduled, and
// delivers with bounded retries. Returns (false, nil) when the post was
// skipped because a concurrent transition beat us to it.
func (e *Executor) publishOne(ctx context.Context, postID int, campaign *model.Campaign, now time.Time) (bool, error) {
	// Re-validate against storage: a manual unschedule may have happened
	// between collection and execution.
	post, err := e.Posts.GetByID(postID)
	if err != nil {
		return false, err
	}
	if post.Status != model.StatusScheduled {
		e.Audit.Info(campaign.ID, &post.ID, "Skipping publish, post no longer scheduled",
			map[string]any{"status": post.Status.String()})
		return false, nil
	}

	attempts := e.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = e.Transport.Deliver(ctx, post, campaign)
		if lastErr == nil {
			break
		}
		if attempt == attempts {
			break
		}
		if err := e.sleep(ctx, time.Duration(attempt)*e.backoff()); err != nil {
			lastErr = err
			break
		}
	}

	if lastErr != nil {
		// A shutdown mid-publish is not a delivery failure: the post stays
		// scheduled and the next cycle picks it up again.
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			e.Audit.Warning(campaign.ID, &post.ID, "Publish interrupted, will retry next cycle", map[string]any{
				"error": lastErr.Error(),
			})
			return false, lastErr
		}
		if err := e.Machine.MarkFailed(post, campaign, lastErr.Error(), attempts); err != nil {
			return false, err
		}
		return false, lastErr
	}

	if err := e.Machine.MarkPosted(post, campaign, now); err != nil {
		return false, err
	}

	// Best-effort: export failure must not affect the post.
	if err := e.Exporter.Export(ctx, post, campaign); err != nil {
		e.Audit.Warning(campaign.ID, &post.ID, "Audit export failed", map[string]any{
			"error": err.Error(),
		})
	}
	return true, nil
}

func (e *Executor) alreadyAttempted(postID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.published == nil {
		return false
	}
	_, ok := e.published[postID]
	return ok
}

func (e *Executor) markAttempted(postID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.published == nil {
		e.published = make(map[int]struct{})
	}
	e.published[postID] = struct{}{}
}

func (e *Executor) attempts() int {
	if e.Attempts < 1 {
		return 3
	}
	return e.Attempts
}

func (e *Executor) backoff() time.Duration {
	if e.Backoff <= 0 {
		return 5 * time.Second
	}
	return e.Backoff
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
