// Package selection decides what fills a campaign's next slot: an existing
// scheduled post, a promoted draft, an enriched draft, or freshly ingested
// content. First matching step wins.
package selection

import (
	"context"
	"time"

	"github.com/feedpilot/feedpilot-backend/internal/audit"
	"github.com/feedpilot/feedpilot-backend/internal/ingest"
	"github.com/feedpilot/feedpilot-backend/internal/lifecycle"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/repository"
	"github.com/feedpilot/feedpilot-backend/internal/timeutil"
)

// Outcome names which policy step filled (or declined to fill) the slot.
type Outcome string

const (
	OutcomeAlreadyCovered Outcome = "already_covered"
	OutcomeAlreadyServed  Outcome = "already_served"
	OutcomePromoted       Outcome = "promoted"
	OutcomeEnriched       Outcome = "enriched"
	OutcomeIngested       Outcome = "ingested"
	// OutcomeRejected means enrichment moved the candidate to failed instead
	// of scheduling it; the slot stays unfilled.
	OutcomeRejected  Outcome = "rejected"
	OutcomeNoContent Outcome = "no_content"
)

// Ingestor is the ingestion collaborator the policy triggers when the draft
// pool is empty.
type Ingestor interface {
	Ingest(ctx context.Context, campaign *model.Campaign, targetSlot *time.Time) (*ingest.Result, error)
}

// DefaultTolerance is the span around a target slot within which an existing
// scheduled or posted post is considered to already cover it.
const DefaultTolerance = 30 * time.Minute

type Policy struct {
	Posts    repository.PostRepositoryInterface
	Machine  *lifecycle.Machine
	Ingestor Ingestor
	Audit    *audit.Recorder

	Tolerance time.Duration
}

func (p *Policy) tolerance() time.Duration {
	if p.Tolerance > 0 {
		return p.Tolerance
	}
	return DefaultTolerance
}

// FillSlot runs the policy for one campaign and target slot.
func (p *Policy) FillSlot(ctx context.Context, campaign *model.Campaign, targetSlot time.Time) (Outcome, error) {
	slot := targetSlot.UTC()
	localSlot := timeutil.FormatInstant(slot, campaign.Timezone)
	from, to := slot.Add(-p.tolerance()), slot.Add(p.tolerance())

	// 1. Slot already covered by a scheduled post.
	scheduled, err := p.Posts.ScheduledWithin(campaign.ID, from, to)
	if err != nil {
		return "", err
	}
	if len(scheduled) > 0 {
		p.Audit.Info(campaign.ID, &scheduled[0].ID, "Slot already covered", map[string]any{
			"slot": localSlot,
		})
		return OutcomeAlreadyCovered, nil
	}

	// 2. Slot already served by a recent publish. Protects against duplicate
	// publication after a restart near a slot boundary.
	posted, err := p.Posts.PostedWithin(campaign.ID, from, to)
	if err != nil {
		return "", err
	}
	if len(posted) > 0 {
		p.Audit.Info(campaign.ID, &posted[0].ID, "Slot already served", map[string]any{
			"slot": localSlot,
		})
		return OutcomeAlreadyServed, nil
	}

	// 3./4. A draft exists: promote a ready one, or enrich the newest bare one.
	drafts, err := p.Posts.ListByCampaignAndStatus(campaign.ID, model.StatusDraft)
	if err != nil {
		return "", err
	}
	if ready := newestWithCaption(drafts); ready != nil {
		if err := p.Machine.Promote(ready, campaign, slot); err != nil {
			return "", err
		}
		return OutcomePromoted, nil
	}
	if len(drafts) > 0 {
		// Newest first by created_at; the explicit target makes enrichment
		// promote to scheduled rather than leaving the draft for review.
		candidate := drafts[0]
		if err := p.Machine.Enrich(ctx, candidate, campaign, &slot); err != nil {
			return "", err
		}
		if candidate.Status != model.StatusScheduled {
			return OutcomeRejected, nil
		}
		return OutcomeEnriched, nil
	}

	// 5. Empty pool: ingest with the slot as target.
	result, err := p.Ingestor.Ingest(ctx, campaign, &slot)
	if err != nil {
		return "", err
	}
	if result.Scheduled != nil {
		if err := p.Machine.Enrich(ctx, result.Scheduled, campaign, &slot); err != nil {
			return "", err
		}
		if result.Scheduled.Status != model.StatusScheduled {
			return OutcomeRejected, nil
		}
		return OutcomeIngested, nil
	}

	// 6. Nothing to post; the slot is retried next cycle.
	p.Audit.Warning(campaign.ID, nil, "No content available for slot", map[string]any{
		"slot": localSlot,
	})
	return OutcomeNoContent, nil
}

func newestWithCaption(drafts []*model.Post) *model.Post {
	for _, d := range drafts {
		if d.HasCaption() {
			return d
		}
	}
	return nil
}
