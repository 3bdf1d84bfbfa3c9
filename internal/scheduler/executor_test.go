package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedpilot/feedpilot-backend/internal/audit"
	"github.com/feedpilot/feedpilot-backend/internal/lifecycle"
	"github.com/feedpilot/feedpilot-backend/internal/logging"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/publish"
	"github.com/feedpilot/feedpilot-backend/internal/testutil"
)

type okRelevance struct{}

func (okRelevance) Relevant(ctx context.Context, post *model.Post, campaign *model.Campaign) (bool, error) {
	return true, nil
}

type okCaptions struct{}

func (okCaptions) Generate(ctx context.Context, post *model.Post, campaign *model.Campaign) (string, error) {
	return "caption", nil
}

type okImages struct{}

func (okImages) FindImage(ctx context.Context, post *model.Post, campaign *model.Campaign) (string, error) {
	return "https://img.example/x.jpg", nil
}

// flakyTransport fails the first failures deliveries, then succeeds.
type flakyTransport struct {
	failures int
	calls    int
}

func (t *flakyTransport) Deliver(ctx context.Context, post *model.Post, campaign *model.Campaign) error {
	t.calls++
	if t.calls <= t.failures {
		return errors.New("broker unavailable")
	}
	return nil
}

func newExecutor(campaigns *testutil.MemoryCampaignRepo, posts *testutil.MemoryPostRepo, transport publish.Transport) (*Executor, *[]time.Duration) {
	recorder := audit.NewRecorder(testutil.NewMemoryLogRepo(), logging.New("error"))
	slept := &[]time.Duration{}
	e := &Executor{
		Campaigns: campaigns,
		Posts:     posts,
		Machine: &lifecycle.Machine{
			Posts:     posts,
			Relevance: okRelevance{},
			Captions:  okCaptions{},
			Images:    okImages{},
			Audit:     recorder,
		},
		Transport: transport,
		Exporter:  publish.NoopAuditExporter{},
		Audit:     recorder,
		Attempts:  3,
		Backoff:   5 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return nil
		},
	}
	e.ResetCycle()
	return e, slept
}

func seedDue(campaigns *testutil.MemoryCampaignRepo, posts *testutil.MemoryPostRepo, now time.Time) *model.Post {
	campaigns.Seed(&model.Campaign{ID: 1, Name: "Tech", AutoPublish: true, IsActive: true})
	slot := now.Add(-time.Minute)
	return posts.Seed(&model.Post{
		CampaignID:       1,
		Status:           model.StatusScheduled,
		ScheduledFor:     &slot,
		GeneratedCaption: "ready caption",
	})
}

func TestPublishDueDeliversOnce(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	campaigns := testutil.NewMemoryCampaignRepo()
	posts := testutil.NewMemoryPostRepo()
	post := seedDue(campaigns, posts, now)

	transport := publish.NewInMemoryTransport()
	e, _ := newExecutor(campaigns, posts, transport)

	result, err := e.PublishDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, result.Published)
	require.Zero(t, result.Failed)
	require.Len(t, transport.Deliveries(), 1)

	stored, _ := posts.GetByID(post.ID)
	require.Equal(t, model.StatusPosted, stored.Status)
	require.Nil(t, stored.ScheduledFor)
	require.NotNil(t, stored.PostedAt)

	// A second pass in the same cycle must not deliver again even though the
	// published set still lists the post as attempted.
	result, err = e.PublishDue(context.Background(), now)
	require.NoError(t, err)
	require.Zero(t, result.Published)
	require.Len(t, transport.Deliveries(), 1)
}

func TestPublishDueSkipsAttemptedEvenIfStillScheduled(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	campaigns := testutil.NewMemoryCampaignRepo()
	posts := testutil.NewMemoryPostRepo()
	post := seedDue(campaigns, posts, now)

	transport := publish.NewInMemoryTransport()
	e, _ := newExecutor(campaigns, posts, transport)
	e.markAttempted(post.ID)

	result, err := e.PublishDue(context.Background(), now)
	require.NoError(t, err)
	require.Zero(t, result.Published)
	require.Empty(t, transport.Deliveries())

	// Next cycle resets the set and the post goes out.
	e.ResetCycle()
	result, err = e.PublishDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, result.Published)
}

func TestPublishDueRevalidatesStorage(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	campaigns := testutil.NewMemoryCampaignRepo()
	posts := testutil.NewMemoryPostRepo()
	post := seedDue(campaigns, posts, now)

	// Unscheduled between collection and execution: the stored copy goes back
	// to draft while the executor still holds a stale scheduled snapshot.
	stored, _ := posts.GetByID(post.ID)
	stored.Status = model.StatusDraft
	stored.ScheduledFor = nil
	require.NoError(t, posts.Update(stored))

	transport := publish.NewInMemoryTransport()
	e, _ := newExecutor(campaigns, posts, transport)

	result, err := e.PublishDue(context.Background(), now)
	require.NoError(t, err)
	require.Zero(t, result.Published)
	require.Zero(t, result.Failed)
	require.Empty(t, transport.Deliveries())
}

func TestPublishDueRetriesWithLinearBackoff(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	campaigns := testutil.NewMemoryCampaignRepo()
	posts := testutil.NewMemoryPostRepo()
	post := seedDue(campaigns, posts, now)

	transport := &flakyTransport{failures: 2}
	e, slept := newExecutor(campaigns, posts, transport)

	result, err := e.PublishDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, result.Published)
	require.Equal(t, 3, transport.calls)
	require.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, *slept)

	stored, _ := posts.GetByID(post.ID)
	require.Equal(t, model.StatusPosted, stored.Status)
}

func TestPublishDueShutdownLeavesPostScheduled(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	campaigns := testutil.NewMemoryCampaignRepo()
	posts := testutil.NewMemoryPostRepo()
	post := seedDue(campaigns, posts, now)

	transport := &flakyTransport{failures: 10}
	e, _ := newExecutor(campaigns, posts, transport)

	// Cancellation arrives during the backoff between attempts, as on SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	e.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	result, err := e.PublishDue(ctx, now)
	require.NoError(t, err)
	require.Zero(t, result.Published)
	require.Equal(t, 1, transport.calls)

	stored, _ := posts.GetByID(post.ID)
	require.Equal(t, model.StatusScheduled, stored.Status)
	require.NotNil(t, stored.ScheduledFor)
	require.Zero(t, stored.RetryCount)
	require.Empty(t, stored.FailureReason)

	// The next cycle delivers it normally.
	transport.failures = 0
	transport.calls = 0
	e.ResetCycle()
	result, err = e.PublishDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, result.Published)
}

func TestPublishDueExhaustedRetriesFailPost(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	campaigns := testutil.NewMemoryCampaignRepo()
	posts := testutil.NewMemoryPostRepo()
	post := seedDue(campaigns, posts, now)

	transport := &flakyTransport{failures: 10}
	e, slept := newExecutor(campaigns, posts, transport)

	result, err := e.PublishDue(context.Background(), now)
	require.NoError(t, err)
	require.Zero(t, result.Published)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, 3, transport.calls)
	require.Len(t, *slept, 2)

	stored, _ := posts.GetByID(post.ID)
	require.Equal(t, model.StatusFailed, stored.Status)
	require.Nil(t, stored.ScheduledFor)
	require.Equal(t, 3, stored.RetryCount)
	require.Contains(t, stored.FailureReason, "broker unavailable")
}
