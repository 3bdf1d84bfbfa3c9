package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedpilot/feedpilot-backend/internal/model"
)

func TestNextInstantEvaluatesInCampaignZone(t *testing.T) {
	// 08:30 wall clock in Los Angeles is 16:30Z during PST...
	now := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)
	next, err := NextInstant("30 8 * * *", "America/Los_Angeles", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 10, 16, 30, 0, 0, time.UTC), next)

	// ...and 15:30Z during PDT.
	now = time.Date(2024, 7, 10, 2, 0, 0, 0, time.UTC)
	next, err = NextInstant("30 8 * * *", "America/Los_Angeles", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 7, 10, 15, 30, 0, 0, time.UTC), next)
}

func TestNextInstantAlwaysFuture(t *testing.T) {
	now := time.Date(2024, 1, 10, 17, 0, 0, 0, time.UTC) // past today's 16:30Z slot
	next, err := NextInstant("30 8 * * *", "America/Los_Angeles", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 11, 16, 30, 0, 0, time.UTC), next)
}

func TestNextInstantErrors(t *testing.T) {
	now := time.Now()

	_, err := NextInstant("", "UTC", now)
	require.ErrorIs(t, err, ErrNoRecurrence)

	_, err = NextInstant("not a cron", "UTC", now)
	require.Error(t, err)

	_, err = NextInstant("30 8 * * *", "Not/AZone", now)
	require.Error(t, err)
}

func TestNextSlot(t *testing.T) {
	tz := "America/Los_Angeles"
	now := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)

	campaign := &model.Campaign{Schedule: "30 8 * * *", Timezone: &tz}
	slot, ok, err := NextSlot(campaign, now)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 10, 16, 30, 0, 0, time.UTC), slot)

	// No recurrence means no slot, not an error.
	campaign = &model.Campaign{Timezone: &tz}
	_, ok, err = NextSlot(campaign, now)
	require.NoError(t, err)
	require.False(t, ok)

	// A broken expression surfaces as an error for the caller to log.
	campaign = &model.Campaign{Schedule: "banana", Timezone: &tz}
	_, _, err = NextSlot(campaign, now)
	require.Error(t, err)
}

func TestNextSlotUnresolvableZoneUsesDefault(t *testing.T) {
	bad := "Not/AZone"
	now := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)

	campaign := &model.Campaign{Schedule: "0 12 * * *", Timezone: &bad}
	slot, ok, err := NextSlot(campaign, now)
	require.NoError(t, err)
	require.True(t, ok)
	// Noon in the Africa/Nairobi fallback is 09:00Z.
	require.Equal(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), slot)
}
