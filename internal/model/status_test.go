package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	require.True(t, StatusDraft.CanTransitionTo(StatusScheduled))
	require.True(t, StatusDraft.CanTransitionTo(StatusFailed))
	require.False(t, StatusDraft.CanTransitionTo(StatusPosted))

	require.True(t, StatusScheduled.CanTransitionTo(StatusPosted))
	require.True(t, StatusScheduled.CanTransitionTo(StatusDraft))
	require.True(t, StatusScheduled.CanTransitionTo(StatusFailed))

	// posted is terminal.
	require.False(t, StatusPosted.CanTransitionTo(StatusDraft))
	require.False(t, StatusPosted.CanTransitionTo(StatusScheduled))

	// failed only re-enters draft, manually.
	require.True(t, StatusFailed.CanTransitionTo(StatusDraft))
	require.False(t, StatusFailed.CanTransitionTo(StatusScheduled))
}

func TestStatusValid(t *testing.T) {
	require.True(t, StatusDraft.Valid())
	require.False(t, Status("cancelled").Valid())
	require.False(t, Status("").Valid())
}
