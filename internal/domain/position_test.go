package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to PositionStatus }{
		{PositionStatusPending, PositionStatusOpen},
		{PositionStatusPending, PositionStatusFailed},
		{PositionStatusOpen, PositionStatusExiting},
		{PositionStatusExiting, PositionStatusClosed},
		{PositionStatusExiting, PositionStatusFailed},
		{PositionStatusExiting, PositionStatusOpen},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	statuses := []PositionStatus{
		PositionStatusPending, PositionStatusOpen, PositionStatusExiting,
		PositionStatusClosed, PositionStatusFailed,
	}

	// Everything not in the allowed set is forbidden, including self-loops
	// and any edge out of a terminal status.
	isAllowed := func(from, to PositionStatus) bool {
		for _, a := range allowed {
			if a.from == from && a.to == to {
				return true
			}
		}
		return false
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if isAllowed(from, to) {
				continue
			}
			assert.False(t, CanTransition(from, to), "%s -> %s should be forbidden", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, PositionStatusClosed.Terminal())
	assert.True(t, PositionStatusFailed.Terminal())
	assert.False(t, PositionStatusPending.Terminal())
	assert.False(t, PositionStatusOpen.Terminal())
	assert.False(t, PositionStatusExiting.Terminal())
}
