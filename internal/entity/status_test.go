package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusReady, true},
		{StatusReady, StatusCompleted, true},
		{StatusPending, StatusReady, true},
		{StatusPending, StatusCancelled, true},
		{StatusReady, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusReady, StatusPreparing, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusPending, StatusPending, false},
		{StatusPending, OrderStatus("shipped"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("preparing")
	require.NoError(t, err)
	require.Equal(t, StatusPreparing, s)

	_, err = ParseStatus("delivered")
	require.Error(t, err)
}

func TestReached(t *testing.T) {
	for _, step := range Lifecycle {
		assert.Equal(t, step == StatusPending, StatusCancelled.Reached(step), step)
	}
	assert.True(t, StatusReady.Reached(StatusConfirmed))
	assert.True(t, StatusReady.Reached(StatusReady))
	assert.False(t, StatusReady.Reached(StatusCompleted))
}
