package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSilent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"session not found is surfaced", ErrSessionNotFound, false},
		{"session full is surfaced", ErrSessionFull, false},
		{"not your turn is silent", ErrNotYourTurn, true},
		{"pending roll is silent", ErrRollPending, true},
		{"stale roll is silent", ErrStaleRoll, true},
		{"wrapped silent error", fmt.Errorf("roll: %w", ErrNotYourTurn), true},
		{"foreign error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsSilent(tt.err))
		})
	}
}

func TestGameError_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Game not found", ErrSessionNotFound.Error())
	assert.Equal(t, "Game is full", ErrSessionFull.Error())
}
