package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, RequestStatusPending.CanTransitionTo(RequestStatusAccepted))
	assert.True(t, RequestStatusPending.CanTransitionTo(RequestStatusRejected))
	assert.False(t, RequestStatusPending.CanTransitionTo(RequestStatusCompleted))

	assert.True(t, RequestStatusAccepted.CanTransitionTo(RequestStatusCompleted))
	assert.True(t, RequestStatusAccepted.CanTransitionTo(RequestStatusNotCompleted))
	assert.True(t, RequestStatusAccepted.CanTransitionTo(RequestStatusDisputed))
	assert.True(t, RequestStatusAccepted.CanTransitionTo(RequestStatusExpired))
	assert.False(t, RequestStatusAccepted.CanTransitionTo(RequestStatusPending))

	// Спор разрешает только админ, и только в один из двух итогов.
	assert.True(t, RequestStatusDisputed.CanTransitionTo(RequestStatusCompleted))
	assert.True(t, RequestStatusDisputed.CanTransitionTo(RequestStatusNotCompleted))
	assert.False(t, RequestStatusDisputed.CanTransitionTo(RequestStatusExpired))

	// Остальные терминальные состояния не покидаются.
	for _, s := range []RequestStatus{RequestStatusRejected, RequestStatusCompleted, RequestStatusNotCompleted, RequestStatusExpired} {
		for _, target := range []RequestStatus{RequestStatusPending, RequestStatusAccepted, RequestStatusCompleted, RequestStatusDisputed} {
			assert.False(t, s.CanTransitionTo(target), "%s -> %s", s, target)
		}
	}
}

func TestRequestStatus_IsTerminal(t *testing.T) {
	assert.False(t, RequestStatusPending.IsTerminal())
	assert.False(t, RequestStatusAccepted.IsTerminal())
	assert.True(t, RequestStatusRejected.IsTerminal())
	assert.True(t, RequestStatusDisputed.IsTerminal())
	assert.True(t, RequestStatusExpired.IsTerminal())
}

func TestNewRequestStatus(t *testing.T) {
	s, err := NewRequestStatus("accepted")
	assert.NoError(t, err)
	assert.Equal(t, RequestStatusAccepted, s)

	_, err = NewRequestStatus("frozen")
	assert.Error(t, err)
}
