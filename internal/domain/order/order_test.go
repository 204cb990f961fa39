package order

import (
	"errors"
	"testing"

	"github.com/example/order-engine/internal/domain/errs"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		// happy path
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusProcessing, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		// cancellation window
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusProcessing, StatusCancelled, false},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusCancelled, false},
		// no skipping forward
		{StatusPending, StatusProcessing, false},
		{StatusPending, StatusShipped, false},
		{StatusConfirmed, StatusShipped, false},
		{StatusProcessing, StatusDelivered, false},
		// no going backward
		{StatusConfirmed, StatusPending, false},
		{StatusShipped, StatusProcessing, false},
		{StatusDelivered, StatusShipped, false},
		// terminal states
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
	}

	for _, tt := range tests {
		got := CanTransition(tt.from, tt.to)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestCancellableStatuses(t *testing.T) {
	assert.ElementsMatch(t, []Status{StatusPending, StatusConfirmed}, CancellableStatuses())
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.True(t, ValidStatus(s), string(s))
	}
	assert.False(t, ValidStatus("refunded"))
	assert.False(t, ValidStatus(""))
}

func TestTransitionError(t *testing.T) {
	err := TransitionError(StatusShipped, StatusCancelled)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
	assert.Contains(t, err.Error(), "can no longer be cancelled")

	err = TransitionError(StatusCancelled, StatusCancelled)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
	assert.Contains(t, err.Error(), "already cancelled")

	err = TransitionError(StatusPending, StatusShipped)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
	assert.Contains(t, err.Error(), "pending")
	assert.Contains(t, err.Error(), "shipped")
}
