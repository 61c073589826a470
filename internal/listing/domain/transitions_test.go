package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []StatusCode{
	StatusPending,
	StatusPendingPayment,
	StatusRejectRevise,
	StatusRejected,
	StatusListed,
	StatusContractIssued,
	StatusPendingRenewal,
	StatusLeaseExpiredRenewal,
	StatusIdle,
	StatusAlreadyRented,
	StatusInvalid,
	StatusBanned,
}

func TestNextFollowsDefinedEdges(t *testing.T) {
	cases := []struct {
		from  StatusCode
		event Event
		to    StatusCode
	}{
		{StatusPending, EventApprove, StatusPendingPayment},
		{StatusPending, EventRejectRevise, StatusRejectRevise},
		{StatusPending, EventRejectFinal, StatusRejected},
		{StatusRejectRevise, EventResubmit, StatusPending},
		{StatusPendingPayment, EventPaymentCompleted, StatusListed},
		{StatusPendingRenewal, EventPaymentCompleted, StatusListed},
		{StatusListed, EventContractSigned, StatusContractIssued},
		{StatusContractIssued, EventTenantMovedIn, StatusAlreadyRented},
		{StatusAlreadyRented, EventLeaseEnded, StatusIdle},
		{StatusAlreadyRented, EventLeaseEndedRenewing, StatusLeaseExpiredRenewal},
		{StatusLeaseExpiredRenewal, EventRenewalSigned, StatusContractIssued},
		{StatusListed, EventRequestRenewal, StatusPendingRenewal},
		{StatusListed, EventExpire, StatusInvalid},
		{StatusPendingRenewal, EventExpire, StatusInvalid},
		{StatusListed, EventWithdraw, StatusInvalid},
		{StatusIdle, EventWithdraw, StatusInvalid},
		{StatusInvalid, EventReactivate, StatusPending},
	}

	for _, tc := range cases {
		next, err := Next(tc.from, tc.event)
		require.NoError(t, err, "%s on %s", tc.event, tc.from)
		assert.Equal(t, tc.to, next, "%s on %s", tc.event, tc.from)
	}
}

func TestNextRejectsEverythingElse(t *testing.T) {
	legal := map[StatusCode]map[Event]bool{}
	for event, r := range transitions {
		if event == EventForceRemove {
			continue
		}
		for _, from := range r.from {
			if legal[from] == nil {
				legal[from] = map[Event]bool{}
			}
			legal[from][event] = true
		}
	}

	for _, status := range allStatuses {
		for _, event := range Events() {
			if event == EventForceRemove || legal[status][event] {
				continue
			}
			_, err := Next(status, event)
			assert.ErrorIs(t, err, ErrInvalidStateTransition, "%s on %s must be illegal", event, status)
		}
	}
}

func TestForceRemoveFromAnyNonTerminal(t *testing.T) {
	for _, status := range allStatuses {
		next, err := Next(status, EventForceRemove)
		if status.Terminal() {
			assert.ErrorIs(t, err, ErrInvalidStateTransition, "force-remove from %s", status)
			continue
		}
		require.NoError(t, err, "force-remove from %s", status)
		assert.Equal(t, StatusBanned, next)
	}
}

func TestUnknownEvent(t *testing.T) {
	_, err := Next(StatusPending, Event("FROBNICATE"))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StatusBanned.Terminal())
	assert.True(t, StatusInvalid.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusListed.Terminal())
}
