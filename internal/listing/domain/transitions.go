package domain

// Event is a lifecycle trigger. Events originate from admin decisions,
// owner actions, the payment webhook, the rental-contract subsystem, or
// the expiration sweep.
type Event string

const (
	EventApprove            Event = "APPROVE"
	EventRejectRevise       Event = "REJECT_REVISE"
	EventRejectFinal        Event = "REJECT_FINAL"
	EventPaymentCompleted   Event = "PAYMENT_COMPLETED"
	EventContractSigned     Event = "CONTRACT_SIGNED"
	EventTenantMovedIn      Event = "TENANT_MOVED_IN"
	EventLeaseEnded         Event = "LEASE_ENDED"
	EventLeaseEndedRenewing Event = "LEASE_ENDED_RENEWING"
	EventRenewalSigned      Event = "RENEWAL_SIGNED"
	EventResubmit           Event = "RESUBMIT"
	EventRequestRenewal     Event = "REQUEST_RENEWAL"
	EventExpire             Event = "EXPIRE"
	EventWithdraw           Event = "WITHDRAW"
	EventForceRemove        Event = "FORCE_REMOVE"
	EventReactivate         Event = "REACTIVATE"
)

type rule struct {
	from []StatusCode
	to   StatusCode
}

var transitions = map[Event]rule{
	EventApprove:            {from: []StatusCode{StatusPending}, to: StatusPendingPayment},
	EventRejectRevise:       {from: []StatusCode{StatusPending}, to: StatusRejectRevise},
	EventRejectFinal:        {from: []StatusCode{StatusPending}, to: StatusRejected},
	EventPaymentCompleted:   {from: []StatusCode{StatusPendingPayment, StatusPendingRenewal}, to: StatusListed},
	EventContractSigned:     {from: []StatusCode{StatusListed}, to: StatusContractIssued},
	EventTenantMovedIn:      {from: []StatusCode{StatusContractIssued}, to: StatusAlreadyRented},
	EventLeaseEnded:         {from: []StatusCode{StatusAlreadyRented}, to: StatusIdle},
	EventLeaseEndedRenewing: {from: []StatusCode{StatusAlreadyRented}, to: StatusLeaseExpiredRenewal},
	EventRenewalSigned:      {from: []StatusCode{StatusLeaseExpiredRenewal}, to: StatusContractIssued},
	EventResubmit:           {from: []StatusCode{StatusRejectRevise}, to: StatusPending},
	EventRequestRenewal:     {from: []StatusCode{StatusListed}, to: StatusPendingRenewal},
	EventExpire:             {from: []StatusCode{StatusListed, StatusPendingRenewal}, to: StatusInvalid},
	EventWithdraw:           {from: []StatusCode{StatusListed, StatusIdle}, to: StatusInvalid},
	EventReactivate:         {from: []StatusCode{StatusInvalid}, to: StatusPending},

	// Admin force-removal is legal from every non-terminal state; the
	// from-set is resolved in Next.
	EventForceRemove: {to: StatusBanned},
}

// Next resolves the state the event leads to from the current state. An
// event whose from-set does not include the current state returns
// ErrInvalidStateTransition and implies no mutation.
func Next(current StatusCode, event Event) (StatusCode, error) {
	r, ok := transitions[event]
	if !ok {
		return "", ErrInvalidStateTransition
	}

	if event == EventForceRemove {
		if current.Terminal() {
			return "", ErrInvalidStateTransition
		}
		return r.to, nil
	}

	for _, from := range r.from {
		if from == current {
			return r.to, nil
		}
	}
	return "", ErrInvalidStateTransition
}

// Events lists every lifecycle trigger, for exhaustive validation.
func Events() []Event {
	out := make([]Event, 0, len(transitions))
	for e := range transitions {
		out = append(out, e)
	}
	return out
}
