// Package domain defines the lifecycle orchestrator contract: the single
// entry point through which listings change state. Every operation commits
// the listing mutation, the session change, and the ledger append in one
// transaction, or not at all.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	approvaldomain "github.com/casalist/casalist/internal/approval/domain"
	listingdomain "github.com/casalist/casalist/internal/listing/domain"
	"github.com/casalist/casalist/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

// Decision is an administrative review outcome.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
	DecisionRevise  Decision = "REVISE"
)

// ContractEvent is a transition request originating from the
// rental-contract subsystem rather than an admin decision. Same atomicity
// and audit contract as Decide.
type ContractEvent string

const (
	ContractSigned        ContractEvent = "CONTRACT_SIGNED"
	ContractTenantMovedIn ContractEvent = "TENANT_MOVED_IN"
	ContractLeaseEnded    ContractEvent = "LEASE_ENDED"
	ContractLeaseRenewing ContractEvent = "LEASE_ENDED_RENEWING"
	ContractRenewalSigned ContractEvent = "RENEWAL_SIGNED"
)

type CreateListingRequest struct {
	OwnerID     snowflake.ID    `json:"owner_id"`
	Title       string          `json:"title"`
	PlanID      snowflake.ID    `json:"plan_id"`
	ListingDays int             `json:"listing_days"`
	FeeAmount   decimal.Decimal `json:"fee_amount"`
}

type ListActionsRequest struct {
	pagination.Pagination
	SessionID snowflake.ID
}

type ListActionsResponse struct {
	pagination.PageInfo
	Actions []approvaldomain.ApprovalAction `json:"actions"`
}

type Service interface {
	// CreateListing registers a property in PENDING with its pricing
	// snapshot. Mutation after creation happens only through the
	// operations below.
	CreateListing(ctx context.Context, req CreateListingRequest) (listingdomain.Listing, error)

	// Submit opens a new review session for a PENDING listing, or
	// reactivates an INVALID listing back to PENDING first. Fails with
	// ErrDuplicateActiveSession when an open session already exists.
	Submit(ctx context.Context, listingID, applicantID snowflake.ID) (snowflake.ID, error)

	// Decide records an admin review outcome on an open session. APPROVE
	// moves the listing to PENDING_PAYMENT and leaves the session open for
	// the payment wait; REJECT and REVISE close it.
	Decide(ctx context.Context, sessionID, actorID snowflake.ID, decision Decision, note string) (listingdomain.StatusCode, error)

	// RecordPayment confirms the listing fee and publishes. The paid
	// period starts at paidAt, or extends the current period on a renewal
	// payment. Appends MARK_PAID and PUBLISH as two ledger entries.
	RecordPayment(ctx context.Context, listingID snowflake.ID, amountPaid decimal.Decimal, paidAt time.Time) (listingdomain.StatusCode, error)

	// ForceRemove bans a listing from any non-terminal state. The note is
	// mandatory.
	ForceRemove(ctx context.Context, listingID, actorID snowflake.ID, note string) (listingdomain.StatusCode, error)

	// Withdraw is the owner-initiated takedown from LISTED or IDLE.
	Withdraw(ctx context.Context, listingID, ownerID snowflake.ID) (listingdomain.StatusCode, error)

	// RequestRenewal asks to renew the paid publication period before it
	// lapses; the next RecordPayment extends ExpireAt.
	RequestRenewal(ctx context.Context, listingID, ownerID snowflake.ID) (listingdomain.StatusCode, error)

	// ApplyContractEvent drives the contract-keyed transitions
	// (CONTRACT_ISSUED, ALREADY_RENTED, renewal states).
	ApplyContractEvent(ctx context.Context, listingID snowflake.ID, event ContractEvent, note string) (listingdomain.StatusCode, error)

	// SweepExpirations invalidates listings whose paid period has lapsed.
	// System-invoked, idempotent, isolates per-listing failures. Returns
	// the number of listings expired.
	SweepExpirations(ctx context.Context, now time.Time) (int, error)

	GetListing(ctx context.Context, id snowflake.ID) (listingdomain.Listing, error)
	GetSession(ctx context.Context, id snowflake.ID) (approvaldomain.ApprovalSession, error)
	ListActions(ctx context.Context, req ListActionsRequest) (ListActionsResponse, error)
}

var (
	ErrAmountMismatch   = errors.New("amount_mismatch")
	ErrValidationFailed = errors.New("validation_failed")
)
