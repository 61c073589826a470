// Package domain contains the property listing model and its lifecycle
// state machine.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// StatusCode represents lifecycle states for a property listing.
type StatusCode string

const (
	StatusPending             StatusCode = "PENDING"
	StatusPendingPayment      StatusCode = "PENDING_PAYMENT"
	StatusRejectRevise        StatusCode = "REJECT_REVISE"
	StatusRejected            StatusCode = "REJECTED"
	StatusListed              StatusCode = "LISTED"
	StatusContractIssued      StatusCode = "CONTRACT_ISSUED"
	StatusPendingRenewal      StatusCode = "PENDING_RENEWAL"
	StatusLeaseExpiredRenewal StatusCode = "LEASE_EXPIRED_RENEWING"
	StatusIdle                StatusCode = "IDLE"
	StatusAlreadyRented       StatusCode = "ALREADY_RENTED"
	StatusInvalid             StatusCode = "INVALID"
	StatusBanned              StatusCode = "BANNED"
)

// Terminal reports whether the state ends the listing's lifecycle. BANNED is
// irreversible; INVALID re-enters only through a fresh submission.
func (s StatusCode) Terminal() bool {
	return s == StatusBanned || s == StatusInvalid
}

// Listing is a property under management. Rows are never hard-deleted;
// removal happens through the terminal states.
type Listing struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	OwnerID     snowflake.ID    `gorm:"not null;index"`
	Title       string          `gorm:"type:text;not null"`
	Status      StatusCode      `gorm:"type:text;not null"`
	IsPaid      bool            `gorm:"not null;default:false"`
	PaidAt      *time.Time      `gorm:""`
	ExpireAt    *time.Time      `gorm:""`
	PlanID      snowflake.ID    `gorm:"not null"`
	ListingDays int             `gorm:"not null"`
	FeeAmount   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Version     int64           `gorm:"not null;default:1"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Listing) TableName() string { return "listings" }

// Snapshot is the listing state serialized into each ledger entry. It
// captures the post-mutation state so the ledger is self-describing
// without replaying transitions.
type Snapshot struct {
	ListingID   snowflake.ID    `json:"listing_id"`
	Status      StatusCode      `json:"status"`
	IsPaid      bool            `json:"is_paid"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	ExpireAt    *time.Time      `json:"expire_at,omitempty"`
	PlanID      snowflake.ID    `json:"plan_id"`
	ListingDays int             `json:"listing_days"`
	FeeAmount   decimal.Decimal `json:"fee_amount"`
	Version     int64           `json:"version"`
}

// Snapshot captures the listing's current field values.
func (l *Listing) Snapshot() Snapshot {
	return Snapshot{
		ListingID:   l.ID,
		Status:      l.Status,
		IsPaid:      l.IsPaid,
		PaidAt:      l.PaidAt,
		ExpireAt:    l.ExpireAt,
		PlanID:      l.PlanID,
		ListingDays: l.ListingDays,
		FeeAmount:   l.FeeAmount,
		Version:     l.Version,
	}
}

var (
	ErrListingNotFound        = errors.New("listing_not_found")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrConcurrencyConflict    = errors.New("concurrency_conflict")
)
