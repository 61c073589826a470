// Package domain contains the review session model and its append-only
// action ledger.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ModuleCodeProperty scopes sessions to the property listing module.
// The session model is generic over module codes so other review flows
// can share the same tables.
const ModuleCodeProperty = "PROPERTY"

// SessionStatus is the aggregate outcome of a review thread.
type SessionStatus string

const (
	SessionStatusPending         SessionStatus = "PENDING"
	SessionStatusApproved        SessionStatus = "APPROVED"
	SessionStatusRejected        SessionStatus = "REJECTED"
	SessionStatusReviseRequested SessionStatus = "REVISE_REQUESTED"
)

// ApprovalSession is one review thread for a listing. The database holds
// at most one PENDING session per (module_code, listing_id) via a partial
// unique index; each re-submission cycle opens a fresh session.
type ApprovalSession struct {
	ID                snowflake.ID  `gorm:"primaryKey"`
	ModuleCode        string        `gorm:"type:text;not null"`
	ListingID         snowflake.ID  `gorm:"not null;index"`
	ApplicantID       snowflake.ID  `gorm:"not null"`
	CurrentApproverID *snowflake.ID `gorm:""`
	Status            SessionStatus `gorm:"type:text;not null"`
	CreatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ApprovalSession) TableName() string { return "approval_sessions" }

// Open reports whether the session still accepts decisions.
func (s *ApprovalSession) Open() bool { return s.Status == SessionStatusPending }

// ActionType identifies one kind of ledger entry.
type ActionType string

const (
	ActionSubmit           ActionType = "SUBMIT"
	ActionApprove          ActionType = "APPROVE"
	ActionReject           ActionType = "REJECT"
	ActionRevise           ActionType = "REVISE"
	ActionMarkPaid         ActionType = "MARK_PAID"
	ActionPublish          ActionType = "PUBLISH"
	ActionSuspend          ActionType = "SUSPEND"
	ActionReactivate       ActionType = "REACTIVATE"
	ActionExpire           ActionType = "EXPIRE"
	ActionWithdraw         ActionType = "WITHDRAW"
	ActionRenewalRequested ActionType = "RENEWAL_REQUESTED"
	ActionContractIssued   ActionType = "CONTRACT_ISSUED"
	ActionMoveIn           ActionType = "MOVE_IN"
	ActionLeaseEnded       ActionType = "LEASE_ENDED"
	ActionRenewalApproved  ActionType = "RENEWAL_APPROVED"
)

// ApprovalAction is one immutable audit entry. Entries are never updated
// or deleted; Seq orders them totally within their session.
type ApprovalAction struct {
	ID         snowflake.ID   `gorm:"primaryKey"`
	SessionID  snowflake.ID   `gorm:"not null;index"`
	Seq        int            `gorm:"not null"`
	ActorID    *snowflake.ID  `gorm:""` // nil means system-automated
	ActionType ActionType     `gorm:"type:text;not null"`
	Note       string         `gorm:"type:text"`
	Snapshot   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ApprovalAction) TableName() string { return "approval_actions" }

var (
	ErrSessionNotFound        = errors.New("session_not_found")
	ErrDuplicateActiveSession = errors.New("duplicate_active_session")
	ErrSessionNotOpen         = errors.New("session_not_open")
	ErrSessionAlreadyClosed   = errors.New("session_already_closed")
)
