package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Open inserts a new PENDING session. The partial unique index on open
	// sessions makes a second concurrent Open fail with
	// ErrDuplicateActiveSession.
	Open(ctx context.Context, db *gorm.DB, session *ApprovalSession) error
	// Close finalizes the session status. Closing a session that is no
	// longer PENDING fails with ErrSessionAlreadyClosed.
	Close(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, final SessionStatus, approverID *snowflake.ID, now time.Time) error
	SetApprover(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, approverID snowflake.ID, now time.Time) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ApprovalSession, error)
	FindOpenByListing(ctx context.Context, db *gorm.DB, moduleCode string, listingID snowflake.ID) (*ApprovalSession, error)
	FindLatestByListing(ctx context.Context, db *gorm.DB, moduleCode string, listingID snowflake.ID) (*ApprovalSession, error)
	// AppendAction inserts one ledger entry, assigning the next per-session
	// sequence number. Used by the lifecycle orchestrator only; entries are
	// write-once.
	AppendAction(ctx context.Context, db *gorm.DB, entry *ApprovalAction) error
	ListActions(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, afterSeq int, limit int) ([]ApprovalAction, error)
}
