package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, listing *Listing) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Listing, error)
	// UpdateVersioned persists the listing's mutable fields guarded by the
	// optimistic concurrency token. The write fails with
	// ErrConcurrencyConflict when the row version changed since the read.
	UpdateVersioned(ctx context.Context, db *gorm.DB, listing *Listing, expectedVersion int64) error
	FindExpired(ctx context.Context, db *gorm.DB, now time.Time, statuses []StatusCode, limit int) ([]Listing, error)
}
