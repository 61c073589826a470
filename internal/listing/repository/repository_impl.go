package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/casalist/casalist/internal/listing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, listing *domain.Listing) error {
	return db.WithContext(ctx).Create(listing).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Listing, error) {
	var listing domain.Listing
	err := db.WithContext(ctx).First(&listing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repo) UpdateVersioned(ctx context.Context, db *gorm.DB, listing *domain.Listing, expectedVersion int64) error {
	res := db.WithContext(ctx).Model(&domain.Listing{}).
		Where("id = ? AND version = ?", listing.ID, expectedVersion).
		Updates(map[string]any{
			"status":     listing.Status,
			"is_paid":    listing.IsPaid,
			"paid_at":    listing.PaidAt,
			"expire_at":  listing.ExpireAt,
			"version":    expectedVersion + 1,
			"updated_at": listing.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrConcurrencyConflict
	}
	listing.Version = expectedVersion + 1
	return nil
}

func (r *repo) FindExpired(ctx context.Context, db *gorm.DB, now time.Time, statuses []domain.StatusCode, limit int) ([]domain.Listing, error) {
	var listings []domain.Listing
	err := db.WithContext(ctx).
		Where("status IN ? AND expire_at IS NOT NULL AND expire_at <= ?", statuses, now).
		Order("expire_at asc").
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}
