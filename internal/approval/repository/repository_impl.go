package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/casalist/casalist/internal/approval/domain"
	"github.com/casalist/casalist/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Open(ctx context.Context, tx *gorm.DB, session *domain.ApprovalSession) error {
	session.Status = domain.SessionStatusPending
	err := tx.WithContext(ctx).Create(session).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateActiveSession
	}
	return err
}

func (r *repo) Close(ctx context.Context, tx *gorm.DB, sessionID snowflake.ID, final domain.SessionStatus, approverID *snowflake.ID, now time.Time) error {
	updates := map[string]any{
		"status":     final,
		"updated_at": now,
	}
	if approverID != nil {
		updates["current_approver_id"] = *approverID
	}
	res := tx.WithContext(ctx).Model(&domain.ApprovalSession{}).
		Where("id = ? AND status = ?", sessionID, domain.SessionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSessionAlreadyClosed
	}
	return nil
}

func (r *repo) SetApprover(ctx context.Context, tx *gorm.DB, sessionID snowflake.ID, approverID snowflake.ID, now time.Time) error {
	return tx.WithContext(ctx).Model(&domain.ApprovalSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{
			"current_approver_id": approverID,
			"updated_at":          now,
		}).Error
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.ApprovalSession, error) {
	var session domain.ApprovalSession
	err := tx.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) FindOpenByListing(ctx context.Context, tx *gorm.DB, moduleCode string, listingID snowflake.ID) (*domain.ApprovalSession, error) {
	var session domain.ApprovalSession
	err := tx.WithContext(ctx).
		Where("module_code = ? AND listing_id = ? AND status = ?", moduleCode, listingID, domain.SessionStatusPending).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) FindLatestByListing(ctx context.Context, tx *gorm.DB, moduleCode string, listingID snowflake.ID) (*domain.ApprovalSession, error) {
	var session domain.ApprovalSession
	err := tx.WithContext(ctx).
		Where("module_code = ? AND listing_id = ?", moduleCode, listingID).
		Order("created_at desc, id desc").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) AppendAction(ctx context.Context, tx *gorm.DB, entry *domain.ApprovalAction) error {
	// Next sequence is resolved inside the caller's transaction; the
	// unique (session_id, seq) index rejects a lost race.
	var maxSeq int
	if err := tx.WithContext(ctx).Model(&domain.ApprovalAction{}).
		Where("session_id = ?", entry.SessionID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return err
	}
	entry.Seq = maxSeq + 1
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListActions(ctx context.Context, tx *gorm.DB, sessionID snowflake.ID, afterSeq int, limit int) ([]domain.ApprovalAction, error) {
	var actions []domain.ApprovalAction
	err := tx.WithContext(ctx).
		Where("session_id = ? AND seq > ?", sessionID, afterSeq).
		Order("seq asc").
		Limit(limit).
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}
