package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	approvaldomain "github.com/casalist/casalist/internal/approval/domain"
	"github.com/casalist/casalist/internal/clock"
	lifecycledomain "github.com/casalist/casalist/internal/lifecycle/domain"
	listingdomain "github.com/casalist/casalist/internal/listing/domain"
	"github.com/casalist/casalist/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Listings listingdomain.Repository
	Sessions approvaldomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	listings listingdomain.Repository
	sessions approvaldomain.Repository
}

func NewService(p Params) lifecycledomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("lifecycle.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		listings: p.Listings,
		sessions: p.Sessions,
	}
}

// CreateListing implements domain.Service.
func (s *Service) CreateListing(ctx context.Context, req lifecycledomain.CreateListingRequest) (listingdomain.Listing, error) {
	if req.OwnerID == 0 || strings.TrimSpace(req.Title) == "" {
		return listingdomain.Listing{}, lifecycledomain.ErrValidationFailed
	}
	if req.ListingDays <= 0 || req.FeeAmount.IsNegative() {
		return listingdomain.Listing{}, lifecycledomain.ErrValidationFailed
	}

	now := s.clock.Now()
	listing := listingdomain.Listing{
		ID:          s.genID.Generate(),
		OwnerID:     req.OwnerID,
		Title:       strings.TrimSpace(req.Title),
		Status:      listingdomain.StatusPending,
		PlanID:      req.PlanID,
		ListingDays: req.ListingDays,
		FeeAmount:   req.FeeAmount,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.listings.Insert(ctx, s.db, &listing); err != nil {
		return listingdomain.Listing{}, err
	}
	return listing, nil
}

// Submit implements domain.Service.
func (s *Service) Submit(ctx context.Context, listingID, applicantID snowflake.ID) (snowflake.ID, error) {
	if listingID == 0 || applicantID == 0 {
		return 0, lifecycledomain.ErrValidationFailed
	}

	var sessionID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.listings.FindByID(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return listingdomain.ErrListingNotFound
		}

		open, err := s.sessions.FindOpenByListing(ctx, tx, approvaldomain.ModuleCodeProperty, listingID)
		if err != nil {
			return err
		}
		if open != nil {
			return approvaldomain.ErrDuplicateActiveSession
		}

		now := s.clock.Now()
		reactivated := false
		switch listing.Status {
		case listingdomain.StatusPending:
			// Fresh submission, no state change.
		case listingdomain.StatusRejectRevise:
			if err := s.transition(ctx, tx, listing, listingdomain.EventResubmit, now); err != nil {
				return err
			}
		case listingdomain.StatusInvalid:
			if err := s.transition(ctx, tx, listing, listingdomain.EventReactivate, now); err != nil {
				return err
			}
			reactivated = true
		default:
			return listingdomain.ErrInvalidStateTransition
		}

		session := &approvaldomain.ApprovalSession{
			ID:          s.genID.Generate(),
			ModuleCode:  approvaldomain.ModuleCodeProperty,
			ListingID:   listingID,
			ApplicantID: applicantID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.sessions.Open(ctx, tx, session); err != nil {
			return err
		}
		sessionID = session.ID

		if reactivated {
			if err := s.appendEntry(ctx, tx, session.ID, listing, approvaldomain.ActionReactivate, &applicantID, ""); err != nil {
				return err
			}
		}
		return s.appendEntry(ctx, tx, session.ID, listing, approvaldomain.ActionSubmit, &applicantID, "")
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("listing submitted for review",
		zap.Int64("listing_id", int64(listingID)),
		zap.Int64("session_id", int64(sessionID)),
	)
	return sessionID, nil
}

// Decide implements domain.Service.
func (s *Service) Decide(ctx context.Context, sessionID, actorID snowflake.ID, decision lifecycledomain.Decision, note string) (listingdomain.StatusCode, error) {
	if sessionID == 0 || actorID == 0 {
		return "", lifecycledomain.ErrValidationFailed
	}

	var event listingdomain.Event
	var action approvaldomain.ActionType
	var closeAs approvaldomain.SessionStatus
	switch decision {
	case lifecycledomain.DecisionApprove:
		event, action = listingdomain.EventApprove, approvaldomain.ActionApprove
	case lifecycledomain.DecisionReject:
		event, action, closeAs = listingdomain.EventRejectFinal, approvaldomain.ActionReject, approvaldomain.SessionStatusRejected
	case lifecycledomain.DecisionRevise:
		event, action, closeAs = listingdomain.EventRejectRevise, approvaldomain.ActionRevise, approvaldomain.SessionStatusReviseRequested
	default:
		return "", lifecycledomain.ErrValidationFailed
	}

	var newStatus listingdomain.StatusCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.sessions.FindByID(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return approvaldomain.ErrSessionNotFound
		}
		if !session.Open() {
			return approvaldomain.ErrSessionNotOpen
		}

		listing, err := s.listings.FindByID(ctx, tx, session.ListingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return listingdomain.ErrListingNotFound
		}

		now := s.clock.Now()
		if err := s.transition(ctx, tx, listing, event, now); err != nil {
			return err
		}
		newStatus = listing.Status

		if closeAs != "" {
			if err := s.sessions.Close(ctx, tx, sessionID, closeAs, &actorID, now); err != nil {
				return err
			}
		} else {
			// APPROVE leaves the session open across the payment wait; it
			// is finalized when the payment publishes the listing.
			if err := s.sessions.SetApprover(ctx, tx, sessionID, actorID, now); err != nil {
				return err
			}
		}

		return s.appendEntry(ctx, tx, sessionID, listing, action, &actorID, note)
	})
	if err != nil {
		return "", err
	}
	return newStatus, nil
}

// RecordPayment implements domain.Service.
func (s *Service) RecordPayment(ctx context.Context, listingID snowflake.ID, amountPaid decimal.Decimal, paidAt time.Time) (listingdomain.StatusCode, error) {
	if listingID == 0 || paidAt.IsZero() {
		return "", lifecycledomain.ErrValidationFailed
	}

	var newStatus listingdomain.StatusCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.listings.FindByID(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return listingdomain.ErrListingNotFound
		}

		// Guard the transition before the amount so an illegal state is
		// reported as such, not as a reconciliation problem.
		if _, err := listingdomain.Next(listing.Status, listingdomain.EventPaymentCompleted); err != nil {
			return err
		}
		if !amountPaid.Equal(listing.FeeAmount) {
			return lifecycledomain.ErrAmountMismatch
		}

		renewal := listing.Status == listingdomain.StatusPendingRenewal
		paidAt = paidAt.UTC()
		anchor := paidAt
		if renewal && listing.ExpireAt != nil && listing.ExpireAt.After(paidAt) {
			anchor = *listing.ExpireAt
		}
		expireAt := anchor.AddDate(0, 0, listing.ListingDays)

		listing.IsPaid = true
		listing.PaidAt = &paidAt
		listing.ExpireAt = &expireAt
		if err := s.transition(ctx, tx, listing, listingdomain.EventPaymentCompleted, s.clock.Now()); err != nil {
			return err
		}
		newStatus = listing.Status

		session, err := s.ledgerSession(ctx, tx, listing)
		if err != nil {
			return err
		}

		// The payment fact and the resulting publish are two entries so
		// each stays independently auditable.
		if err := s.appendEntry(ctx, tx, session.ID, listing, approvaldomain.ActionMarkPaid, nil, "amount="+amountPaid.String()); err != nil {
			return err
		}
		if err := s.appendEntry(ctx, tx, session.ID, listing, approvaldomain.ActionPublish, nil, ""); err != nil {
			return err
		}

		if session.Open() {
			if err := s.sessions.Close(ctx, tx, session.ID, approvaldomain.SessionStatusApproved, session.CurrentApproverID, s.clock.Now()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.Info("listing published",
		zap.Int64("listing_id", int64(listingID)),
		zap.String("amount", amountPaid.String()),
	)
	return newStatus, nil
}

// ForceRemove implements domain.Service.
func (s *Service) ForceRemove(ctx context.Context, listingID, actorID snowflake.ID, note string) (listingdomain.StatusCode, error) {
	note = strings.TrimSpace(note)
	if listingID == 0 || actorID == 0 || note == "" {
		return "", lifecycledomain.ErrValidationFailed
	}

	var newStatus listingdomain.StatusCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.listings.FindByID(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return listingdomain.ErrListingNotFound
		}

		now := s.clock.Now()
		if err := s.transition(ctx, tx, listing, listingdomain.EventForceRemove, now); err != nil {
			return err
		}
		newStatus = listing.Status

		open, err := s.sessions.FindOpenByListing(ctx, tx, approvaldomain.ModuleCodeProperty, listingID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := s.sessions.Close(ctx, tx, open.ID, approvaldomain.SessionStatusRejected, &actorID, now); err != nil {
				return err
			}
		}

		session, err := s.ledgerSession(ctx, tx, listing)
		if err != nil {
			return err
		}
		return s.appendEntry(ctx, tx, session.ID, listing, approvaldomain.ActionSuspend, &actorID, note)
	})
	if err != nil {
		return "", err
	}
	return newStatus, nil
}

// Withdraw implements domain.Service.
func (s *Service) Withdraw(ctx context.Context, listingID, ownerID snowflake.ID) (listingdomain.StatusCode, error) {
	return s.ownerEvent(ctx, listingID, ownerID, listingdomain.EventWithdraw, approvaldomain.ActionWithdraw)
}

// RequestRenewal implements domain.Service.
func (s *Service) RequestRenewal(ctx context.Context, listingID, ownerID snowflake.ID) (listingdomain.StatusCode, error) {
	return s.ownerEvent(ctx, listingID, ownerID, listingdomain.EventRequestRenewal, approvaldomain.ActionRenewalRequested)
}

func (s *Service) ownerEvent(ctx context.Context, listingID, ownerID snowflake.ID, event listingdomain.Event, action approvaldomain.ActionType) (listingdomain.StatusCode, error) {
	if listingID == 0 || ownerID == 0 {
		return "", lifecycledomain.ErrValidationFailed
	}

	var newStatus listingdomain.StatusCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.listings.FindByID(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return listingdomain.ErrListingNotFound
		}

		if err := s.transition(ctx, tx, listing, event, s.clock.Now()); err != nil {
			return err
		}
		newStatus = listing.Status

		session, err := s.ledgerSession(ctx, tx, listing)
		if err != nil {
			return err
		}
		return s.appendEntry(ctx, tx, session.ID, listing, action, &ownerID, "")
	})
	if err != nil {
		return "", err
	}
	return newStatus, nil
}

// ApplyContractEvent implements domain.Service.
func (s *Service) ApplyContractEvent(ctx context.Context, listingID snowflake.ID, event lifecycledomain.ContractEvent, note string) (listingdomain.StatusCode, error) {
	if listingID == 0 {
		return "", lifecycledomain.ErrValidationFailed
	}

	var lifecycleEvent listingdomain.Event
	var action approvaldomain.ActionType
	switch event {
	case lifecycledomain.ContractSigned:
		lifecycleEvent, action = listingdomain.EventContractSigned, approvaldomain.ActionContractIssued
	case lifecycledomain.ContractTenantMovedIn:
		lifecycleEvent, action = listingdomain.EventTenantMovedIn, approvaldomain.ActionMoveIn
	case lifecycledomain.ContractLeaseEnded:
		lifecycleEvent, action = listingdomain.EventLeaseEnded, approvaldomain.ActionLeaseEnded
	case lifecycledomain.ContractLeaseRenewing:
		lifecycleEvent, action = listingdomain.EventLeaseEndedRenewing, approvaldomain.ActionLeaseEnded
	case lifecycledomain.ContractRenewalSigned:
		lifecycleEvent, action = listingdomain.EventRenewalSigned, approvaldomain.ActionRenewalApproved
	default:
		return "", lifecycledomain.ErrValidationFailed
	}

	var newStatus listingdomain.StatusCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.listings.FindByID(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return listingdomain.ErrListingNotFound
		}

		if err := s.transition(ctx, tx, listing, lifecycleEvent, s.clock.Now()); err != nil {
			return err
		}
		newStatus = listing.Status

		session, err := s.ledgerSession(ctx, tx, listing)
		if err != nil {
			return err
		}
		return s.appendEntry(ctx, tx, session.ID, listing, action, nil, note)
	})
	if err != nil {
		return "", err
	}
	return newStatus, nil
}

var sweepStatuses = []listingdomain.StatusCode{
	listingdomain.StatusListed,
	listingdomain.StatusPendingRenewal,
}

// SweepExpirations implements domain.Service.
func (s *Service) SweepExpirations(ctx context.Context, now time.Time) (int, error) {
	const batchSize = 100

	expired := 0
	var sweepErr error
	for {
		if ctx.Err() != nil {
			return expired, errors.Join(sweepErr, ctx.Err())
		}

		batch, err := s.listings.FindExpired(ctx, s.db, now, sweepStatuses, batchSize)
		if err != nil {
			return expired, errors.Join(sweepErr, err)
		}
		if len(batch) == 0 {
			break
		}

		processed := 0
		for i := range batch {
			done, err := s.expireListing(ctx, batch[i].ID, now)
			if err != nil {
				// One listing's failure must not abort the batch.
				sweepErr = errors.Join(sweepErr, err)
				s.log.Warn("expiration failed",
					zap.Int64("listing_id", int64(batch[i].ID)),
					zap.Error(err),
				)
				continue
			}
			processed++
			if done {
				expired++
			}
		}
		if processed == 0 {
			break
		}
	}

	return expired, sweepErr
}

func (s *Service) expireListing(ctx context.Context, listingID snowflake.ID, now time.Time) (bool, error) {
	expired := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.listings.FindByID(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return listingdomain.ErrListingNotFound
		}

		// Re-check inside the transaction: a listing renewed or already
		// invalidated since the scan is skipped, keeping the sweep
		// idempotent.
		if _, err := listingdomain.Next(listing.Status, listingdomain.EventExpire); err != nil {
			return nil
		}
		if listing.ExpireAt == nil || listing.ExpireAt.After(now) {
			return nil
		}

		if err := s.transition(ctx, tx, listing, listingdomain.EventExpire, now); err != nil {
			return err
		}
		expired = true

		session, err := s.ledgerSession(ctx, tx, listing)
		if err != nil {
			return err
		}
		return s.appendEntry(ctx, tx, session.ID, listing, approvaldomain.ActionExpire, nil, "")
	})
	return expired, err
}

// GetListing implements domain.Service.
func (s *Service) GetListing(ctx context.Context, id snowflake.ID) (listingdomain.Listing, error) {
	listing, err := s.listings.FindByID(ctx, s.db, id)
	if err != nil {
		return listingdomain.Listing{}, err
	}
	if listing == nil {
		return listingdomain.Listing{}, listingdomain.ErrListingNotFound
	}
	return *listing, nil
}

// GetSession implements domain.Service.
func (s *Service) GetSession(ctx context.Context, id snowflake.ID) (approvaldomain.ApprovalSession, error) {
	session, err := s.sessions.FindByID(ctx, s.db, id)
	if err != nil {
		return approvaldomain.ApprovalSession{}, err
	}
	if session == nil {
		return approvaldomain.ApprovalSession{}, approvaldomain.ErrSessionNotFound
	}
	return *session, nil
}

// ListActions implements domain.Service. Entries come back in insertion
// order; readers must never reorder them.
func (s *Service) ListActions(ctx context.Context, req lifecycledomain.ListActionsRequest) (lifecycledomain.ListActionsResponse, error) {
	session, err := s.sessions.FindByID(ctx, s.db, req.SessionID)
	if err != nil {
		return lifecycledomain.ListActionsResponse{}, err
	}
	if session == nil {
		return lifecycledomain.ListActionsResponse{}, approvaldomain.ErrSessionNotFound
	}

	afterSeq := 0
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return lifecycledomain.ListActionsResponse{}, lifecycledomain.ErrValidationFailed
		}
		afterSeq = cursor.Seq
	}
	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}

	actions, err := s.sessions.ListActions(ctx, s.db, req.SessionID, afterSeq, limit+1)
	if err != nil {
		return lifecycledomain.ListActionsResponse{}, err
	}

	resp := lifecycledomain.ListActionsResponse{Actions: actions}
	if len(actions) > limit {
		resp.Actions = actions[:limit]
		resp.HasMore = true
		token, err := pagination.EncodeCursor(pagination.Cursor{Seq: resp.Actions[limit-1].Seq})
		if err != nil {
			return lifecycledomain.ListActionsResponse{}, err
		}
		resp.NextPageToken = token
	}
	return resp, nil
}

// transition applies the event to the in-memory listing and persists it
// under the optimistic version guard.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, listing *listingdomain.Listing, event listingdomain.Event, now time.Time) error {
	next, err := listingdomain.Next(listing.Status, event)
	if err != nil {
		return err
	}

	expected := listing.Version
	listing.Status = next
	listing.UpdatedAt = now
	return s.listings.UpdateVersioned(ctx, tx, listing, expected)
}

// ledgerSession resolves the session that owns the next ledger entry: the
// open session when one exists, otherwise the listing's most recent one.
// A listing acted on before any submission gets a closed administrative
// session so the entry still has an owner.
func (s *Service) ledgerSession(ctx context.Context, tx *gorm.DB, listing *listingdomain.Listing) (*approvaldomain.ApprovalSession, error) {
	session, err := s.sessions.FindOpenByListing(ctx, tx, approvaldomain.ModuleCodeProperty, listing.ID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	session, err = s.sessions.FindLatestByListing(ctx, tx, approvaldomain.ModuleCodeProperty, listing.ID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	now := s.clock.Now()
	session = &approvaldomain.ApprovalSession{
		ID:          s.genID.Generate(),
		ModuleCode:  approvaldomain.ModuleCodeProperty,
		ListingID:   listing.ID,
		ApplicantID: listing.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sessions.Open(ctx, tx, session); err != nil {
		return nil, err
	}
	if err := s.sessions.Close(ctx, tx, session.ID, approvaldomain.SessionStatusRejected, nil, now); err != nil {
		return nil, err
	}
	session.Status = approvaldomain.SessionStatusRejected
	return session, nil
}

func (s *Service) appendEntry(ctx context.Context, tx *gorm.DB, sessionID snowflake.ID, listing *listingdomain.Listing, action approvaldomain.ActionType, actorID *snowflake.ID, note string) error {
	snapshot, err := json.Marshal(listing.Snapshot())
	if err != nil {
		return err
	}

	entry := &approvaldomain.ApprovalAction{
		ID:         s.genID.Generate(),
		SessionID:  sessionID,
		ActorID:    actorID,
		ActionType: action,
		Note:       note,
		Snapshot:   datatypes.JSON(snapshot),
		CreatedAt:  s.clock.Now(),
	}
	return s.sessions.AppendAction(ctx, tx, entry)
}
