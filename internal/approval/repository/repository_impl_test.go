package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/casalist/casalist/internal/approval/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	db.Exec(`CREATE TABLE IF NOT EXISTS approval_sessions (
		id BIGINT PRIMARY KEY,
		module_code TEXT NOT NULL,
		listing_id BIGINT NOT NULL,
		applicant_id BIGINT NOT NULL,
		current_approver_id BIGINT,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_approval_sessions_open
		ON approval_sessions (module_code, listing_id)
		WHERE status = 'PENDING'`)
	db.Exec(`CREATE TABLE IF NOT EXISTS approval_actions (
		id BIGINT PRIMARY KEY,
		session_id BIGINT NOT NULL,
		seq INT NOT NULL,
		actor_id BIGINT,
		action_type TEXT NOT NULL,
		note TEXT,
		snapshot TEXT,
		created_at TIMESTAMP NOT NULL
	)`)
	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_approval_actions_session_seq
		ON approval_actions (session_id, seq)`)

	return db
}

func newSession(node *snowflake.Node, listingID snowflake.ID) *domain.ApprovalSession {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.ApprovalSession{
		ID:          node.Generate(),
		ModuleCode:  domain.ModuleCodeProperty,
		ListingID:   listingID,
		ApplicantID: node.Generate(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// The partial unique index is the backstop behind the "one open session
// per listing" rule; the repository must surface its violation as the
// domain error.
func TestOpenRejectsSecondPendingSession(t *testing.T) {
	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := Provide()
	ctx := context.Background()
	listingID := node.Generate()

	require.NoError(t, repo.Open(ctx, db, newSession(node, listingID)))

	err = repo.Open(ctx, db, newSession(node, listingID))
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveSession)
}

func TestOpenAllowsNewSessionAfterClose(t *testing.T) {
	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := Provide()
	ctx := context.Background()
	listingID := node.Generate()

	first := newSession(node, listingID)
	require.NoError(t, repo.Open(ctx, db, first))
	require.NoError(t, repo.Close(ctx, db, first.ID, domain.SessionStatusRejected, nil, time.Now().UTC()))

	assert.NoError(t, repo.Open(ctx, db, newSession(node, listingID)))
}

func TestCloseIsSingleShot(t *testing.T) {
	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := Provide()
	ctx := context.Background()

	session := newSession(node, node.Generate())
	require.NoError(t, repo.Open(ctx, db, session))

	now := time.Now().UTC()
	approver := node.Generate()
	require.NoError(t, repo.Close(ctx, db, session.ID, domain.SessionStatusApproved, &approver, now))

	err = repo.Close(ctx, db, session.ID, domain.SessionStatusRejected, nil, now)
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyClosed)

	got, err := repo.FindByID(ctx, db, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.SessionStatusApproved, got.Status)
	require.NotNil(t, got.CurrentApproverID)
	assert.Equal(t, approver, *got.CurrentApproverID)
}

func TestAppendActionAssignsContiguousSeq(t *testing.T) {
	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := Provide()
	ctx := context.Background()

	session := newSession(node, node.Generate())
	require.NoError(t, repo.Open(ctx, db, session))

	types := []domain.ActionType{domain.ActionSubmit, domain.ActionApprove, domain.ActionMarkPaid}
	for _, at := range types {
		entry := &domain.ApprovalAction{
			ID:         node.Generate(),
			SessionID:  session.ID,
			ActionType: at,
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, repo.AppendAction(ctx, db, entry))
	}

	actions, err := repo.ListActions(ctx, db, session.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	for i, action := range actions {
		assert.Equal(t, i+1, action.Seq)
		assert.Equal(t, types[i], action.ActionType)
	}
}

func TestListActionsAfterSeq(t *testing.T) {
	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := Provide()
	ctx := context.Background()

	session := newSession(node, node.Generate())
	require.NoError(t, repo.Open(ctx, db, session))

	for range 4 {
		entry := &domain.ApprovalAction{
			ID:         node.Generate(),
			SessionID:  session.ID,
			ActionType: domain.ActionSubmit,
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, repo.AppendAction(ctx, db, entry))
	}

	actions, err := repo.ListActions(ctx, db, session.ID, 2, 10)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, 3, actions[0].Seq)
	assert.Equal(t, 4, actions[1].Seq)
}

func TestFindOpenAndLatestByListing(t *testing.T) {
	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := Provide()
	ctx := context.Background()
	listingID := node.Generate()

	got, err := repo.FindOpenByListing(ctx, db, domain.ModuleCodeProperty, listingID)
	require.NoError(t, err)
	assert.Nil(t, got)

	first := newSession(node, listingID)
	require.NoError(t, repo.Open(ctx, db, first))
	require.NoError(t, repo.Close(ctx, db, first.ID, domain.SessionStatusReviseRequested, nil, time.Now().UTC()))

	second := newSession(node, listingID)
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	require.NoError(t, repo.Open(ctx, db, second))

	open, err := repo.FindOpenByListing(ctx, db, domain.ModuleCodeProperty, listingID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, second.ID, open.ID)

	latest, err := repo.FindLatestByListing(ctx, db, domain.ModuleCodeProperty, listingID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
}
