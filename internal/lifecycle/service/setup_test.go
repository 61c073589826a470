package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	approvalrepo "github.com/casalist/casalist/internal/approval/repository"
	"github.com/casalist/casalist/internal/clock"
	lifecycledomain "github.com/casalist/casalist/internal/lifecycle/domain"
	listingdomain "github.com/casalist/casalist/internal/listing/domain"
	listingrepo "github.com/casalist/casalist/internal/listing/repository"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Schema is created manually to match the production migrations,
// including the partial unique index that enforces one open session per
// listing.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	db.Exec(`CREATE TABLE IF NOT EXISTS listings (
		id BIGINT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at TIMESTAMP,
		expire_at TIMESTAMP,
		plan_id BIGINT NOT NULL,
		listing_days INT NOT NULL,
		fee_amount NUMERIC(18,2) NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)

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

type testEnv struct {
	svc   lifecycledomain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Listings: listingrepo.Provide(),
		Sessions: approvalrepo.Provide(),
	})

	return &testEnv{svc: svc, db: db, node: node, clock: clk}
}

func (e *testEnv) createListing(t *testing.T, fee string, days int) listingdomain.Listing {
	t.Helper()

	amount, err := decimal.NewFromString(fee)
	require.NoError(t, err)
	listing, err := e.svc.CreateListing(context.Background(), lifecycledomain.CreateListingRequest{
		OwnerID:     e.node.Generate(),
		Title:       "2BR apartment, city centre",
		PlanID:      e.node.Generate(),
		ListingDays: days,
		FeeAmount:   amount,
	})
	require.NoError(t, err)
	return listing
}

// submitAndApprove walks a fresh listing to PENDING_PAYMENT and returns
// the open session ID.
func (e *testEnv) submitAndApprove(t *testing.T, listingID snowflake.ID) snowflake.ID {
	t.Helper()

	ctx := context.Background()
	sessionID, err := e.svc.Submit(ctx, listingID, e.node.Generate())
	require.NoError(t, err)

	status, err := e.svc.Decide(ctx, sessionID, e.node.Generate(), lifecycledomain.DecisionApprove, "looks good")
	require.NoError(t, err)
	require.Equal(t, listingdomain.StatusPendingPayment, status)
	return sessionID
}

// publish walks a fresh listing all the way to LISTED.
func (e *testEnv) publish(t *testing.T, listing listingdomain.Listing) snowflake.ID {
	t.Helper()

	sessionID := e.submitAndApprove(t, listing.ID)
	status, err := e.svc.RecordPayment(context.Background(), listing.ID, listing.FeeAmount, e.clock.Now())
	require.NoError(t, err)
	require.Equal(t, listingdomain.StatusListed, status)
	return sessionID
}

func (e *testEnv) reload(t *testing.T, id snowflake.ID) listingdomain.Listing {
	t.Helper()

	listing, err := e.svc.GetListing(context.Background(), id)
	require.NoError(t, err)
	return listing
}

func (e *testEnv) actions(t *testing.T, sessionID snowflake.ID) []actionRow {
	t.Helper()

	var rows []actionRow
	err := e.db.Raw(
		`SELECT seq, actor_id, action_type, note, snapshot FROM approval_actions WHERE session_id = ? ORDER BY seq`,
		sessionID,
	).Scan(&rows).Error
	require.NoError(t, err)
	return rows
}

type actionRow struct {
	Seq        int
	ActorID    *int64
	ActionType string
	Note       string
	Snapshot   string
}
