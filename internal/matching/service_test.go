package matching

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/emperorhan/ledger-reconciler/internal/alert"
	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/runlock"
	"github.com/emperorhan/ledger-reconciler/internal/store"
	storemocks "github.com/emperorhan/ledger-reconciler/internal/store/mocks"
)

// fakeDriver / fakeConn / fakeTxImpl provide a minimal sql.Driver
// so we can call BeginTx and get a real *sql.Tx for testing.
type fakeDriver struct{}
type fakeConn struct{}
type fakeTxImpl struct{}

func (d *fakeDriver) Open(name string) (driver.Conn, error) { return &fakeConn{}, nil }
func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("not implemented")
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return &fakeTxImpl{}, nil }
func (tx *fakeTxImpl) Commit() error          { return nil }
func (tx *fakeTxImpl) Rollback() error        { return nil }

func init() {
	sql.Register("fake_matching", &fakeDriver{})
}

func openFakeDB() *sql.DB {
	db, _ := sql.Open("fake_matching", "")
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureAlerter records every alert it receives.
type captureAlerter struct {
	mu   sync.Mutex
	sent []alert.Alert
}

func (c *captureAlerter) Send(_ context.Context, a alert.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, a)
	return nil
}

type matchingMocks struct {
	db      *storemocks.MockTxBeginner
	txRepo  *storemocks.MockTransactionRepository
	sugRepo *storemocks.MockSuggestionRepository
	rejRepo *storemocks.MockRejectedPairRepository
	audit   *storemocks.MockAuditLogRepository
	alerts  *captureAlerter
}

func newMatchingService(t *testing.T, cfg model.MatchingConfig) (matchingMocks, *Service) {
	ctrl := gomock.NewController(t)
	m := matchingMocks{
		db:      storemocks.NewMockTxBeginner(ctrl),
		txRepo:  storemocks.NewMockTransactionRepository(ctrl),
		sugRepo: storemocks.NewMockSuggestionRepository(ctrl),
		rejRepo: storemocks.NewMockRejectedPairRepository(ctrl),
		audit:   storemocks.NewMockAuditLogRepository(ctrl),
		alerts:  &captureAlerter{},
	}
	svc := NewService(m.db, m.txRepo, m.sugRepo, m.rejRepo, m.audit,
		StaticConfig(cfg), m.alerts, runlock.NewMemoryLocker(), testLogger())
	return m, svc
}

func setupBeginTx(mockDB *storemocks.MockTxBeginner) {
	fakeDB := openFakeDB()
	mockDB.EXPECT().BeginTx(gomock.Any(), gomock.Nil()).
		DoAndReturn(func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
			return fakeDB.BeginTx(ctx, opts)
		}).AnyTimes()
}

func newAnchor(token, amount string, ts int64) model.Transaction {
	return model.Transaction{
		ID:           uuid.New(),
		TxHash:       "0x" + uuid.NewString(),
		Source:       model.SourceOnChain,
		Status:       model.StatusAnchor,
		TransferType: model.TypeTransfer,
		TokenSymbol:  token,
		Amount:       amount,
		Timestamp:    ts,
	}
}

func newClaim(token, amount string, ts int64) model.Transaction {
	return model.Transaction{
		ID:           uuid.New(),
		TxHash:       "0x" + uuid.NewString(),
		Source:       model.SourceCSV,
		Status:       model.StatusPending,
		TransferType: model.TypeTransfer,
		TokenSymbol:  token,
		Amount:       amount,
		Timestamp:    ts,
	}
}

// A DAI anchor at 100.0/t=1000 and claim at 100.05/t=1015 must
// produce one pending suggestion at the default threshold.
func TestRunMatching_CreatesSuggestionForCloseCandidate(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchor := newAnchor("DAI", "100.0", 1000)
	claim := newClaim("DAI", "100.05", 1015)

	m.txRepo.EXPECT().GetUnmatchedAnchors(gomock.Any(), nil, 0).
		Return([]model.Transaction{anchor}, nil)
	m.txRepo.EXPECT().GetCandidateClaims(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q store.CandidateQuery) ([]model.Transaction, error) {
			assert.Equal(t, anchor.ID, q.AnchorID)
			assert.Equal(t, "DAI", q.TokenSymbol)
			assert.Equal(t, 50, q.Limit)
			return []model.Transaction{claim}, nil
		})
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim.ID).
		Return(&claim, nil)
	m.sugRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, s *model.MatchSuggestion) (bool, error) {
			assert.Equal(t, anchor.ID, s.AnchorID)
			assert.Equal(t, claim.ID, s.ClaimID)
			assert.GreaterOrEqual(t, s.Score, 95.0)
			assert.Equal(t, model.SuggestionPending, s.Status)
			s.ID = uuid.New()
			return true, nil
		})
	m.txRepo.EXPECT().UpdateStatusTx(gomock.Any(), gomock.Any(), claim.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, _ uuid.UUID, u store.StatusUpdate) error {
			assert.Equal(t, model.StatusSuggested, u.Status)
			require.NotNil(t, u.MatchedTxID)
			assert.Equal(t, anchor.ID, *u.MatchedTxID)
			return nil
		})
	m.audit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, e *model.AuditLogEntry) error {
			assert.Equal(t, model.AuditSuggestMatch, e.Action)
			assert.Equal(t, "system", e.Actor)
			return nil
		})
	m.txRepo.EXPECT().MarkUnreconciled(gomock.Any(), nil).Return(int64(0), nil)

	res, err := svc.RunMatching(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewSuggestions)
	assert.Equal(t, 1, res.AnchorsScanned)
}

// A second run over unchanged data inserts nothing: the pair constraint
// reports the suggestion as already present.
func TestRunMatching_Idempotent(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchor := newAnchor("DAI", "100.0", 1000)
	claim := newClaim("DAI", "100.05", 1015)
	claim.Status = model.StatusSuggested
	claim.MatchedTxID = &anchor.ID

	m.txRepo.EXPECT().GetUnmatchedAnchors(gomock.Any(), nil, 0).
		Return([]model.Transaction{anchor}, nil)
	m.txRepo.EXPECT().GetCandidateClaims(gomock.Any(), gomock.Any()).
		Return([]model.Transaction{claim}, nil)
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim.ID).
		Return(&claim, nil)
	m.sugRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(false, nil)
	// No status update and no audit entry for an already-known pair.
	m.txRepo.EXPECT().MarkUnreconciled(gomock.Any(), nil).Return(int64(0), nil)

	res, err := svc.RunMatching(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewSuggestions)
}

func TestRunMatching_BelowThresholdSweepsUnreconciled(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())

	anchor := newAnchor("DAI", "100.0", 1000)
	// Wrong token and far amount: scores well below 70, no suggestion.
	claim := newClaim("USDC", "100.9", 1000)

	m.txRepo.EXPECT().GetUnmatchedAnchors(gomock.Any(), nil, 0).
		Return([]model.Transaction{anchor}, nil)
	m.txRepo.EXPECT().GetCandidateClaims(gomock.Any(), gomock.Any()).
		Return([]model.Transaction{claim}, nil)
	m.txRepo.EXPECT().MarkUnreconciled(gomock.Any(), nil).Return(int64(1), nil)

	res, err := svc.RunMatching(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewSuggestions)
	assert.Equal(t, int64(1), res.MarkedUnmatched)
}

func TestRunMatching_MinScoreOverride(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchor := newAnchor("DAI", "100.0", 1000)
	// Token mismatch plus a 0.75% amount gap scores 60: below the default 70
	// threshold, above the lowered bar.
	claim := newClaim("USDT", "100.75", 1000)

	m.txRepo.EXPECT().GetUnmatchedAnchors(gomock.Any(), nil, 0).
		Return([]model.Transaction{anchor}, nil)
	m.txRepo.EXPECT().GetCandidateClaims(gomock.Any(), gomock.Any()).
		Return([]model.Transaction{claim}, nil)
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim.ID).
		Return(&claim, nil)
	m.sugRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, s *model.MatchSuggestion) (bool, error) {
			assert.Equal(t, 0.0, s.Breakdown.Token)
			s.ID = uuid.New()
			return true, nil
		})
	m.txRepo.EXPECT().UpdateStatusTx(gomock.Any(), gomock.Any(), claim.ID, gomock.Any()).Return(nil)
	m.audit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	m.txRepo.EXPECT().MarkUnreconciled(gomock.Any(), nil).Return(int64(0), nil)

	minScore := 55.0
	res, err := svc.RunMatching(context.Background(), nil, &minScore)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewSuggestions)
}

func TestRunMatching_ScopeLocked(t *testing.T) {
	locker := runlock.NewMemoryLocker()
	release, err := locker.Acquire(context.Background(), "matching:all", time.Minute)
	require.NoError(t, err)
	defer release()

	alerts := &captureAlerter{}
	ctrl := gomock.NewController(t)
	svc := NewService(
		storemocks.NewMockTxBeginner(ctrl),
		storemocks.NewMockTransactionRepository(ctrl),
		storemocks.NewMockSuggestionRepository(ctrl),
		storemocks.NewMockRejectedPairRepository(ctrl),
		storemocks.NewMockAuditLogRepository(ctrl),
		StaticConfig(model.DefaultMatchingConfig()),
		alerts, locker, testLogger(),
	)

	_, err = svc.RunMatching(context.Background(), nil, nil)
	assert.ErrorIs(t, err, runlock.ErrAlreadyRunning)
	assert.Empty(t, alerts.sent, "a concurrent run is not an operational failure")
}

func TestRunMatching_AlertsOnFailedRun(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())

	m.txRepo.EXPECT().GetUnmatchedAnchors(gomock.Any(), nil, 0).
		Return(nil, errors.New("db down"))

	_, err := svc.RunMatching(context.Background(), nil, nil)
	require.Error(t, err)

	require.Len(t, m.alerts.sent, 1)
	got := m.alerts.sent[0]
	assert.Equal(t, alert.AlertTypeMatchingErr, got.Type)
	assert.Contains(t, got.Message, "db down")
	assert.Equal(t, "matching:all", got.Fields["scope"])
}

func TestApprove_PendingSuggestion(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchor := newAnchor("DAI", "100.0", 1000)
	claim := newClaim("DAI", "100.05", 1015)
	claim.Status = model.StatusSuggested
	claim.MatchedTxID = &anchor.ID
	sug := model.MatchSuggestion{
		ID:       uuid.New(),
		AnchorID: anchor.ID,
		ClaimID:  claim.ID,
		Score:    97.9,
		Breakdown: model.ScoreBreakdown{
			Amount: 38, Address: 30, Time: 19.9, Token: 10,
		},
		Status: model.SuggestionPending,
	}

	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), anchor.ID).Return(&anchor, nil)
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim.ID).Return(&claim, nil)
	m.sugRepo.EXPECT().FindByPairForUpdateTx(gomock.Any(), gomock.Any(), anchor.ID, claim.ID).Return(&sug, nil)
	m.sugRepo.EXPECT().DecideTx(gomock.Any(), gomock.Any(), sug.ID, model.SuggestionApproved, "reviewer", gomock.Any()).Return(nil)
	m.txRepo.EXPECT().UpdateStatusTx(gomock.Any(), gomock.Any(), claim.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, _ uuid.UUID, u store.StatusUpdate) error {
			assert.Equal(t, model.StatusReconciled, u.Status)
			require.NotNil(t, u.MatchedTxID)
			assert.Equal(t, anchor.ID, *u.MatchedTxID)
			require.NotNil(t, u.ForceMatched)
			assert.False(t, *u.ForceMatched)
			return nil
		})
	m.txRepo.EXPECT().UpdateStatusTx(gomock.Any(), gomock.Any(), anchor.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, _ uuid.UUID, u store.StatusUpdate) error {
			assert.Equal(t, model.StatusReconciled, u.Status)
			assert.Nil(t, u.MatchedTxID, "the link lives on the claim")
			return nil
		})
	m.audit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, e *model.AuditLogEntry) error {
			assert.Equal(t, model.AuditApproveMatch, e.Action)
			assert.Equal(t, model.EntitySuggestion, e.EntityType)
			assert.NotEmpty(t, e.PreviousState)
			assert.NotEmpty(t, e.NewState)
			return nil
		})

	got, err := svc.Approve(context.Background(), anchor.ID, claim.ID, "reviewer", false, nil)
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionApproved, got.Status)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, "reviewer", *got.ReviewedBy)
}

func TestApprove_TerminalClaimConflicts(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchor := newAnchor("DAI", "100.0", 1000)
	claim := newClaim("DAI", "100.0", 1000)
	claim.Status = model.StatusReconciled

	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), anchor.ID).Return(&anchor, nil)
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim.ID).Return(&claim, nil)

	_, err := svc.Approve(context.Background(), anchor.ID, claim.ID, "reviewer", false, nil)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestApprove_ConsumedAnchorConflicts(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchor := newAnchor("DAI", "100.0", 1000)
	anchor.Status = model.StatusReconciled
	claim := newClaim("DAI", "100.0", 1000)

	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), anchor.ID).Return(&anchor, nil)
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim.ID).Return(&claim, nil)

	_, err := svc.Approve(context.Background(), anchor.ID, claim.ID, "reviewer", false, nil)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestApprove_UnsuggestedPairBelowThresholdNeedsForce(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchor := newAnchor("DAI", "100.0", 1000)
	claim := newClaim("USDC", "300.0", 99_999_999) // scores near zero

	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), anchor.ID).Return(&anchor, nil).Times(2)
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim.ID).Return(&claim, nil).Times(2)
	m.sugRepo.EXPECT().FindByPairForUpdateTx(gomock.Any(), gomock.Any(), anchor.ID, claim.ID).
		Return(nil, store.ErrNotFound).Times(2)

	// Without force: rejected up front.
	_, err := svc.Approve(context.Background(), anchor.ID, claim.ID, "reviewer", false, nil)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "score", verr.Field)

	// With force: an approved suggestion is created and both sides are
	// force-reconciled.
	m.sugRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, s *model.MatchSuggestion) (bool, error) {
			assert.Equal(t, model.SuggestionApproved, s.Status)
			s.ID = uuid.New()
			return true, nil
		})
	m.txRepo.EXPECT().UpdateStatusTx(gomock.Any(), gomock.Any(), claim.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, _ uuid.UUID, u store.StatusUpdate) error {
			assert.Equal(t, model.StatusForceReconciled, u.Status)
			require.NotNil(t, u.ForceMatched)
			assert.True(t, *u.ForceMatched)
			return nil
		})
	m.txRepo.EXPECT().UpdateStatusTx(gomock.Any(), gomock.Any(), anchor.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, _ uuid.UUID, u store.StatusUpdate) error {
			assert.Equal(t, model.StatusForceReconciled, u.Status)
			return nil
		})
	m.audit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, e *model.AuditLogEntry) error {
			assert.Equal(t, model.AuditForceReconcile, e.Action)
			assert.Empty(t, e.PreviousState, "no prior suggestion existed")
			return nil
		})

	notes := "manually verified off-band"
	got, err := svc.Approve(context.Background(), anchor.ID, claim.ID, "reviewer", true, &notes)
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionApproved, got.Status)
}

func TestReject_ReleasesClaimAndRemembersPair(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchor := newAnchor("DAI", "100.0", 1000)
	claim := newClaim("DAI", "100.05", 1015)
	claim.Status = model.StatusSuggested
	claim.MatchedTxID = &anchor.ID
	sug := model.MatchSuggestion{
		ID:       uuid.New(),
		AnchorID: anchor.ID,
		ClaimID:  claim.ID,
		Score:    97.9,
		Status:   model.SuggestionPending,
	}

	m.sugRepo.EXPECT().FindByPairForUpdateTx(gomock.Any(), gomock.Any(), anchor.ID, claim.ID).Return(&sug, nil)
	m.sugRepo.EXPECT().DecideTx(gomock.Any(), gomock.Any(), sug.ID, model.SuggestionRejected, "user", gomock.Any()).Return(nil)
	m.rejRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, p *model.RejectedPair) error {
			assert.Equal(t, anchor.ID, p.AnchorID)
			assert.Equal(t, claim.ID, p.ClaimID)
			assert.Equal(t, "user", p.RejectedBy)
			require.NotNil(t, p.Reason)
			assert.Equal(t, "wrong sender", *p.Reason)
			return nil
		})
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim.ID).Return(&claim, nil)
	m.sugRepo.EXPECT().TopPendingForClaimTx(gomock.Any(), gomock.Any(), claim.ID, sug.ID).Return(nil, nil)
	m.txRepo.EXPECT().UpdateStatusTx(gomock.Any(), gomock.Any(), claim.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, _ uuid.UUID, u store.StatusUpdate) error {
			assert.Equal(t, model.StatusPending, u.Status)
			assert.True(t, u.ClearMatch, "claim returns to the pool with no match linkage")
			return nil
		})
	m.audit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, e *model.AuditLogEntry) error {
			assert.Equal(t, model.AuditRejectMatch, e.Action)
			return nil
		})

	reason := "wrong sender"
	err := svc.Reject(context.Background(), anchor.ID, claim.ID, "user", &reason)
	require.NoError(t, err)
}

func TestReject_RelinksClaimToNextBestSuggestion(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchor := newAnchor("DAI", "100.0", 1000)
	otherAnchor := newAnchor("DAI", "100.1", 2000)
	claim := newClaim("DAI", "100.05", 1015)
	claim.Status = model.StatusSuggested
	claim.MatchedTxID = &anchor.ID

	sug := model.MatchSuggestion{ID: uuid.New(), AnchorID: anchor.ID, ClaimID: claim.ID, Score: 97.9, Status: model.SuggestionPending}
	next := model.MatchSuggestion{ID: uuid.New(), AnchorID: otherAnchor.ID, ClaimID: claim.ID, Score: 91.2, Status: model.SuggestionPending}

	m.sugRepo.EXPECT().FindByPairForUpdateTx(gomock.Any(), gomock.Any(), anchor.ID, claim.ID).Return(&sug, nil)
	m.sugRepo.EXPECT().DecideTx(gomock.Any(), gomock.Any(), sug.ID, model.SuggestionRejected, "user", gomock.Any()).Return(nil)
	m.rejRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim.ID).Return(&claim, nil)
	m.sugRepo.EXPECT().TopPendingForClaimTx(gomock.Any(), gomock.Any(), claim.ID, sug.ID).Return(&next, nil)
	m.txRepo.EXPECT().UpdateStatusTx(gomock.Any(), gomock.Any(), claim.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, _ uuid.UUID, u store.StatusUpdate) error {
			assert.Equal(t, model.StatusSuggested, u.Status)
			require.NotNil(t, u.MatchedTxID)
			assert.Equal(t, otherAnchor.ID, *u.MatchedTxID)
			require.NotNil(t, u.MatchScore)
			assert.Equal(t, 91.2, *u.MatchScore)
			return nil
		})
	m.audit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	err := svc.Reject(context.Background(), anchor.ID, claim.ID, "user", nil)
	require.NoError(t, err)
}

func TestReject_AlreadyDecidedConflicts(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchorID, claimID := uuid.New(), uuid.New()
	sug := model.MatchSuggestion{ID: uuid.New(), AnchorID: anchorID, ClaimID: claimID, Status: model.SuggestionApproved}

	m.sugRepo.EXPECT().FindByPairForUpdateTx(gomock.Any(), gomock.Any(), anchorID, claimID).Return(&sug, nil)

	err := svc.Reject(context.Background(), anchorID, claimID, "user", nil)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestBatchReconcile_PartialFailure(t *testing.T) {
	m, svc := newMatchingService(t, model.DefaultMatchingConfig())
	setupBeginTx(m.db)

	anchor1 := newAnchor("DAI", "100.0", 1000)
	claim1 := newClaim("DAI", "100.0", 1000)
	claim1.Status = model.StatusSuggested
	claim1.MatchedTxID = &anchor1.ID
	sug1 := model.MatchSuggestion{ID: uuid.New(), AnchorID: anchor1.ID, ClaimID: claim1.ID, Score: 100, Status: model.SuggestionPending}

	anchor2 := newAnchor("DAI", "50.0", 1000)
	claim2 := newClaim("DAI", "50.0", 1000)
	claim2.Status = model.StatusReconciled // already consumed

	// Pair 1 approves cleanly.
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), anchor1.ID).Return(&anchor1, nil)
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim1.ID).Return(&claim1, nil)
	m.sugRepo.EXPECT().FindByPairForUpdateTx(gomock.Any(), gomock.Any(), anchor1.ID, claim1.ID).Return(&sug1, nil)
	m.sugRepo.EXPECT().DecideTx(gomock.Any(), gomock.Any(), sug1.ID, model.SuggestionApproved, "batch", gomock.Any()).Return(nil)
	m.txRepo.EXPECT().UpdateStatusTx(gomock.Any(), gomock.Any(), claim1.ID, gomock.Any()).Return(nil)
	m.txRepo.EXPECT().UpdateStatusTx(gomock.Any(), gomock.Any(), anchor1.ID, gomock.Any()).Return(nil)
	m.audit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	// Pair 2 conflicts.
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), anchor2.ID).Return(&anchor2, nil)
	m.txRepo.EXPECT().FindByIDForUpdateTx(gomock.Any(), gomock.Any(), claim2.ID).Return(&claim2, nil)

	res, err := svc.BatchReconcile(context.Background(), []Pair{
		{AnchorID: anchor1.ID, ClaimID: claim1.ID},
		{AnchorID: anchor2.ID, ClaimID: claim2.ID},
	}, "batch")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, anchor2.ID, res.Failed[0].AnchorID)
	assert.Contains(t, res.Failed[0].Error, "already")
}
