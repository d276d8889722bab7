package ledger

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
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
	sql.Register("fake_ledger", &fakeDriver{})
}

func openFakeDB() *sql.DB {
	db, _ := sql.Open("fake_ledger", "")
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedgerMocks(t *testing.T) (
	*storemocks.MockTxBeginner,
	*storemocks.MockTransactionRepository,
	*storemocks.MockAuditLogRepository,
	*storemocks.MockMatchingConfigRepository,
	*Service,
) {
	ctrl := gomock.NewController(t)
	mockDB := storemocks.NewMockTxBeginner(ctrl)
	mockTxRepo := storemocks.NewMockTransactionRepository(ctrl)
	mockAudit := storemocks.NewMockAuditLogRepository(ctrl)
	mockConfig := storemocks.NewMockMatchingConfigRepository(ctrl)
	svc := NewService(mockDB, mockTxRepo, mockAudit, mockConfig, testLogger())
	return mockDB, mockTxRepo, mockAudit, mockConfig, svc
}

func setupBeginTx(mockDB *storemocks.MockTxBeginner) {
	fakeDB := openFakeDB()
	mockDB.EXPECT().BeginTx(gomock.Any(), gomock.Nil()).
		DoAndReturn(func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
			return fakeDB.BeginTx(ctx, opts)
		}).AnyTimes()
}

func validClaim() ClaimInput {
	from := "0xsender"
	to := "0xrecipient"
	return ClaimInput{
		TxHash:       "0xabc123",
		Source:       model.SourceLocal,
		TransferType: model.TypeTransfer,
		TokenSymbol:  "USDC",
		Amount:       "250.75",
		FromAddress:  &from,
		ToAddress:    &to,
		Timestamp:    1_700_000_000_000,
	}
}

func TestCreateClaim_Success(t *testing.T) {
	mockDB, mockTxRepo, mockAudit, _, svc := newLedgerMocks(t)
	setupBeginTx(mockDB)

	claimID := uuid.New()
	mockTxRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, tr *model.Transaction) (uuid.UUID, error) {
			assert.Equal(t, model.StatusPending, tr.Status)
			assert.Equal(t, model.SourceLocal, tr.Source)
			return claimID, nil
		})
	mockAudit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, e *model.AuditLogEntry) error {
			assert.Equal(t, model.AuditCreateClaim, e.Action)
			assert.Equal(t, model.EntityTransaction, e.EntityType)
			assert.Equal(t, claimID, e.EntityID)
			assert.Equal(t, "ops@example.com", e.Actor)
			assert.NotEmpty(t, e.NewState)
			assert.Empty(t, e.PreviousState)
			return nil
		})

	got, err := svc.CreateClaim(context.Background(), validClaim(), "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, claimID, got.ID)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestCreateClaim_RejectsOnchainSource(t *testing.T) {
	_, _, _, _, svc := newLedgerMocks(t)

	in := validClaim()
	in.Source = model.SourceOnChain

	_, err := svc.CreateClaim(context.Background(), in, "ops")
	require.Error(t, err)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "source", verr.Field)
}

func TestCreateClaim_RejectsNegativeAmount(t *testing.T) {
	_, _, _, _, svc := newLedgerMocks(t)

	in := validClaim()
	in.Amount = "-5"

	_, err := svc.CreateClaim(context.Background(), in, "ops")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)
}

func TestCreateClaim_AuditFailureRollsBack(t *testing.T) {
	mockDB, mockTxRepo, mockAudit, _, svc := newLedgerMocks(t)
	setupBeginTx(mockDB)

	mockTxRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(uuid.New(), nil)
	mockAudit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("audit insert failed"))

	_, err := svc.CreateClaim(context.Background(), validClaim(), "ops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit")
}

func TestImportClaims_PartialFailure(t *testing.T) {
	mockDB, mockTxRepo, mockAudit, _, svc := newLedgerMocks(t)
	setupBeginTx(mockDB)

	good1 := validClaim()
	bad := validClaim()
	bad.Amount = "not-a-number"
	good2 := validClaim()
	good2.TxHash = "0xdef456"

	mockTxRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(uuid.New(), nil).Times(2)
	mockAudit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, e *model.AuditLogEntry) error {
			assert.Equal(t, model.AuditImportClaim, e.Action)
			return nil
		}).Times(2)

	res, err := svc.ImportClaims(context.Background(), []ClaimInput{good1, bad, good2}, "importer")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Failed[0].Index)
	assert.Contains(t, res.Failed[0].Error, "amount")
}

func TestImportClaims_RowInsertFailureDoesNotAbortBatch(t *testing.T) {
	mockDB, mockTxRepo, mockAudit, _, svc := newLedgerMocks(t)
	setupBeginTx(mockDB)

	first := mockTxRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(uuid.Nil, errors.New("duplicate key"))
	mockTxRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(uuid.New(), nil).After(first)
	mockAudit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	res, err := svc.ImportClaims(context.Background(), []ClaimInput{validClaim(), validClaim()}, "importer")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 0, res.Failed[0].Index)
}

func validAnchor() AnchorInput {
	from := "0xexchange"
	to := "0xtreasury"
	block := int64(19_000_000)
	return AnchorInput{
		TxHash:       "0xanchor1",
		TransferType: model.TypeTransfer,
		TokenSymbol:  "DAI",
		Amount:       "100.0",
		FromAddress:  &from,
		ToAddress:    &to,
		Timestamp:    1_700_000_000_000,
		BlockNumber:  &block,
	}
}

func TestUpsertAnchor_FirstSightIsAudited(t *testing.T) {
	mockDB, mockTxRepo, mockAudit, _, svc := newLedgerMocks(t)
	setupBeginTx(mockDB)

	anchorID := uuid.New()
	mockTxRepo.EXPECT().UpsertAnchorTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, tr *model.Transaction) (uuid.UUID, bool, error) {
			assert.Equal(t, model.SourceOnChain, tr.Source)
			assert.Equal(t, model.StatusAnchor, tr.Status)
			return anchorID, true, nil
		})
	mockAudit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, e *model.AuditLogEntry) error {
			assert.Equal(t, model.AuditUpsertAnchor, e.Action)
			assert.Equal(t, anchorID, e.EntityID)
			return nil
		})

	res, err := svc.UpsertAnchor(context.Background(), validAnchor(), "indexer")
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.Equal(t, anchorID, res.Transaction.ID)
}

func TestUpsertAnchor_RefreshIsNotAudited(t *testing.T) {
	mockDB, mockTxRepo, _, _, svc := newLedgerMocks(t)
	setupBeginTx(mockDB)

	mockTxRepo.EXPECT().UpsertAnchorTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(uuid.New(), false, nil)
	// No audit expectation: a refresh must not write an audit row.

	res, err := svc.UpsertAnchor(context.Background(), validAnchor(), "indexer")
	require.NoError(t, err)
	assert.False(t, res.Inserted)
}

func TestGetMatchingConfig_DefaultsWhenUnset(t *testing.T) {
	_, _, _, mockConfig, svc := newLedgerMocks(t)

	mockConfig.EXPECT().Get(gomock.Any()).Return(nil, store.ErrNotFound)

	cfg, err := svc.GetMatchingConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMatchingConfig().Weights, cfg.Weights)
	assert.Equal(t, 70.0, cfg.MinScore)
}

func TestUpdateMatchingConfig_RejectsInvalidWeights(t *testing.T) {
	_, _, _, _, svc := newLedgerMocks(t)

	cfg := model.DefaultMatchingConfig()
	cfg.Weights.Amount = 50 // sum 110

	_, err := svc.UpdateMatchingConfig(context.Background(), cfg, "ops")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "weights", verr.Field)
}

func TestUpdateMatchingConfig_PersistsWithAudit(t *testing.T) {
	mockDB, _, mockAudit, mockConfig, svc := newLedgerMocks(t)
	setupBeginTx(mockDB)

	prev := model.DefaultMatchingConfig()
	mockConfig.EXPECT().Get(gomock.Any()).Return(&prev, nil)
	mockConfig.EXPECT().SaveTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, cfg *model.MatchingConfig) error {
			assert.Equal(t, "ops", cfg.UpdatedBy)
			assert.WithinDuration(t, time.Now().UTC(), cfg.UpdatedAt, 5*time.Second)
			return nil
		})
	mockAudit.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, e *model.AuditLogEntry) error {
			assert.Equal(t, model.AuditUpdateConfig, e.Action)
			assert.Equal(t, model.EntityConfig, e.EntityType)
			assert.NotEmpty(t, e.PreviousState)
			assert.NotEmpty(t, e.NewState)
			return nil
		})

	next := model.DefaultMatchingConfig()
	next.MinScore = 80

	saved, err := svc.UpdateMatchingConfig(context.Background(), next, "ops")
	require.NoError(t, err)
	assert.Equal(t, 80.0, saved.MinScore)
}
