//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/store"
	"github.com/emperorhan/ledger-reconciler/internal/store/postgres"
)

// testDB returns a migrated database: TEST_DB_URL when set, otherwise an
// ephemeral testcontainers PostgreSQL.
func testDB(t *testing.T) *postgres.DB {
	t.Helper()
	url := os.Getenv("TEST_DB_URL")
	if url != "" {
		db, err := postgres.New(postgres.Config{
			URL:             url,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
		})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return db
	}
	return setupTestContainer(t)
}

func strPtr(s string) *string { return &s }

// newClaim builds a pending manual claim. The uuid suffix keeps rows from
// different tests disjoint on a shared TEST_DB_URL database.
func newClaim(token, amount, wallet string, ts int64) *model.Transaction {
	return &model.Transaction{
		TxHash:       "it-claim-" + uuid.NewString(),
		Source:       model.SourceManual,
		Status:       model.StatusPending,
		TransferType: model.TypeTransfer,
		TokenSymbol:  token,
		Amount:       amount,
		ToAddress:    strPtr(wallet),
		Timestamp:    ts,
	}
}

func newAnchor(token, amount, wallet string, ts int64) *model.Transaction {
	return &model.Transaction{
		TxHash:       "it-anchor-" + uuid.NewString(),
		Source:       model.SourceOnChain,
		Status:       model.StatusAnchor,
		TransferType: model.TypeTransfer,
		TokenSymbol:  token,
		Amount:       amount,
		ToAddress:    strPtr(wallet),
		Timestamp:    ts,
	}
}

// insertClaim commits a claim row and returns its id.
func insertClaim(t *testing.T, db *postgres.DB, repo *postgres.TransactionRepo, c *model.Transaction) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	id, err := repo.InsertTx(ctx, tx, c)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return id
}

func insertAnchor(t *testing.T, db *postgres.DB, repo *postgres.TransactionRepo, a *model.Transaction) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	id, _, err := repo.UpsertAnchorTx(ctx, tx, a)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return id
}

func setStatus(t *testing.T, db *postgres.DB, repo *postgres.TransactionRepo, id uuid.UUID, u store.StatusUpdate) {
	t.Helper()
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatusTx(ctx, tx, id, u))
	require.NoError(t, tx.Commit())
}

// uniqueToken returns a per-test token symbol so amount/stat assertions are
// not polluted by rows from other tests.
func uniqueToken() string {
	return "TK" + uuid.NewString()[:6]
}

func uniqueWallet() string {
	return "0xit" + uuid.NewString()[:12]
}

// ---------- TransactionRepo ----------

func TestTransactionRepo_InsertClaimAndFind(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()

	token := uniqueToken()
	wallet := uniqueWallet()
	claim := newClaim(token, "125.50", wallet, time.Now().UnixMilli())
	id := insertClaim(t, db, repo, claim)
	require.NotEqual(t, uuid.Nil, id)

	found, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, claim.TxHash, found.TxHash)
	assert.Equal(t, model.SourceManual, found.Source)
	assert.Equal(t, model.StatusPending, found.Status)
	assert.Equal(t, token, found.TokenSymbol)
	assert.Equal(t, "125.50", found.Amount)
	require.NotNil(t, found.ToAddress)
	assert.Equal(t, wallet, *found.ToAddress)
}

func TestTransactionRepo_FindByID_NotFound(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransactionRepo_AnchorUpsertIdempotent(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()

	anchor := newAnchor(uniqueToken(), "42", uniqueWallet(), time.Now().UnixMilli())

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	id1, inserted1, err := repo.UpsertAnchorTx(ctx, tx, anchor)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.True(t, inserted1)

	// Re-sync of the same (tx_hash, transfer_type) refreshes in place.
	anchor.Amount = "43"
	tx2, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	id2, inserted2, err := repo.UpsertAnchorTx(ctx, tx2, anchor)
	require.NoError(t, err)
	require.NoError(t, tx2.Commit())

	assert.False(t, inserted2)
	assert.Equal(t, id1, id2)

	found, err := repo.FindByID(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "43", found.Amount)
}

func TestTransactionRepo_CandidateOrderingAndWindow(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()

	token := uniqueToken()
	wallet := uniqueWallet()
	base := time.Now().UnixMilli()

	anchorID := insertAnchor(t, db, repo, newAnchor(token, "100", wallet, base))

	near := insertClaim(t, db, repo, newClaim(token, "99.50", wallet, base))
	far := insertClaim(t, db, repo, newClaim(token, "103", wallet, base))
	exact := insertClaim(t, db, repo, newClaim(token, "100", wallet, base))
	// Outside the ±5% amount band.
	insertClaim(t, db, repo, newClaim(token, "120", wallet, base))
	// Outside the time window.
	insertClaim(t, db, repo, newClaim(token, "100", wallet, base-10*60_000))

	got, err := repo.GetCandidateClaims(ctx, store.CandidateQuery{
		AnchorID:           anchorID,
		TokenSymbol:        token,
		Amount:             "100",
		AmountTolerancePct: 5,
		TimestampMS:        base,
		TimeWindowMS:       60_000,
		Limit:              50,
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, exact, got[0].ID)
	assert.Equal(t, near, got[1].ID)
	assert.Equal(t, far, got[2].ID)
}

func TestTransactionRepo_CandidatesExcludeRejectedPairs(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	rejRepo := postgres.NewRejectedPairRepo(db)
	ctx := context.Background()

	token := uniqueToken()
	wallet := uniqueWallet()
	base := time.Now().UnixMilli()

	anchorID := insertAnchor(t, db, repo, newAnchor(token, "100", wallet, base))
	claimID := insertClaim(t, db, repo, newClaim(token, "100", wallet, base))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, rejRepo.InsertTx(ctx, tx, &model.RejectedPair{
		AnchorID:   anchorID,
		ClaimID:    claimID,
		RejectedBy: "ops",
	}))
	require.NoError(t, tx.Commit())

	got, err := repo.GetCandidateClaims(ctx, store.CandidateQuery{
		AnchorID:           anchorID,
		TokenSymbol:        token,
		Amount:             "100",
		AmountTolerancePct: 5,
		TimestampMS:        base,
		TimeWindowMS:       60_000,
	})
	require.NoError(t, err)
	assert.Empty(t, got)

	exists, err := rejRepo.Exists(ctx, anchorID, claimID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTransactionRepo_QueryFilters(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()

	token := uniqueToken()
	wallet := uniqueWallet()
	base := time.Now().UnixMilli()

	insertClaim(t, db, repo, newClaim(token, "10", wallet, base))
	insertClaim(t, db, repo, newClaim(token, "20", wallet, base+1))
	insertAnchor(t, db, repo, newAnchor(token, "10", wallet, base))

	src := model.SourceManual
	got, total, err := repo.Query(ctx, store.TransactionFilter{
		Source:      &src,
		TokenSymbol: &token,
	}, store.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	for _, tr := range got {
		assert.Equal(t, model.SourceManual, tr.Source)
		assert.Equal(t, token, tr.TokenSymbol)
	}

	// Pagination.
	_, total, err = repo.Query(ctx, store.TransactionFilter{TokenSymbol: &token}, store.Page{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestTransactionRepo_MarkUnreconciled(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()

	token := uniqueToken()
	wallet := uniqueWallet()
	id := insertClaim(t, db, repo, newClaim(token, "10", wallet, time.Now().UnixMilli()))

	n, err := repo.MarkUnreconciled(ctx, &token)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	found, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnreconciled, found.Status)

	// Second sweep is a no-op.
	n, err = repo.MarkUnreconciled(ctx, &token)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransactionRepo_ReconciledBalancesAndHistory(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()

	token := uniqueToken()
	wallet := uniqueWallet()
	base := time.Now().UnixMilli()

	first := insertClaim(t, db, repo, newClaim(token, "100", wallet, base))
	second := insertClaim(t, db, repo, newClaim(token, "50", wallet, base+1000))
	reviewer := "ops"
	now := time.Now().UTC()
	setStatus(t, db, repo, first, store.StatusUpdate{
		Status:       model.StatusReconciled,
		ReconciledBy: &reviewer,
		ReconciledAt: &now,
	})
	setStatus(t, db, repo, second, store.StatusUpdate{
		Status:       model.StatusReconciled,
		ReconciledBy: &reviewer,
		ReconciledAt: &now,
	})

	balances, err := repo.GetReconciledBalances(ctx)
	require.NoError(t, err)
	var found bool
	for _, b := range balances {
		if b.Wallet == wallet && b.TokenSymbol == token {
			found = true
			assert.Equal(t, "150", b.Balance)
		}
	}
	assert.True(t, found, "expected a balance row for %s/%s", wallet, token)

	history, err := repo.GetWalletHistory(ctx, wallet, nil)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first, history[0].ID)
	assert.Equal(t, second, history[1].ID)

	// Excluding the latest row leaves only the baseline.
	history, err = repo.GetWalletHistory(ctx, wallet, &second)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first, history[0].ID)

	wallets, err := repo.ListWallets(ctx)
	require.NoError(t, err)
	assert.Contains(t, wallets, wallet)
}

// ---------- SuggestionRepo ----------

func TestSuggestionRepo_PairUniqueAndDecide(t *testing.T) {
	db := testDB(t)
	txRepo := postgres.NewTransactionRepo(db)
	sugRepo := postgres.NewSuggestionRepo(db)
	ctx := context.Background()

	token := uniqueToken()
	wallet := uniqueWallet()
	base := time.Now().UnixMilli()
	anchorID := insertAnchor(t, db, txRepo, newAnchor(token, "100", wallet, base))
	claimID := insertClaim(t, db, txRepo, newClaim(token, "100", wallet, base))

	sug := &model.MatchSuggestion{
		AnchorID: anchorID,
		ClaimID:  claimID,
		Score:    92.5,
		Breakdown: model.ScoreBreakdown{
			Amount: 40, Time: 25, Token: 20, Address: 7.5,
		},
		Status: model.SuggestionPending,
	}

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	inserted, err := sugRepo.InsertTx(ctx, tx, sug)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.True(t, inserted)

	// The same pair never gets a second suggestion.
	tx2, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	inserted, err = sugRepo.InsertTx(ctx, tx2, sug)
	require.NoError(t, err)
	require.NoError(t, tx2.Commit())
	assert.False(t, inserted)

	tx3, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	locked, err := sugRepo.FindByPairForUpdateTx(ctx, tx3, anchorID, claimID)
	require.NoError(t, err)
	require.NoError(t, sugRepo.DecideTx(ctx, tx3, locked.ID, model.SuggestionApproved, "ops", time.Now().UTC()))
	require.NoError(t, tx3.Commit())

	status := model.SuggestionApproved
	got, total, err := sugRepo.List(ctx, &status, store.Page{Limit: 100})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	var seen bool
	for _, s := range got {
		if s.ID == locked.ID {
			seen = true
			require.NotNil(t, s.ReviewedBy)
			assert.Equal(t, "ops", *s.ReviewedBy)
		}
	}
	assert.True(t, seen)
}

func TestSuggestionRepo_TopPendingForClaim(t *testing.T) {
	db := testDB(t)
	txRepo := postgres.NewTransactionRepo(db)
	sugRepo := postgres.NewSuggestionRepo(db)
	ctx := context.Background()

	token := uniqueToken()
	wallet := uniqueWallet()
	base := time.Now().UnixMilli()
	claimID := insertClaim(t, db, txRepo, newClaim(token, "100", wallet, base))
	anchorA := insertAnchor(t, db, txRepo, newAnchor(token, "100", wallet, base))
	anchorB := insertAnchor(t, db, txRepo, newAnchor(token, "101", wallet, base))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = sugRepo.InsertTx(ctx, tx, &model.MatchSuggestion{
		AnchorID: anchorA, ClaimID: claimID, Score: 95, Status: model.SuggestionPending,
	})
	require.NoError(t, err)
	_, err = sugRepo.InsertTx(ctx, tx, &model.MatchSuggestion{
		AnchorID: anchorB, ClaimID: claimID, Score: 80, Status: model.SuggestionPending,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx2.Rollback()

	best, err := sugRepo.FindByPairForUpdateTx(ctx, tx2, anchorA, claimID)
	require.NoError(t, err)

	// Excluding the best leaves the runner-up.
	next, err := sugRepo.TopPendingForClaimTx(ctx, tx2, claimID, best.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, anchorB, next.AnchorID)
	assert.Equal(t, 80.0, next.Score)
}

// ---------- AuditLogRepo ----------

func TestAuditLogRepo_AppendAndQuery(t *testing.T) {
	db := testDB(t)
	auditRepo := postgres.NewAuditLogRepo(db)
	ctx := context.Background()

	entityID := uuid.New()
	actor := "it-" + uuid.NewString()[:8]

	for i := 0; i < 3; i++ {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, auditRepo.InsertTx(ctx, tx, &model.AuditLogEntry{
			Action:     model.AuditCreateClaim,
			EntityType: model.EntityTransaction,
			EntityID:   entityID,
			Actor:      actor,
			NewState:   model.Snapshot(map[string]int{"seq": i}),
		}))
		require.NoError(t, tx.Commit())
	}

	got, total, err := auditRepo.Query(ctx, store.AuditFilter{Actor: &actor}, store.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 3)
	// Newest first.
	assert.False(t, got[0].CreatedAt.Before(got[2].CreatedAt))

	action := model.AuditCreateClaim
	got, _, err = auditRepo.Query(ctx, store.AuditFilter{Actor: &actor, Action: &action, EntityID: &entityID}, store.Page{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

// ---------- RiskProfileRepo ----------

func TestRiskProfileRepo_UpsertGetList(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewRiskProfileRepo(db)
	ctx := context.Background()

	wallet := uniqueWallet()
	profile := &model.WalletRiskProfile{
		Wallet: wallet,
		Score:  55,
		Breakdown: model.RiskBreakdown{
			NewCounterparty: 30, AmountAnomaly: 25,
		},
		Stats:        model.WalletStats{TxCount: 12},
		CalculatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Upsert(ctx, profile))

	got, err := repo.Get(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, 55.0, got.Score)
	assert.Equal(t, 30.0, got.Breakdown.NewCounterparty)
	assert.Equal(t, 12, got.Stats.TxCount)

	// Upsert replaces in place.
	profile.Score = 70
	require.NoError(t, repo.Upsert(ctx, profile))
	got, err = repo.Get(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Score)

	_, err = repo.Get(ctx, uniqueWallet())
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	var seen bool
	for _, p := range all {
		if p.Wallet == wallet {
			seen = true
		}
	}
	assert.True(t, seen)
}

// ---------- DriftRepo ----------

func TestDriftRepo_UpsertAndMinLevel(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewDriftRepo(db)
	ctx := context.Background()

	wallet := uniqueWallet()
	now := time.Now().UTC()
	records := []model.DriftRecord{
		{Wallet: wallet, TokenSymbol: "USDC", InternalBalance: "100", OnChainBalance: "100", Drift: "0", DriftPct: 0, Level: model.AlertNone, UpdatedAt: now},
		{Wallet: wallet, TokenSymbol: "DAI", InternalBalance: "100", OnChainBalance: "98", Drift: "-2", DriftPct: -2, Level: model.AlertWarning, UpdatedAt: now},
		{Wallet: wallet, TokenSymbol: "WETH", InternalBalance: "100", OnChainBalance: "90", Drift: "-10", DriftPct: -10, Level: model.AlertCritical, UpdatedAt: now},
	}
	for i := range records {
		require.NoError(t, repo.Upsert(ctx, &records[i]))
	}

	byWallet, err := repo.GetByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Len(t, byWallet, 3)

	warnings, err := repo.List(ctx, model.AlertWarning)
	require.NoError(t, err)
	for _, r := range warnings {
		assert.NotEqual(t, model.AlertNone, r.Level)
	}
	count := func(rs []model.DriftRecord, w string) int {
		n := 0
		for _, r := range rs {
			if r.Wallet == w {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 2, count(warnings, wallet))

	criticals, err := repo.List(ctx, model.AlertCritical)
	require.NoError(t, err)
	assert.Equal(t, 1, count(criticals, wallet))

	// Re-sync overwrites the wallet+token row.
	records[2].OnChainBalance = "100"
	records[2].Drift = "0"
	records[2].DriftPct = 0
	records[2].Level = model.AlertNone
	require.NoError(t, repo.Upsert(ctx, &records[2]))

	criticals, err = repo.List(ctx, model.AlertCritical)
	require.NoError(t, err)
	assert.Zero(t, count(criticals, wallet))
}

// ---------- MatchingConfigRepo ----------

func TestMatchingConfigRepo_SaveAndGet(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewMatchingConfigRepo(db)
	ctx := context.Background()

	// A fresh database has no config row.
	if os.Getenv("TEST_DB_URL") == "" {
		_, err := repo.Get(ctx)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}

	cfg := model.DefaultMatchingConfig()
	cfg.MinScore = 80
	cfg.UpdatedBy = "it"
	cfg.UpdatedAt = time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.SaveTx(ctx, tx, &cfg))
	require.NoError(t, tx.Commit())

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.MinScore)
	assert.Equal(t, "it", got.UpdatedBy)

	// Saving again keeps a single active row.
	cfg.MinScore = 85
	tx2, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.SaveTx(ctx, tx2, &cfg))
	require.NoError(t, tx2.Commit())

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 85.0, got.MinScore)
}

// ---------- Stats ----------

func TestTransactionRepo_GetStats(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()

	token := uniqueToken()
	wallet := uniqueWallet()
	base := time.Now().UnixMilli()

	insertAnchor(t, db, repo, newAnchor(token, "10", wallet, base))
	claimID := insertClaim(t, db, repo, newClaim(token, "10", wallet, base))
	reviewer := "ops"
	now := time.Now().UTC()
	setStatus(t, db, repo, claimID, store.StatusUpdate{
		Status:       model.StatusReconciled,
		ReconciledBy: &reviewer,
		ReconciledAt: &now,
	})

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalAnchors, 1)
	assert.GreaterOrEqual(t, stats.TotalClaims, 1)
	assert.GreaterOrEqual(t, stats.Reconciled, 1)
	assert.GreaterOrEqual(t, stats.MatchRate, 0)
	assert.LessOrEqual(t, stats.MatchRate, 100)
}
