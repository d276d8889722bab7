package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
)

// TxBeginner abstracts the ability to begin a database transaction. Every
// mutating service operation runs its repo writes and its audit write inside
// one transaction obtained here.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Page bounds a query result. A zero Limit falls back to the repo default.
type Page struct {
	Limit  int
	Offset int
}

// TransactionFilter narrows ledger queries. Nil fields are not applied.
type TransactionFilter struct {
	Source        *model.TxSource
	Status        *model.TxStatus
	TokenSymbol   *string
	FromTimestamp *int64 // epoch ms, inclusive
	ToTimestamp   *int64 // epoch ms, inclusive
	FromAddress   *string
	ToAddress     *string
}

// CandidateQuery describes the pre-filter for claim candidates of one anchor:
// same token, amount within ±AmountTolerancePct, timestamp within
// ±TimeWindowMS, status still open, source off-chain, pair not rejected.
// Results are ordered by absolute amount distance ascending.
type CandidateQuery struct {
	AnchorID           uuid.UUID
	TokenSymbol        string
	Amount             string // decimal string
	AmountTolerancePct float64
	TimestampMS        int64
	TimeWindowMS       int64
	Limit              int
}

// StatusUpdate is a partial update of a transaction's lifecycle fields.
// Nil pointer fields are left untouched. ClearMatch nulls every match-linkage
// column; it cannot be combined with the match pointer fields.
type StatusUpdate struct {
	Status       model.TxStatus
	MatchedTxID  *uuid.UUID
	MatchScore   *float64
	Breakdown    *model.ScoreBreakdown
	ReconciledBy *string
	ReconciledAt *time.Time
	ForceMatched *bool
	Notes        *string
	ClearMatch   bool
}

// LedgerStats aggregates ledger counts. MatchRate is
// round(reconciled claims / total claims * 100), 0 when no claims exist.
// Force-reconciled claims count as reconciled.
type LedgerStats struct {
	TotalAnchors      int     `json:"total_anchors"`
	TotalClaims       int     `json:"total_claims"`
	Reconciled        int     `json:"reconciled"`
	ForceReconciled   int     `json:"force_reconciled"`
	Pending           int     `json:"pending"`
	Suggested         int     `json:"suggested"`
	Unreconciled      int     `json:"unreconciled"`
	Rejected          int     `json:"rejected"`
	UnmatchedAnchors  int     `json:"unmatched_anchors"`
	MatchRate         int     `json:"match_rate"`
}

// WalletTokenBalance is the ledger-implied balance of one wallet+token pair,
// derived from reconciled transfers.
type WalletTokenBalance struct {
	Wallet      string
	TokenSymbol string
	Balance     string // decimal string, may be negative
}

// TransactionRepository provides access to the unified anchor/claim ledger.
type TransactionRepository interface {
	// InsertTx inserts a new claim row. Amount constraints and the anchor
	// uniqueness rule are enforced by the schema.
	InsertTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) (uuid.UUID, error)
	// UpsertAnchorTx inserts or refreshes an anchor keyed by
	// (tx_hash, transfer_type). Returns the row id and whether it was new.
	UpsertAnchorTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) (uuid.UUID, bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	// FindByIDForUpdateTx locks the row for the duration of tx.
	FindByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*model.Transaction, error)
	Query(ctx context.Context, f TransactionFilter, p Page) ([]model.Transaction, int, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, u StatusUpdate) error
	GetUnmatchedAnchors(ctx context.Context, tokenSymbol *string, limit int) ([]model.Transaction, error)
	GetCandidateClaims(ctx context.Context, q CandidateQuery) ([]model.Transaction, error)
	// MarkUnreconciled flips still-pending claims in scope with no pending
	// suggestion to unreconciled. Returns the number of rows updated.
	MarkUnreconciled(ctx context.Context, tokenSymbol *string) (int64, error)
	GetStats(ctx context.Context) (*LedgerStats, error)

	// Risk and drift support.
	GetWalletHistory(ctx context.Context, wallet string, exclude *uuid.UUID) ([]model.Transaction, error)
	ListWallets(ctx context.Context) ([]string, error)
	GetReconciledBalances(ctx context.Context) ([]WalletTokenBalance, error)
}

// SuggestionRepository provides access to match suggestions.
type SuggestionRepository interface {
	// InsertTx inserts a suggestion, keeping (anchor_id, claim_id) unique.
	// Returns false when the pair already has a suggestion in any state.
	InsertTx(ctx context.Context, tx *sql.Tx, s *model.MatchSuggestion) (bool, error)
	// FindByPairForUpdateTx locks the pair's suggestion row.
	FindByPairForUpdateTx(ctx context.Context, tx *sql.Tx, anchorID, claimID uuid.UUID) (*model.MatchSuggestion, error)
	// DecideTx records the single allowed mutation: pending → approved/rejected.
	DecideTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status model.SuggestionStatus, reviewer string, at time.Time) error
	// TopPendingForClaimTx returns the highest-scoring pending suggestion
	// for a claim, excluding the given suggestion id. Nil when none remain.
	TopPendingForClaimTx(ctx context.Context, tx *sql.Tx, claimID, exclude uuid.UUID) (*model.MatchSuggestion, error)
	List(ctx context.Context, status *model.SuggestionStatus, p Page) ([]model.MatchSuggestion, int, error)
}

// RejectedPairRepository remembers operator-rejected pairings.
type RejectedPairRepository interface {
	InsertTx(ctx context.Context, tx *sql.Tx, pair *model.RejectedPair) error
	Exists(ctx context.Context, anchorID, claimID uuid.UUID) (bool, error)
}

// AuditFilter narrows audit log queries. Nil fields are not applied.
type AuditFilter struct {
	Action     *model.AuditAction
	EntityType *model.AuditEntityType
	EntityID   *uuid.UUID
	Actor      *string
	From       *time.Time
	To         *time.Time
}

// AuditLogRepository is append-only: there is no update or delete.
type AuditLogRepository interface {
	InsertTx(ctx context.Context, tx *sql.Tx, e *model.AuditLogEntry) error
	// Query returns entries newest-first.
	Query(ctx context.Context, f AuditFilter, p Page) ([]model.AuditLogEntry, int, error)
}

// RiskProfileRepository persists the recomputable risk profile cache.
type RiskProfileRepository interface {
	Upsert(ctx context.Context, p *model.WalletRiskProfile) error
	Get(ctx context.Context, wallet string) (*model.WalletRiskProfile, error)
	List(ctx context.Context) ([]model.WalletRiskProfile, error)
}

// DriftRepository persists per wallet+token drift records.
type DriftRepository interface {
	Upsert(ctx context.Context, r *model.DriftRecord) error
	GetByWallet(ctx context.Context, wallet string) ([]model.DriftRecord, error)
	// List returns records at or above minLevel; AlertNone returns everything.
	List(ctx context.Context, minLevel model.AlertLevel) ([]model.DriftRecord, error)
}

// MatchingConfigRepository stores the single active matching configuration.
type MatchingConfigRepository interface {
	// Get returns ErrNotFound while no configuration has been saved.
	Get(ctx context.Context) (*model.MatchingConfig, error)
	SaveTx(ctx context.Context, tx *sql.Tx, cfg *model.MatchingConfig) error
}
