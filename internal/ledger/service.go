package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/metrics"
	"github.com/emperorhan/ledger-reconciler/internal/store"
)

// ClaimInput is an operator-asserted off-chain transaction record.
type ClaimInput struct {
	TxHash       string             `json:"tx_hash"`
	Source       model.TxSource     `json:"source"`
	TransferType model.TransferType `json:"transfer_type"`
	TokenSymbol  string             `json:"token_symbol"`
	TokenAddress *string            `json:"token_address,omitempty"`
	Amount       string             `json:"amount"`
	FromAddress  *string            `json:"from_address,omitempty"`
	ToAddress    *string            `json:"to_address,omitempty"`
	Timestamp    int64              `json:"timestamp_ms"`
	Notes        *string            `json:"notes,omitempty"`
	Metadata     json.RawMessage    `json:"metadata,omitempty"`
}

// AnchorInput is an on-chain transaction observed by a chain indexer.
type AnchorInput struct {
	TxHash       string             `json:"tx_hash"`
	TransferType model.TransferType `json:"transfer_type"`
	TokenSymbol  string             `json:"token_symbol"`
	TokenAddress *string            `json:"token_address,omitempty"`
	Amount       string             `json:"amount"`
	NetAmount    *string            `json:"net_amount,omitempty"`
	GasUsed      *string            `json:"gas_used,omitempty"`
	FromAddress  *string            `json:"from_address,omitempty"`
	ToAddress    *string            `json:"to_address,omitempty"`
	Timestamp    int64              `json:"timestamp_ms"`
	BlockNumber  *int64             `json:"block_number,omitempty"`
	Metadata     json.RawMessage    `json:"metadata,omitempty"`
}

// ImportError records one rejected row of a bulk import.
type ImportError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// ImportResult summarizes a bulk claim import. Failed rows never abort the
// rest of the batch; each row commits or fails independently.
type ImportResult struct {
	Imported int           `json:"imported"`
	Failed   []ImportError `json:"failed"`
}

// UpsertResult reports an anchor upsert outcome.
type UpsertResult struct {
	Transaction *model.Transaction `json:"transaction"`
	Inserted    bool               `json:"inserted"`
}

// Service owns the anchor/claim ledger and the shared matching configuration.
// Every mutation and its audit entry commit in one database transaction.
type Service struct {
	db         store.TxBeginner
	txRepo     store.TransactionRepository
	auditRepo  store.AuditLogRepository
	configRepo store.MatchingConfigRepository
	logger     *slog.Logger
}

func NewService(
	db store.TxBeginner,
	txRepo store.TransactionRepository,
	auditRepo store.AuditLogRepository,
	configRepo store.MatchingConfigRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:         db,
		txRepo:     txRepo,
		auditRepo:  auditRepo,
		configRepo: configRepo,
		logger:     logger.With("component", "ledger"),
	}
}

func (s *Service) claimFromInput(in ClaimInput) (*model.Transaction, error) {
	if in.Source == model.SourceOnChain {
		return nil, &model.ValidationError{Field: "source", Reason: "onchain rows must go through the anchor upsert"}
	}
	t := &model.Transaction{
		TxHash:       in.TxHash,
		Source:       in.Source,
		Status:       model.StatusPending,
		TransferType: in.TransferType,
		TokenSymbol:  in.TokenSymbol,
		TokenAddress: in.TokenAddress,
		Amount:       in.Amount,
		FromAddress:  in.FromAddress,
		ToAddress:    in.ToAddress,
		Timestamp:    in.Timestamp,
		Notes:        in.Notes,
		Metadata:     in.Metadata,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateClaim records a single off-chain claim in pending status. The insert
// and its audit entry commit atomically.
func (s *Service) CreateClaim(ctx context.Context, in ClaimInput, actor string) (*model.Transaction, error) {
	t, err := s.claimFromInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.insertClaim(ctx, t, actor, model.AuditCreateClaim); err != nil {
		return nil, err
	}
	metrics.ClaimsCreatedTotal.WithLabelValues(string(t.Source)).Inc()
	s.logger.Info("claim created",
		"id", t.ID, "tx_hash", t.TxHash, "source", t.Source,
		"token", t.TokenSymbol, "amount", t.Amount, "actor", actor,
	)
	return t, nil
}

func (s *Service) insertClaim(ctx context.Context, t *model.Transaction, actor string, action model.AuditAction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	id, err := s.txRepo.InsertTx(ctx, tx, t)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	t.ID = id

	if err := s.auditRepo.InsertTx(ctx, tx, &model.AuditLogEntry{
		Action:     action,
		EntityType: model.EntityTransaction,
		EntityID:   id,
		Actor:      actor,
		NewState:   model.Snapshot(t),
	}); err != nil {
		return fmt.Errorf("audit claim insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ImportClaims records a batch of claims. Each row validates and commits
// independently so one malformed row cannot poison the batch; failures come
// back with their input index.
func (s *Service) ImportClaims(ctx context.Context, ins []ClaimInput, actor string) (*ImportResult, error) {
	res := &ImportResult{}
	for i, in := range ins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := s.claimFromInput(in)
		if err == nil {
			err = s.insertClaim(ctx, t, actor, model.AuditImportClaim)
		}
		if err != nil {
			res.Failed = append(res.Failed, ImportError{Index: i, Error: err.Error()})
			metrics.ClaimsImportFailedTotal.Inc()
			continue
		}
		res.Imported++
		metrics.ClaimsCreatedTotal.WithLabelValues(string(t.Source)).Inc()
	}
	s.logger.Info("claim import finished",
		"total", len(ins), "imported", res.Imported, "failed", len(res.Failed), "actor", actor,
	)
	return res, nil
}

// UpsertAnchor records or refreshes on-chain ground truth, keyed by
// (tx_hash, transfer_type). Re-observing a known anchor refreshes its
// chain-observed columns without touching reconciliation state, and is not
// audited; only first sight of an anchor produces an audit entry.
func (s *Service) UpsertAnchor(ctx context.Context, in AnchorInput, actor string) (*UpsertResult, error) {
	t := &model.Transaction{
		TxHash:       in.TxHash,
		Source:       model.SourceOnChain,
		Status:       model.StatusAnchor,
		TransferType: in.TransferType,
		TokenSymbol:  in.TokenSymbol,
		TokenAddress: in.TokenAddress,
		Amount:       in.Amount,
		NetAmount:    in.NetAmount,
		GasUsed:      in.GasUsed,
		FromAddress:  in.FromAddress,
		ToAddress:    in.ToAddress,
		Timestamp:    in.Timestamp,
		BlockNumber:  in.BlockNumber,
		Metadata:     in.Metadata,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	id, inserted, err := s.txRepo.UpsertAnchorTx(ctx, tx, t)
	if err != nil {
		return nil, fmt.Errorf("upsert anchor: %w", err)
	}
	t.ID = id

	if inserted {
		if err := s.auditRepo.InsertTx(ctx, tx, &model.AuditLogEntry{
			Action:     model.AuditUpsertAnchor,
			EntityType: model.EntityTransaction,
			EntityID:   id,
			Actor:      actor,
			NewState:   model.Snapshot(t),
		}); err != nil {
			return nil, fmt.Errorf("audit anchor insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	outcome := "refreshed"
	if inserted {
		outcome = "inserted"
	}
	metrics.AnchorsUpsertedTotal.WithLabelValues(outcome).Inc()
	s.logger.Debug("anchor upserted", "id", id, "tx_hash", t.TxHash, "outcome", outcome)

	return &UpsertResult{Transaction: t, Inserted: inserted}, nil
}

// GetByID returns one transaction, or store.ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return s.txRepo.FindByID(ctx, id)
}

// Query returns transactions matching the filter plus the unpaged total.
func (s *Service) Query(ctx context.Context, f store.TransactionFilter, p store.Page) ([]model.Transaction, int, error) {
	return s.txRepo.Query(ctx, f, p)
}

// GetStats returns ledger aggregate counts and the match rate.
func (s *Service) GetStats(ctx context.Context) (*store.LedgerStats, error) {
	return s.txRepo.GetStats(ctx)
}

// GetMatchingConfig returns the persisted configuration, falling back to the
// defaults while no operator has saved one.
func (s *Service) GetMatchingConfig(ctx context.Context) (*model.MatchingConfig, error) {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			def := model.DefaultMatchingConfig()
			return &def, nil
		}
		return nil, err
	}
	return cfg, nil
}

// UpdateMatchingConfig validates and persists a new configuration together
// with its audit entry. Invalid configs are rejected atomically: the stored
// config is untouched.
func (s *Service) UpdateMatchingConfig(ctx context.Context, cfg model.MatchingConfig, actor string) (*model.MatchingConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.UpdatedBy = actor
	cfg.UpdatedAt = time.Now().UTC()

	prev, err := s.GetMatchingConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load previous config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.configRepo.SaveTx(ctx, tx, &cfg); err != nil {
		return nil, fmt.Errorf("save config: %w", err)
	}

	if err := s.auditRepo.InsertTx(ctx, tx, &model.AuditLogEntry{
		Action:        model.AuditUpdateConfig,
		EntityType:    model.EntityConfig,
		EntityID:      uuid.Nil,
		Actor:         actor,
		PreviousState: model.Snapshot(prev),
		NewState:      model.Snapshot(cfg),
	}); err != nil {
		return nil, fmt.Errorf("audit config update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("matching config updated", "actor", actor, "min_score", cfg.MinScore)
	return &cfg, nil
}
