package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/store"
)

// MatchingConfigRepo stores the single active matching configuration as a
// one-row table. Saves run inside the caller's transaction so the config
// change and its audit entry commit together.
type MatchingConfigRepo struct {
	db *DB
}

func NewMatchingConfigRepo(db *DB) *MatchingConfigRepo {
	return &MatchingConfigRepo{db: db}
}

func (r *MatchingConfigRepo) Get(ctx context.Context) (*model.MatchingConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var cfg model.MatchingConfig
	var weights []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT weights, amount_tolerance_pct, time_window_ms, block_tolerance,
		       min_score, drift_warning_pct, drift_critical_pct, updated_by, updated_at
		FROM matching_config
		WHERE id = 1
	`).Scan(&weights, &cfg.AmountTolerancePct, &cfg.TimeWindowMS, &cfg.BlockTolerance,
		&cfg.MinScore, &cfg.DriftWarningPct, &cfg.DriftCriticalPct, &cfg.UpdatedBy, &cfg.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get matching config: %w", err)
	}
	if err := json.Unmarshal(weights, &cfg.Weights); err != nil {
		return nil, fmt.Errorf("decode score weights: %w", err)
	}
	return &cfg, nil
}

func (r *MatchingConfigRepo) SaveTx(ctx context.Context, tx *sql.Tx, cfg *model.MatchingConfig) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	weights, err := json.Marshal(cfg.Weights)
	if err != nil {
		return fmt.Errorf("encode score weights: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matching_config (
			id, weights, amount_tolerance_pct, time_window_ms, block_tolerance,
			min_score, drift_warning_pct, drift_critical_pct, updated_by, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			weights = EXCLUDED.weights,
			amount_tolerance_pct = EXCLUDED.amount_tolerance_pct,
			time_window_ms = EXCLUDED.time_window_ms,
			block_tolerance = EXCLUDED.block_tolerance,
			min_score = EXCLUDED.min_score,
			drift_warning_pct = EXCLUDED.drift_warning_pct,
			drift_critical_pct = EXCLUDED.drift_critical_pct,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`, weights, cfg.AmountTolerancePct, cfg.TimeWindowMS, cfg.BlockTolerance,
		cfg.MinScore, cfg.DriftWarningPct, cfg.DriftCriticalPct, cfg.UpdatedBy, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save matching config: %w", err)
	}
	return nil
}
