package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
)

type DriftRepo struct {
	db *DB
}

func NewDriftRepo(db *DB) *DriftRepo {
	return &DriftRepo{db: db}
}

func (r *DriftRepo) Upsert(ctx context.Context, rec *model.DriftRecord) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO drift_records (
			wallet, token_symbol, internal_balance, onchain_balance,
			drift, drift_pct, alert_level, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (wallet, token_symbol) DO UPDATE SET
			internal_balance = EXCLUDED.internal_balance,
			onchain_balance = EXCLUDED.onchain_balance,
			drift = EXCLUDED.drift,
			drift_pct = EXCLUDED.drift_pct,
			alert_level = EXCLUDED.alert_level,
			updated_at = EXCLUDED.updated_at
	`, rec.Wallet, rec.TokenSymbol, rec.InternalBalance, rec.OnChainBalance,
		rec.Drift, rec.DriftPct, rec.Level, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert drift record %s/%s: %w", rec.Wallet, rec.TokenSymbol, err)
	}
	return nil
}

const driftColumns = `
	wallet, token_symbol, internal_balance::text, onchain_balance::text,
	drift::text, drift_pct, alert_level, updated_at`

func scanDriftRecord(row rowScanner) (*model.DriftRecord, error) {
	var rec model.DriftRecord
	err := row.Scan(&rec.Wallet, &rec.TokenSymbol, &rec.InternalBalance, &rec.OnChainBalance,
		&rec.Drift, &rec.DriftPct, &rec.Level, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *DriftRepo) GetByWallet(ctx context.Context, wallet string) ([]model.DriftRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+driftColumns+`
		FROM drift_records
		WHERE wallet = $1
		ORDER BY token_symbol
	`, wallet)
	if err != nil {
		return nil, fmt.Errorf("get drift records for %s: %w", wallet, err)
	}
	defer rows.Close()
	return collectDriftRecords(rows)
}

// List returns every drift record, optionally filtered to a minimum alert
// level. minLevel "warning" returns warning and critical rows.
func (r *DriftRepo) List(ctx context.Context, minLevel model.AlertLevel) ([]model.DriftRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var levels []string
	switch minLevel {
	case model.AlertCritical:
		levels = []string{"critical"}
	case model.AlertWarning:
		levels = []string{"warning", "critical"}
	default:
		levels = []string{"none", "warning", "critical"}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+driftColumns+`
		FROM drift_records
		WHERE alert_level = ANY($1)
		ORDER BY drift_pct DESC, wallet, token_symbol
	`, pq.Array(levels))
	if err != nil {
		return nil, fmt.Errorf("list drift records: %w", err)
	}
	defer rows.Close()
	return collectDriftRecords(rows)
}

func collectDriftRecords(rows *sql.Rows) ([]model.DriftRecord, error) {
	var out []model.DriftRecord
	for rows.Next() {
		rec, err := scanDriftRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan drift record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
