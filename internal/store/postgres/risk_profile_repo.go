package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/store"
)

// RiskProfileRepo persists the recomputable risk profile cache. Profiles are
// never joined against by core logic; dropping the table loses nothing that
// a recalculation cannot restore.
type RiskProfileRepo struct {
	db *DB
}

func NewRiskProfileRepo(db *DB) *RiskProfileRepo {
	return &RiskProfileRepo{db: db}
}

func (r *RiskProfileRepo) Upsert(ctx context.Context, p *model.WalletRiskProfile) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	breakdown, err := json.Marshal(p.Breakdown)
	if err != nil {
		return fmt.Errorf("encode risk breakdown: %w", err)
	}
	stats, err := json.Marshal(p.Stats)
	if err != nil {
		return fmt.Errorf("encode wallet stats: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO wallet_risk_profiles (wallet, score, breakdown, stats, calculated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet) DO UPDATE SET
			score = EXCLUDED.score,
			breakdown = EXCLUDED.breakdown,
			stats = EXCLUDED.stats,
			calculated_at = EXCLUDED.calculated_at
	`, p.Wallet, p.Score, breakdown, stats, p.CalculatedAt)
	if err != nil {
		return fmt.Errorf("upsert risk profile: %w", err)
	}
	return nil
}

func scanRiskProfile(row rowScanner) (*model.WalletRiskProfile, error) {
	var p model.WalletRiskProfile
	var breakdown, stats []byte
	if err := row.Scan(&p.Wallet, &p.Score, &breakdown, &stats, &p.CalculatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(breakdown, &p.Breakdown); err != nil {
		return nil, fmt.Errorf("decode risk breakdown: %w", err)
	}
	if err := json.Unmarshal(stats, &p.Stats); err != nil {
		return nil, fmt.Errorf("decode wallet stats: %w", err)
	}
	return &p, nil
}

func (r *RiskProfileRepo) Get(ctx context.Context, wallet string) (*model.WalletRiskProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	p, err := scanRiskProfile(r.db.QueryRowContext(ctx, `
		SELECT wallet, score, breakdown, stats, calculated_at
		FROM wallet_risk_profiles
		WHERE wallet = $1
	`, wallet))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get risk profile %s: %w", wallet, err)
	}
	return p, nil
}

func (r *RiskProfileRepo) List(ctx context.Context) ([]model.WalletRiskProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT wallet, score, breakdown, stats, calculated_at
		FROM wallet_risk_profiles
		ORDER BY score DESC, wallet
	`)
	if err != nil {
		return nil, fmt.Errorf("list risk profiles: %w", err)
	}
	defer rows.Close()

	var out []model.WalletRiskProfile
	for rows.Next() {
		p, err := scanRiskProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan risk profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
