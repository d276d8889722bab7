package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
)

type RejectedPairRepo struct {
	db *DB
}

func NewRejectedPairRepo(db *DB) *RejectedPairRepo {
	return &RejectedPairRepo{db: db}
}

// InsertTx records a rejected pairing. Re-rejecting the same pair is a no-op;
// the first rejection's reason is kept.
func (r *RejectedPairRepo) InsertTx(ctx context.Context, tx *sql.Tx, pair *model.RejectedPair) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO rejected_pairs (anchor_id, claim_id, rejected_by, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (anchor_id, claim_id) DO NOTHING
	`, pair.AnchorID, pair.ClaimID, pair.RejectedBy, pair.Reason)
	if err != nil {
		return fmt.Errorf("insert rejected pair: %w", err)
	}
	return nil
}

func (r *RejectedPairRepo) Exists(ctx context.Context, anchorID, claimID uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM rejected_pairs WHERE anchor_id = $1 AND claim_id = $2)
	`, anchorID, claimID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check rejected pair: %w", err)
	}
	return exists, nil
}
