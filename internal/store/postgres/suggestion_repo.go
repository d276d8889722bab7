package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/store"
)

type SuggestionRepo struct {
	db *DB
}

func NewSuggestionRepo(db *DB) *SuggestionRepo {
	return &SuggestionRepo{db: db}
}

const suggestionColumns = `
	id, anchor_id, claim_id, score, score_breakdown, status,
	reviewed_by, reviewed_at, created_at`

func scanSuggestion(row rowScanner) (*model.MatchSuggestion, error) {
	var s model.MatchSuggestion
	var breakdown []byte
	if err := row.Scan(
		&s.ID, &s.AnchorID, &s.ClaimID, &s.Score, &breakdown, &s.Status,
		&s.ReviewedBy, &s.ReviewedAt, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(breakdown, &s.Breakdown); err != nil {
		return nil, fmt.Errorf("decode score breakdown: %w", err)
	}
	return &s, nil
}

// InsertTx inserts a suggestion. The (anchor_id, claim_id) pair is unique
// across all states, which makes matching runs idempotent: a pair already
// pending or already decided is silently skipped (returns false).
func (r *SuggestionRepo) InsertTx(ctx context.Context, tx *sql.Tx, s *model.MatchSuggestion) (bool, error) {
	breakdown, err := json.Marshal(s.Breakdown)
	if err != nil {
		return false, fmt.Errorf("encode score breakdown: %w", err)
	}

	status := s.Status
	if status == "" {
		status = model.SuggestionPending
	}

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO match_suggestions (anchor_id, claim_id, score, score_breakdown, status, reviewed_by, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (anchor_id, claim_id) DO NOTHING
		RETURNING id
	`, s.AnchorID, s.ClaimID, s.Score, breakdown, status, s.ReviewedBy, s.ReviewedAt).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("insert suggestion: %w", err)
	}
	s.ID = id
	return true, nil
}

func (r *SuggestionRepo) FindByPairForUpdateTx(ctx context.Context, tx *sql.Tx, anchorID, claimID uuid.UUID) (*model.MatchSuggestion, error) {
	s, err := scanSuggestion(tx.QueryRowContext(ctx, `
		SELECT `+suggestionColumns+`
		FROM match_suggestions
		WHERE anchor_id = $1 AND claim_id = $2
		FOR UPDATE
	`, anchorID, claimID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("lock suggestion (%s, %s): %w", anchorID, claimID, err)
	}
	return s, nil
}

// DecideTx records the single allowed mutation of a suggestion. The WHERE
// guard on status makes a second decision attempt a conflict, not an update.
func (r *SuggestionRepo) DecideTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status model.SuggestionStatus, reviewer string, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE match_suggestions
		SET status = $1, reviewed_by = $2, reviewed_at = $3
		WHERE id = $4 AND status = 'pending'
	`, status, reviewer, at, id)
	if err != nil {
		return fmt.Errorf("decide suggestion %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decide suggestion %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *SuggestionRepo) TopPendingForClaimTx(ctx context.Context, tx *sql.Tx, claimID, exclude uuid.UUID) (*model.MatchSuggestion, error) {
	s, err := scanSuggestion(tx.QueryRowContext(ctx, `
		SELECT `+suggestionColumns+`
		FROM match_suggestions
		WHERE claim_id = $1 AND status = 'pending' AND id <> $2
		ORDER BY score DESC, created_at ASC
		LIMIT 1
	`, claimID, exclude))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("top pending suggestion for claim %s: %w", claimID, err)
	}
	return s, nil
}

func (r *SuggestionRepo) List(ctx context.Context, status *model.SuggestionStatus, p store.Page) ([]model.MatchSuggestion, int, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM match_suggestions
		WHERE ($1::text IS NULL OR status = $1)
	`, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suggestions: %w", err)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+`
		FROM match_suggestions
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query suggestions: %w", err)
	}
	defer rows.Close()

	var out []model.MatchSuggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}
