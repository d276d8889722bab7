package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/store"
)

type TransactionRepo struct {
	db *DB
}

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

const txColumns = `
	id, tx_hash, source, status, transfer_type, token_symbol, token_address,
	amount::text, net_amount::text, gas_used::text, from_address, to_address,
	timestamp_ms, block_number, matched_tx_id, match_score, score_breakdown,
	reconciled_by, reconciled_at, force_reconciled, notes, metadata,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var t model.Transaction
	var breakdown []byte
	if err := row.Scan(
		&t.ID, &t.TxHash, &t.Source, &t.Status, &t.TransferType,
		&t.TokenSymbol, &t.TokenAddress, &t.Amount, &t.NetAmount, &t.GasUsed,
		&t.FromAddress, &t.ToAddress, &t.Timestamp, &t.BlockNumber,
		&t.MatchedTxID, &t.MatchScore, &breakdown,
		&t.ReconciledBy, &t.ReconciledAt, &t.ForceMatched, &t.Notes,
		&t.Metadata, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(breakdown) > 0 {
		var b model.ScoreBreakdown
		if err := json.Unmarshal(breakdown, &b); err != nil {
			return nil, fmt.Errorf("decode score breakdown: %w", err)
		}
		t.ScoreDetail = &b
	}
	return &t, nil
}

func marshalBreakdown(b *model.ScoreBreakdown) (any, error) {
	if b == nil {
		return nil, nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode score breakdown: %w", err)
	}
	return raw, nil
}

// nullableJSON turns an empty metadata document into SQL NULL.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// InsertTx inserts a new claim (or manually staged anchor) row.
func (r *TransactionRepo) InsertTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) (uuid.UUID, error) {
	breakdown, err := marshalBreakdown(t.ScoreDetail)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (
			tx_hash, source, status, transfer_type, token_symbol, token_address,
			amount, net_amount, gas_used, from_address, to_address,
			timestamp_ms, block_number, match_score, score_breakdown,
			force_reconciled, notes, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric,
			$10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`, t.TxHash, t.Source, t.Status, t.TransferType, t.TokenSymbol, t.TokenAddress,
		t.Amount, t.NetAmount, t.GasUsed, t.FromAddress, t.ToAddress,
		t.Timestamp, t.BlockNumber, t.MatchScore, breakdown,
		t.ForceMatched, t.Notes, nullableJSON(t.Metadata),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// UpsertAnchorTx inserts an anchor or refreshes an existing one keyed by
// (tx_hash, transfer_type). Re-syncs update the observed chain fields only;
// lifecycle and match-linkage columns are never touched.
func (r *TransactionRepo) UpsertAnchorTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) (uuid.UUID, bool, error) {
	var id uuid.UUID
	var inserted bool
	err := tx.QueryRowContext(ctx, `
		INSERT INTO transactions (
			tx_hash, source, status, transfer_type, token_symbol, token_address,
			amount, net_amount, gas_used, from_address, to_address,
			timestamp_ms, block_number, metadata
		)
		VALUES ($1, 'onchain', 'anchor', $2, $3, $4, $5::numeric, $6::numeric,
			$7::numeric, $8, $9, $10, $11, $12)
		ON CONFLICT (tx_hash, transfer_type) WHERE source = 'onchain' DO UPDATE SET
			token_symbol = EXCLUDED.token_symbol,
			token_address = EXCLUDED.token_address,
			amount = EXCLUDED.amount,
			net_amount = EXCLUDED.net_amount,
			gas_used = EXCLUDED.gas_used,
			from_address = EXCLUDED.from_address,
			to_address = EXCLUDED.to_address,
			timestamp_ms = EXCLUDED.timestamp_ms,
			block_number = EXCLUDED.block_number,
			metadata = EXCLUDED.metadata,
			updated_at = now()
		RETURNING id, (xmax = 0)
	`, t.TxHash, t.TransferType, t.TokenSymbol, t.TokenAddress,
		t.Amount, t.NetAmount, t.GasUsed, t.FromAddress, t.ToAddress,
		t.Timestamp, t.BlockNumber, nullableJSON(t.Metadata),
	).Scan(&id, &inserted)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("upsert anchor: %w", err)
	}
	return id, inserted, nil
}

func (r *TransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find transaction %s: %w", id, err)
	}
	return t, nil
}

// FindByIDForUpdateTx locks the row until tx ends, serializing concurrent
// lifecycle transitions on the same transaction.
func (r *TransactionRepo) FindByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*model.Transaction, error) {
	t, err := scanTransaction(tx.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("lock transaction %s: %w", id, err)
	}
	return t, nil
}

func (r *TransactionRepo) Query(ctx context.Context, f store.TransactionFilter, p store.Page) ([]model.Transaction, int, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	where, args := buildTransactionWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, p.Offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions`+where+
			fmt.Sprintf(` ORDER BY timestamp_ms DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func buildTransactionWhere(f store.TransactionFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Source != nil {
		add("source = $%d", *f.Source)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.TokenSymbol != nil {
		add("token_symbol = $%d", *f.TokenSymbol)
	}
	if f.FromTimestamp != nil {
		add("timestamp_ms >= $%d", *f.FromTimestamp)
	}
	if f.ToTimestamp != nil {
		add("timestamp_ms <= $%d", *f.ToTimestamp)
	}
	if f.FromAddress != nil {
		add("from_address = $%d", *f.FromAddress)
	}
	if f.ToAddress != nil {
		add("to_address = $%d", *f.ToAddress)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// UpdateStatusTx applies a partial lifecycle update. The caller is expected
// to hold the row lock (FindByIDForUpdateTx) within the same tx.
func (r *TransactionRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, u store.StatusUpdate) error {
	sets := []string{"status = $1", "updated_at = now()"}
	args := []any{u.Status}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.ClearMatch {
		sets = append(sets,
			"matched_tx_id = NULL", "match_score = NULL", "score_breakdown = NULL",
			"reconciled_by = NULL", "reconciled_at = NULL", "force_reconciled = FALSE")
	} else {
		if u.MatchedTxID != nil {
			set("matched_tx_id", *u.MatchedTxID)
		}
		if u.MatchScore != nil {
			set("match_score", *u.MatchScore)
		}
		if u.Breakdown != nil {
			raw, err := marshalBreakdown(u.Breakdown)
			if err != nil {
				return err
			}
			set("score_breakdown", raw)
		}
		if u.ReconciledBy != nil {
			set("reconciled_by", *u.ReconciledBy)
		}
		if u.ReconciledAt != nil {
			set("reconciled_at", *u.ReconciledAt)
		}
		if u.ForceMatched != nil {
			set("force_reconciled", *u.ForceMatched)
		}
	}
	if u.Notes != nil {
		set("notes", *u.Notes)
	}

	args = append(args, id)
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE transactions SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction status: rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *TransactionRepo) GetUnmatchedAnchors(ctx context.Context, tokenSymbol *string, limit int) ([]model.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE source = 'onchain' AND status = 'anchor'
		  AND ($1::text IS NULL OR token_symbol = $1)
		ORDER BY timestamp_ms ASC
		LIMIT $2
	`, tokenSymbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query unmatched anchors: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan anchor: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// GetCandidateClaims applies the candidate pre-filter in SQL: same token,
// amount within ±tolerance, timestamp within ±window, claim still open,
// pair not previously rejected. Closest amount first.
func (r *TransactionRepo) GetCandidateClaims(ctx context.Context, q store.CandidateQuery) ([]model.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions t
		WHERE t.source <> 'onchain'
		  AND t.status IN ('pending', 'unreconciled')
		  AND t.token_symbol = $1
		  AND t.amount BETWEEN $2::numeric * (1 - $3 / 100.0) AND $2::numeric * (1 + $3 / 100.0)
		  AND t.timestamp_ms BETWEEN $4 - $5 AND $4 + $5
		  AND NOT EXISTS (
			SELECT 1 FROM rejected_pairs rp
			WHERE rp.anchor_id = $6 AND rp.claim_id = t.id
		  )
		ORDER BY ABS(t.amount - $2::numeric) ASC, t.timestamp_ms ASC
		LIMIT $7
	`, q.TokenSymbol, q.Amount, q.AmountTolerancePct, q.TimestampMS, q.TimeWindowMS, q.AnchorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidate claims: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// MarkUnreconciled flips still-pending claims in scope with no pending
// suggestion to unreconciled after a matching run.
func (r *TransactionRepo) MarkUnreconciled(ctx context.Context, tokenSymbol *string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET status = 'unreconciled', updated_at = now()
		WHERE source <> 'onchain' AND status = 'pending'
		  AND ($1::text IS NULL OR token_symbol = $1)
		  AND NOT EXISTS (
			SELECT 1 FROM match_suggestions ms
			WHERE ms.claim_id = transactions.id AND ms.status = 'pending'
		  )
	`, tokenSymbol)
	if err != nil {
		return 0, fmt.Errorf("mark unreconciled: %w", err)
	}
	return res.RowsAffected()
}

func (r *TransactionRepo) GetStats(ctx context.Context) (*store.LedgerStats, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var s store.LedgerStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE source = 'onchain'),
			COUNT(*) FILTER (WHERE source = 'onchain' AND status = 'anchor'),
			COUNT(*) FILTER (WHERE source <> 'onchain'),
			COUNT(*) FILTER (WHERE source <> 'onchain' AND status = 'reconciled'),
			COUNT(*) FILTER (WHERE source <> 'onchain' AND status = 'force_reconciled'),
			COUNT(*) FILTER (WHERE source <> 'onchain' AND status = 'pending'),
			COUNT(*) FILTER (WHERE source <> 'onchain' AND status = 'suggested_match'),
			COUNT(*) FILTER (WHERE source <> 'onchain' AND status = 'unreconciled'),
			COUNT(*) FILTER (WHERE source <> 'onchain' AND status = 'rejected')
		FROM transactions
	`).Scan(
		&s.TotalAnchors, &s.UnmatchedAnchors, &s.TotalClaims,
		&s.Reconciled, &s.ForceReconciled,
		&s.Pending, &s.Suggested, &s.Unreconciled, &s.Rejected,
	)
	if err != nil {
		return nil, fmt.Errorf("query ledger stats: %w", err)
	}

	// Forced pairs count as matched: match_rate = (reconciled +
	// force_reconciled) / total_claims.
	if s.TotalClaims > 0 {
		matched := s.Reconciled + s.ForceReconciled
		s.MatchRate = int(math.Round(float64(matched) / float64(s.TotalClaims) * 100))
	}
	return &s, nil
}

func (r *TransactionRepo) GetWalletHistory(ctx context.Context, wallet string, exclude *uuid.UUID) ([]model.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE (from_address = $1 OR to_address = $1)
		  AND ($2::uuid IS NULL OR id <> $2)
		ORDER BY timestamp_ms ASC
	`, wallet, exclude)
	if err != nil {
		return nil, fmt.Errorf("query wallet history: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet history: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) ListWallets(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, LongQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT wallet FROM (
			SELECT from_address AS wallet FROM transactions WHERE from_address IS NOT NULL
			UNION
			SELECT to_address FROM transactions WHERE to_address IS NOT NULL
		) w
		ORDER BY wallet
	`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetReconciledBalances derives the ledger-implied balance per wallet+token
// from reconciled claim transfers: credit to the receiver, debit from the
// sender. Approvals and mints do not move balances.
func (r *TransactionRepo) GetReconciledBalances(ctx context.Context) ([]store.WalletTokenBalance, error) {
	ctx, cancel := context.WithTimeout(ctx, LongQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT wallet, token_symbol, SUM(delta)::text
		FROM (
			SELECT to_address AS wallet, token_symbol, amount AS delta
			FROM transactions
			WHERE source <> 'onchain' AND transfer_type = 'Transfer'
			  AND status IN ('reconciled', 'force_reconciled')
			  AND to_address IS NOT NULL
			UNION ALL
			SELECT from_address, token_symbol, -amount
			FROM transactions
			WHERE source <> 'onchain' AND transfer_type = 'Transfer'
			  AND status IN ('reconciled', 'force_reconciled')
			  AND from_address IS NOT NULL
		) movements
		GROUP BY wallet, token_symbol
		ORDER BY wallet, token_symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("query reconciled balances: %w", err)
	}
	defer rows.Close()

	var out []store.WalletTokenBalance
	for rows.Next() {
		var b store.WalletTokenBalance
		if err := rows.Scan(&b.Wallet, &b.TokenSymbol, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
