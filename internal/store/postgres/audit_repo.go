package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/store"
)

// AuditLogRepo is append-only by construction: it exposes no update or
// delete, and the audit write shares the caller's transaction so a mutation
// and its trail commit or roll back together.
type AuditLogRepo struct {
	db *DB
}

func NewAuditLogRepo(db *DB) *AuditLogRepo {
	return &AuditLogRepo{db: db}
}

func (r *AuditLogRepo) InsertTx(ctx context.Context, tx *sql.Tx, e *model.AuditLogEntry) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO audit_log (action, entity_type, entity_id, actor, previous_state, new_state, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, e.Action, e.EntityType, e.EntityID, e.Actor,
		nullableJSON(e.PreviousState), nullableJSON(e.NewState), nullableJSON(e.Metadata),
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditLogRepo) Query(ctx context.Context, f store.AuditFilter, p store.Page) ([]model.AuditLogEntry, int, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Action != nil {
		add("action = $%d", *f.Action)
	}
	if f.EntityType != nil {
		add("entity_type = $%d", *f.EntityType)
	}
	if f.EntityID != nil {
		add("entity_id = $%d", *f.EntityID)
	}
	if f.Actor != nil {
		add("actor = $%d", *f.Actor)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_log`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, p.Offset)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, entity_type, entity_id, actor, previous_state, new_state, metadata, created_at
		FROM audit_log`+where+fmt.Sprintf(`
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []model.AuditLogEntry
	for rows.Next() {
		var e model.AuditLogEntry
		if err := rows.Scan(
			&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.Actor,
			&e.PreviousState, &e.NewState, &e.Metadata, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
