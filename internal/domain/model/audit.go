package model

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// AuditAction tags the logical operation recorded by an audit entry.
type AuditAction string

const (
	AuditCreateClaim    AuditAction = "create_claim"
	AuditImportClaim    AuditAction = "import_claim"
	AuditUpsertAnchor   AuditAction = "upsert_anchor"
	AuditSuggestMatch   AuditAction = "suggest_match"
	AuditApproveMatch   AuditAction = "approve_match"
	AuditForceReconcile AuditAction = "force_reconcile"
	AuditRejectMatch    AuditAction = "reject_match"
	AuditUpdateConfig   AuditAction = "update_config"
)

// AuditEntityType identifies which entity an audit entry refers to.
type AuditEntityType string

const (
	EntityTransaction AuditEntityType = "transaction"
	EntitySuggestion  AuditEntityType = "suggestion"
	EntityConfig      AuditEntityType = "matching_config"
)

// AuditLogEntry is one append-only record of a state-changing action with
// before/after snapshots. Snapshots are JSON documents (shape version 1:
// the entity serialized as stored). Entries are never updated or deleted.
type AuditLogEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Action        AuditAction     `db:"action" json:"action"`
	EntityType    AuditEntityType `db:"entity_type" json:"entity_type"`
	EntityID      uuid.UUID       `db:"entity_id" json:"entity_id"`
	Actor         string          `db:"actor" json:"actor"`
	PreviousState json.RawMessage `db:"previous_state" json:"previous_state,omitempty"`
	NewState      json.RawMessage `db:"new_state" json:"new_state,omitempty"`
	Metadata      json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Snapshot serializes v for use as an audit before/after state. A nil v
// produces a nil snapshot (SQL NULL), including a nil pointer handed over
// through the interface.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
