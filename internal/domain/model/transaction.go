package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TxSource string

const (
	SourceOnChain TxSource = "onchain"
	SourceLocal   TxSource = "local"
	SourceCSV     TxSource = "csv"
	SourceManual  TxSource = "manual"
)

func (s TxSource) String() string {
	return string(s)
}

// Valid reports whether s is one of the recognized sources.
func (s TxSource) Valid() bool {
	switch s {
	case SourceOnChain, SourceLocal, SourceCSV, SourceManual:
		return true
	}
	return false
}

type TxStatus string

const (
	// StatusAnchor marks an on-chain transaction that has not consumed a claim yet.
	StatusAnchor TxStatus = "anchor"
	// StatusPending marks a claim awaiting its first matching run.
	StatusPending TxStatus = "pending"
	// StatusSuggested marks a claim with at least one pending suggestion.
	StatusSuggested TxStatus = "suggested_match"
	// StatusUnreconciled marks a claim whose candidate search produced nothing
	// above threshold. It remains eligible for future matching runs.
	StatusUnreconciled TxStatus = "unreconciled"

	// Terminal states.
	StatusReconciled      TxStatus = "reconciled"
	StatusForceReconciled TxStatus = "force_reconciled"
	StatusRejected        TxStatus = "rejected"
)

func (s TxStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transition is allowed from s.
func (s TxStatus) Terminal() bool {
	switch s {
	case StatusReconciled, StatusForceReconciled, StatusRejected:
		return true
	}
	return false
}

// Matched reports whether s implies a set matched_tx_id.
func (s TxStatus) Matched() bool {
	switch s {
	case StatusReconciled, StatusForceReconciled, StatusSuggested:
		return true
	}
	return false
}

type TransferType string

const (
	TypeTransfer TransferType = "Transfer"
	TypeApproval TransferType = "Approval"
	TypeMint     TransferType = "Mint"
)

func (t TransferType) Valid() bool {
	switch t {
	case TypeTransfer, TypeApproval, TypeMint:
		return true
	}
	return false
}

// Transaction is the unifying row for both anchors (source=onchain, ground
// truth observed on chain) and claims (asserted off-chain, awaiting
// reconciliation). Amounts are NUMERIC columns carried as decimal strings.
type Transaction struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	TxHash       string          `db:"tx_hash" json:"tx_hash"`
	Source       TxSource        `db:"source" json:"source"`
	Status       TxStatus        `db:"status" json:"status"`
	TransferType TransferType    `db:"transfer_type" json:"transfer_type"`
	TokenSymbol  string          `db:"token_symbol" json:"token_symbol"`
	TokenAddress *string         `db:"token_address" json:"token_address,omitempty"`
	Amount       string          `db:"amount" json:"amount"`
	NetAmount    *string         `db:"net_amount" json:"net_amount,omitempty"`
	GasUsed      *string         `db:"gas_used" json:"gas_used,omitempty"`
	FromAddress  *string         `db:"from_address" json:"from_address,omitempty"`
	ToAddress    *string         `db:"to_address" json:"to_address,omitempty"`
	Timestamp    int64           `db:"timestamp_ms" json:"timestamp_ms"` // epoch milliseconds
	BlockNumber  *int64          `db:"block_number" json:"block_number,omitempty"` // anchors only
	MatchedTxID  *uuid.UUID      `db:"matched_tx_id" json:"matched_tx_id,omitempty"`
	MatchScore   *float64        `db:"match_score" json:"match_score,omitempty"`
	ScoreDetail  *ScoreBreakdown `db:"score_breakdown" json:"score_breakdown,omitempty"`
	ReconciledBy *string         `db:"reconciled_by" json:"reconciled_by,omitempty"`
	ReconciledAt *time.Time      `db:"reconciled_at" json:"reconciled_at,omitempty"`
	ForceMatched bool            `db:"force_reconciled" json:"force_reconciled"`
	Notes        *string         `db:"notes" json:"notes,omitempty"`
	Metadata     json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// AmountDecimal parses the amount column. Amounts are validated on write, so a
// parse failure here indicates store corruption.
func (t *Transaction) AmountDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(t.Amount)
}

// Validate checks the invariants every transaction must satisfy before it is
// written: recognized enums, a non-negative decimal amount, and a tx hash.
func (t *Transaction) Validate() error {
	if t.TxHash == "" {
		return &ValidationError{Field: "tx_hash", Reason: "must not be empty"}
	}
	if !t.Source.Valid() {
		return &ValidationError{Field: "source", Reason: "unknown source " + string(t.Source)}
	}
	if !t.TransferType.Valid() {
		return &ValidationError{Field: "transfer_type", Reason: "unknown transfer type " + string(t.TransferType)}
	}
	if t.TokenSymbol == "" {
		return &ValidationError{Field: "token_symbol", Reason: "must not be empty"}
	}
	amt, err := decimal.NewFromString(t.Amount)
	if err != nil {
		return &ValidationError{Field: "amount", Reason: "not a decimal: " + t.Amount}
	}
	if amt.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if t.NetAmount != nil {
		net, err := decimal.NewFromString(*t.NetAmount)
		if err != nil || net.IsNegative() {
			return &ValidationError{Field: "net_amount", Reason: "must be a non-negative decimal"}
		}
	}
	if t.Timestamp <= 0 {
		return &ValidationError{Field: "timestamp_ms", Reason: "must be a positive epoch-millisecond value"}
	}
	if len(t.Metadata) > 0 && !json.Valid(t.Metadata) {
		return &ValidationError{Field: "metadata", Reason: "must be a valid JSON document"}
	}
	return nil
}

// IsAnchor reports whether the transaction is on-chain ground truth.
func (t *Transaction) IsAnchor() bool {
	return t.Source == SourceOnChain
}
