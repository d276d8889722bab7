package model

import (
	"time"

	"github.com/google/uuid"
)

type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

// ScoreBreakdown is the per-factor decomposition of a match score. It is
// persisted as JSONB next to the aggregate so an operator can audit why a
// pair was suggested. Shape version 1; all four factors are always present.
type ScoreBreakdown struct {
	Amount  float64 `json:"amount"`
	Address float64 `json:"address"`
	Time    float64 `json:"time"`
	Token   float64 `json:"token"`
}

// Total returns the composite score implied by the breakdown.
func (b ScoreBreakdown) Total() float64 {
	return b.Amount + b.Address + b.Time + b.Token
}

// MatchSuggestion is a scored (anchor, claim) pairing awaiting an operator
// decision. Unique per (anchor_id, claim_id); mutated exactly once on decision.
type MatchSuggestion struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	AnchorID   uuid.UUID        `db:"anchor_id" json:"anchor_id"`
	ClaimID    uuid.UUID        `db:"claim_id" json:"claim_id"`
	Score      float64          `db:"score" json:"score"`
	Breakdown  ScoreBreakdown   `db:"score_breakdown" json:"score_breakdown"`
	Status     SuggestionStatus `db:"status" json:"status"`
	ReviewedBy *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

// RejectedPair remembers an (anchor, claim) pairing a human explicitly
// rejected. Consulted by candidate generation so the pair is never
// re-suggested. Insert-only, never expires.
type RejectedPair struct {
	AnchorID   uuid.UUID `db:"anchor_id" json:"anchor_id"`
	ClaimID    uuid.UUID `db:"claim_id" json:"claim_id"`
	RejectedBy string    `db:"rejected_by" json:"rejected_by"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
