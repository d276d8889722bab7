package model

import "time"

type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// DriftRecord compares the ledger's reconciled view of a wallet+token balance
// against the observed on-chain balance. Derived state, recomputed on sync.
//
// DriftPct is drift / internal_balance * 100, carrying the sign of the
// drift (negative means the chain holds less than the book). When the
// internal balance is zero the percentage is defined as 0 if the on-chain
// balance is also zero, and ±100 otherwise (any drift away from a zero book
// is total drift).
type DriftRecord struct {
	Wallet          string     `db:"wallet" json:"wallet"`
	TokenSymbol     string     `db:"token_symbol" json:"token_symbol"`
	InternalBalance string     `db:"internal_balance" json:"internal_balance"`
	OnChainBalance  string     `db:"onchain_balance" json:"onchain_balance"`
	Drift           string     `db:"drift" json:"drift"`
	DriftPct        float64    `db:"drift_pct" json:"drift_pct"`
	Level           AlertLevel `db:"alert_level" json:"alert_level"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
