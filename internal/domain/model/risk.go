package model

import "time"

// RiskBreakdown holds the four independent anomaly signals that sum into a
// wallet's composite risk score. Each signal is capped; the composite is
// clamped to [0, 100].
type RiskBreakdown struct {
	NewCounterparty float64 `json:"new_counterparty"`
	AmountAnomaly   float64 `json:"amount_anomaly"`
	NewToken        float64 `json:"new_token"`
	TimeAnomaly     float64 `json:"time_anomaly"`
}

// WalletStats are the summary statistics of a wallet's transaction history,
// used both for scoring and for operator display.
type WalletStats struct {
	MeanAmount           float64 `json:"mean_amount"`
	StdDevAmount         float64 `json:"std_dev_amount"`
	TxCount              int     `json:"tx_count"`
	UniqueCounterparties int     `json:"unique_counterparties"`
	UniqueTokens         int     `json:"unique_tokens"`
}

// WalletRiskProfile is a derived behavioral-anomaly score for one wallet.
// It is a recomputable cache over the transaction ledger, never authoritative
// state: safe to discard and recalculate at any time.
type WalletRiskProfile struct {
	Wallet       string        `db:"wallet" json:"wallet"`
	Score        float64       `db:"score" json:"score"`
	Breakdown    RiskBreakdown `db:"breakdown" json:"breakdown"`
	Stats        WalletStats   `db:"stats" json:"stats"`
	CalculatedAt time.Time     `db:"calculated_at" json:"calculated_at"`
}
