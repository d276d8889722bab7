package model

import (
	"fmt"
	"time"
)

// ScoreWeights are the per-factor weight budget of the scoring engine.
// They must sum to exactly 100; each sub-score is bounded by its weight.
type ScoreWeights struct {
	Amount  float64 `json:"amount" yaml:"amount"`
	Address float64 `json:"address" yaml:"address"`
	Time    float64 `json:"time" yaml:"time"`
	Token   float64 `json:"token" yaml:"token"`
}

// Sum returns the total weight budget.
func (w ScoreWeights) Sum() float64 {
	return w.Amount + w.Address + w.Time + w.Token
}

// MatchingConfig is the shared tunable configuration for candidate
// generation, scoring, and drift alerting. It is loaded, validated, and
// saved explicitly; callers receive it as a value, never as ambient state.
type MatchingConfig struct {
	Weights ScoreWeights `json:"weights" yaml:"weights"`

	// Candidate generation tolerances.
	AmountTolerancePct float64 `json:"amount_tolerance_pct" yaml:"amount_tolerance_pct"`
	TimeWindowMS       int64   `json:"time_window_ms" yaml:"time_window_ms"`
	// BlockTolerance is tracked for anchor-to-anchor comparison but not
	// applied to off-chain claims, which carry no block number.
	BlockTolerance int64 `json:"block_tolerance" yaml:"block_tolerance"`

	// MinScore is the suggestion threshold for matching runs.
	MinScore float64 `json:"min_score" yaml:"min_score"`

	// Drift alert thresholds, in percent of internal balance.
	DriftWarningPct  float64 `json:"drift_warning_pct" yaml:"drift_warning_pct"`
	DriftCriticalPct float64 `json:"drift_critical_pct" yaml:"drift_critical_pct"`

	UpdatedBy string    `json:"updated_by" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// DefaultMatchingConfig returns the configuration used before any operator
// update: 40/30/20/10 weights, 1% amount tolerance, 1 hour time window,
// threshold 70, drift alerts at 1% / 5%.
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		Weights: ScoreWeights{
			Amount:  40,
			Address: 30,
			Time:    20,
			Token:   10,
		},
		AmountTolerancePct: 1.0,
		TimeWindowMS:       3_600_000,
		BlockTolerance:     10,
		MinScore:           70,
		DriftWarningPct:    1.0,
		DriftCriticalPct:   5.0,
	}
}

// Validate rejects weight sets that do not sum to exactly 100, non-positive
// tolerances, and drift thresholds where critical does not exceed warning.
// It is called before a config is persisted or applied.
func (c *MatchingConfig) Validate() error {
	if sum := c.Weights.Sum(); sum != 100 {
		return &ValidationError{Field: "weights", Reason: fmt.Sprintf("must sum to 100, got %g", sum)}
	}
	for name, w := range map[string]float64{
		"amount":  c.Weights.Amount,
		"address": c.Weights.Address,
		"time":    c.Weights.Time,
		"token":   c.Weights.Token,
	} {
		if w < 0 {
			return &ValidationError{Field: "weights." + name, Reason: "must not be negative"}
		}
	}
	if c.AmountTolerancePct <= 0 {
		return &ValidationError{Field: "amount_tolerance_pct", Reason: "must be positive"}
	}
	if c.TimeWindowMS <= 0 {
		return &ValidationError{Field: "time_window_ms", Reason: "must be positive"}
	}
	if c.BlockTolerance < 0 {
		return &ValidationError{Field: "block_tolerance", Reason: "must not be negative"}
	}
	if c.MinScore < 0 || c.MinScore > 100 {
		return &ValidationError{Field: "min_score", Reason: "must be within [0, 100]"}
	}
	if c.DriftWarningPct <= 0 {
		return &ValidationError{Field: "drift_warning_pct", Reason: "must be positive"}
	}
	if c.DriftCriticalPct <= c.DriftWarningPct {
		return &ValidationError{Field: "drift_critical_pct", Reason: "must exceed drift_warning_pct"}
	}
	return nil
}
