package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
)

// matchingSeed is the YAML shape of a matching configuration seed file.
// Absent fields keep their built-in defaults.
type matchingSeed struct {
	Weights            *model.ScoreWeights `yaml:"weights"`
	AmountTolerancePct *float64            `yaml:"amount_tolerance_pct"`
	TimeWindowMS       *int64              `yaml:"time_window_ms"`
	BlockTolerance     *int64              `yaml:"block_tolerance"`
	MinScore           *float64            `yaml:"min_score"`
	DriftWarningPct    *float64            `yaml:"drift_warning_pct"`
	DriftCriticalPct   *float64            `yaml:"drift_critical_pct"`
}

// LoadMatchingSeed reads a YAML seed file and overlays it on the default
// matching configuration. The result is validated before it is returned.
func LoadMatchingSeed(path string) (*model.MatchingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read matching seed: %w", err)
	}

	var seed matchingSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse matching seed %s: %w", path, err)
	}

	cfg := model.DefaultMatchingConfig()
	if seed.Weights != nil {
		cfg.Weights = *seed.Weights
	}
	if seed.AmountTolerancePct != nil {
		cfg.AmountTolerancePct = *seed.AmountTolerancePct
	}
	if seed.TimeWindowMS != nil {
		cfg.TimeWindowMS = *seed.TimeWindowMS
	}
	if seed.BlockTolerance != nil {
		cfg.BlockTolerance = *seed.BlockTolerance
	}
	if seed.MinScore != nil {
		cfg.MinScore = *seed.MinScore
	}
	if seed.DriftWarningPct != nil {
		cfg.DriftWarningPct = *seed.DriftWarningPct
	}
	if seed.DriftCriticalPct != nil {
		cfg.DriftCriticalPct = *seed.DriftCriticalPct
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("matching seed %s: %w", path, err)
	}
	return &cfg, nil
}
