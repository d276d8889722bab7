package matching

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
)

// Score computes the weighted confidence that anchor and claim describe the
// same transfer. Each factor is normalized to [0, 1] and scaled by its
// configured weight, so the composite lands in [0, 100] when weights sum to
// 100. The per-factor breakdown is returned alongside the aggregate for
// persistence.
//
// Factor decay is linear: amount falls to zero at the configured tolerance
// boundary, time at the edge of the configured window. Address compares each
// side independently; a side where neither record carries an address counts
// as a match (nothing contradicts the pairing), a side known on only one
// record counts half.
func Score(anchor, claim *model.Transaction, cfg model.MatchingConfig) model.ScoreBreakdown {
	return model.ScoreBreakdown{
		Amount:  cfg.Weights.Amount * amountCloseness(anchor.Amount, claim.Amount, cfg.AmountTolerancePct),
		Address: cfg.Weights.Address * addressSimilarity(anchor, claim),
		Time:    cfg.Weights.Time * timeProximity(anchor.Timestamp, claim.Timestamp, cfg.TimeWindowMS),
		Token:   cfg.Weights.Token * tokenMatch(anchor.TokenSymbol, claim.TokenSymbol),
	}
}

func amountCloseness(anchorAmt, claimAmt string, tolerancePct float64) float64 {
	a, err := decimal.NewFromString(anchorAmt)
	if err != nil {
		return 0
	}
	c, err := decimal.NewFromString(claimAmt)
	if err != nil {
		return 0
	}
	if a.IsZero() {
		if c.IsZero() {
			return 1
		}
		return 0
	}
	diffPct, _ := a.Sub(c).Abs().Div(a.Abs()).Mul(decimal.NewFromInt(100)).Float64()
	if tolerancePct <= 0 || diffPct >= tolerancePct {
		return 0
	}
	return 1 - diffPct/tolerancePct
}

func addressSimilarity(anchor, claim *model.Transaction) float64 {
	return (sideMatch(anchor.FromAddress, claim.FromAddress) + sideMatch(anchor.ToAddress, claim.ToAddress)) / 2
}

func sideMatch(a, b *string) float64 {
	switch {
	case a == nil && b == nil:
		return 1
	case a == nil || b == nil:
		return 0.5
	case strings.EqualFold(*a, *b):
		return 1
	default:
		return 0
	}
}

func timeProximity(anchorMS, claimMS, windowMS int64) float64 {
	if windowMS <= 0 {
		return 0
	}
	delta := anchorMS - claimMS
	if delta < 0 {
		delta = -delta
	}
	if delta >= windowMS {
		return 0
	}
	return 1 - float64(delta)/float64(windowMS)
}

func tokenMatch(anchorSym, claimSym string) float64 {
	if strings.EqualFold(anchorSym, claimSym) {
		return 1
	}
	return 0
}
