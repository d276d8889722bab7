// Package risk computes per-wallet behavioral anomaly scores from the
// transaction ledger. Profiles are a pure function of a wallet's history:
// they persist only as a cache, with recalculation as the escape hatch.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emperorhan/ledger-reconciler/internal/alert"
	"github.com/emperorhan/ledger-reconciler/internal/cache"
	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/metrics"
	"github.com/emperorhan/ledger-reconciler/internal/runlock"
	"github.com/emperorhan/ledger-reconciler/internal/store"
)

// Per-signal caps. They sum to 100, so the composite needs no rescaling,
// only clamping.
const (
	capNewCounterparty = 30.0
	capAmountAnomaly   = 40.0
	capNewToken        = 15.0
	capTimeAnomaly     = 15.0

	// minPriorForAmount is the minimum prior-transaction count before a
	// sample standard deviation is meaningful.
	minPriorForAmount = 2
	// minPriorForTime is the minimum prior-transaction count before a
	// time-of-day/day-of-week pattern is considered established.
	minPriorForTime = 5

	recalcConcurrency = 8
	recalcLockTTL     = 15 * time.Minute

	hotCacheSize = 4096
	hotCacheTTL  = 5 * time.Minute
)

// Service scores wallets. Reads go through a small in-process LRU in front
// of the persisted profile cache; both are recomputable from the ledger.
type Service struct {
	txRepo      store.TransactionRepository
	profileRepo store.RiskProfileRepository
	hot         *cache.LRU[string, model.WalletRiskProfile]
	locker      runlock.Locker
	alerter     alert.Alerter
	alertAbove  float64 // composite score triggering a high-risk alert; 0 disables
	logger      *slog.Logger
}

// NewService builds a risk service. alertAbove is the composite score at or
// above which a freshly computed profile raises a high-risk alert; zero
// disables alerting.
func NewService(
	txRepo store.TransactionRepository,
	profileRepo store.RiskProfileRepository,
	locker runlock.Locker,
	alerter alert.Alerter,
	alertAbove float64,
	logger *slog.Logger,
) *Service {
	return &Service{
		txRepo:      txRepo,
		profileRepo: profileRepo,
		hot:         cache.NewLRU[string, model.WalletRiskProfile](hotCacheSize, hotCacheTTL),
		locker:      locker,
		alerter:     alerter,
		alertAbove:  alertAbove,
		logger:      logger.With("component", "risk"),
	}
}

// GetScore returns the wallet's risk profile, computing and persisting it on
// first request.
func (s *Service) GetScore(ctx context.Context, wallet string) (*model.WalletRiskProfile, error) {
	if p, ok := s.hot.Get(wallet); ok {
		metrics.RiskCacheHits.Inc()
		return &p, nil
	}
	metrics.RiskCacheMisses.Inc()

	p, err := s.profileRepo.Get(ctx, wallet)
	if err == nil {
		s.hot.Put(wallet, *p)
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return s.recalculate(ctx, wallet)
}

// GetAllScores lists every persisted profile, highest risk first.
func (s *Service) GetAllScores(ctx context.Context) ([]model.WalletRiskProfile, error) {
	return s.profileRepo.List(ctx)
}

// RecalculateAll recomputes every wallet the ledger has touched. A wallet
// that cannot be scored is logged and skipped, never aborting the rest.
// Returns the number of wallets scored.
func (s *Service) RecalculateAll(ctx context.Context) (int, error) {
	release, err := s.locker.Acquire(ctx, "risk:recalculate", recalcLockTTL)
	if err != nil {
		return 0, fmt.Errorf("acquire risk:recalculate: %w", err)
	}
	defer release()

	wallets, err := s.txRepo.ListWallets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list wallets: %w", err)
	}

	var scored int
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recalcConcurrency)
	results := make([]bool, len(wallets))
	for i, wallet := range wallets {
		g.Go(func() error {
			if _, err := s.recalculate(gctx, wallet); err != nil {
				metrics.RiskRecalculationErrors.Inc()
				s.logger.Warn("risk recalculation skipped wallet", "wallet", wallet, "error", err)
				return nil
			}
			results[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	for _, ok := range results {
		if ok {
			scored++
		}
	}
	s.logger.Info("risk recalculation finished", "wallets", len(wallets), "scored", scored)
	return scored, nil
}

func (s *Service) recalculate(ctx context.Context, wallet string) (*model.WalletRiskProfile, error) {
	history, err := s.txRepo.GetWalletHistory(ctx, wallet, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet history %s: %w", wallet, err)
	}

	profile := ComputeProfile(wallet, history, time.Now().UTC())
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("persist profile %s: %w", wallet, err)
	}
	s.hot.Put(wallet, *profile)
	metrics.RiskRecalculationsTotal.Inc()

	if s.alertAbove > 0 && profile.Score >= s.alertAbove {
		s.notifyHighRisk(ctx, profile)
	}
	return profile, nil
}

func (s *Service) notifyHighRisk(ctx context.Context, p *model.WalletRiskProfile) {
	err := s.alerter.Send(ctx, alert.Alert{
		Type:    alert.AlertTypeHighRisk,
		Wallet:  p.Wallet,
		Title:   fmt.Sprintf("High-risk wallet: %s", p.Wallet),
		Message: fmt.Sprintf("composite risk score %.1f", p.Score),
		Fields: map[string]string{
			"new_counterparty": fmt.Sprintf("%.1f", p.Breakdown.NewCounterparty),
			"amount_anomaly":   fmt.Sprintf("%.1f", p.Breakdown.AmountAnomaly),
			"new_token":        fmt.Sprintf("%.1f", p.Breakdown.NewToken),
			"time_anomaly":     fmt.Sprintf("%.1f", p.Breakdown.TimeAnomaly),
		},
	})
	if err != nil {
		s.logger.Warn("high-risk alert dispatch failed", "wallet", p.Wallet, "error", err)
	}
}

// ComputeProfile scores the wallet's most recent transaction against the
// rest of its history. History must be in ascending timestamp order, as
// returned by the store.
//
// Four signals contribute, each capped: a counterparty the wallet has never
// dealt with (30), an amount far from the wallet's own mean in sample
// standard deviations (40, zero below 1σ, saturating at 4σ), a token the
// wallet has never moved (15), and activity at an hour or weekday absent
// from the wallet's established pattern (15). A wallet with fewer than two
// transactions has no pattern to deviate from and scores zero.
func ComputeProfile(wallet string, history []model.Transaction, now time.Time) *model.WalletRiskProfile {
	profile := &model.WalletRiskProfile{
		Wallet:       wallet,
		Stats:        summarize(wallet, history),
		CalculatedAt: now,
	}
	if len(history) < 2 {
		return profile
	}

	latest := &history[len(history)-1]
	prior := history[:len(history)-1]

	b := &profile.Breakdown
	b.NewCounterparty = scoreNewCounterparty(wallet, latest, prior)
	b.AmountAnomaly = scoreAmountAnomaly(latest, prior)
	b.NewToken = scoreNewToken(latest, prior)
	b.TimeAnomaly = scoreTimeAnomaly(latest, prior)

	score := b.NewCounterparty + b.AmountAnomaly + b.NewToken + b.TimeAnomaly
	profile.Score = math.Min(100, math.Max(0, score))
	return profile
}

// counterparty returns the address on the other side of tx from wallet.
func counterparty(wallet string, tx *model.Transaction) string {
	from, to := "", ""
	if tx.FromAddress != nil {
		from = *tx.FromAddress
	}
	if tx.ToAddress != nil {
		to = *tx.ToAddress
	}
	if strings.EqualFold(from, wallet) {
		return to
	}
	return from
}

func scoreNewCounterparty(wallet string, latest *model.Transaction, prior []model.Transaction) float64 {
	cp := counterparty(wallet, latest)
	if cp == "" {
		return 0
	}
	for i := range prior {
		if strings.EqualFold(counterparty(wallet, &prior[i]), cp) {
			return 0
		}
	}
	return capNewCounterparty
}

func scoreAmountAnomaly(latest *model.Transaction, prior []model.Transaction) float64 {
	if len(prior) < minPriorForAmount {
		return 0
	}
	amounts := make([]float64, 0, len(prior))
	for i := range prior {
		d, err := prior[i].AmountDecimal()
		if err != nil {
			continue
		}
		f, _ := d.Float64()
		amounts = append(amounts, f)
	}
	if len(amounts) < minPriorForAmount {
		return 0
	}

	mean, std := meanStdDev(amounts)
	d, err := latest.AmountDecimal()
	if err != nil {
		return 0
	}
	amount, _ := d.Float64()
	deviation := math.Abs(amount - mean)

	if std == 0 {
		// A perfectly regular wallet: any deviation at all is maximal.
		if deviation > 0 {
			return capAmountAnomaly
		}
		return 0
	}

	z := deviation / std
	switch {
	case z < 1:
		return 0
	case z >= 4:
		return capAmountAnomaly
	default:
		return capAmountAnomaly * (z - 1) / 3
	}
}

func scoreNewToken(latest *model.Transaction, prior []model.Transaction) float64 {
	for i := range prior {
		if strings.EqualFold(prior[i].TokenSymbol, latest.TokenSymbol) {
			return 0
		}
	}
	return capNewToken
}

func scoreTimeAnomaly(latest *model.Transaction, prior []model.Transaction) float64 {
	if len(prior) < minPriorForTime {
		return 0
	}

	hours := make(map[int]bool, 24)
	days := make(map[time.Weekday]bool, 7)
	for i := range prior {
		ts := time.UnixMilli(prior[i].Timestamp).UTC()
		hours[ts.Hour()] = true
		days[ts.Weekday()] = true
	}

	ts := time.UnixMilli(latest.Timestamp).UTC()
	var score float64
	if !hours[ts.Hour()] {
		score += 10
	}
	if !days[ts.Weekday()] {
		score += 5
	}
	return score
}

func summarize(wallet string, history []model.Transaction) model.WalletStats {
	stats := model.WalletStats{TxCount: len(history)}
	if len(history) == 0 {
		return stats
	}

	amounts := make([]float64, 0, len(history))
	counterparties := make(map[string]bool)
	tokens := make(map[string]bool)
	for i := range history {
		if d, err := history[i].AmountDecimal(); err == nil {
			f, _ := d.Float64()
			amounts = append(amounts, f)
		}
		if cp := counterparty(wallet, &history[i]); cp != "" {
			counterparties[strings.ToLower(cp)] = true
		}
		tokens[strings.ToUpper(history[i].TokenSymbol)] = true
	}

	stats.MeanAmount, stats.StdDevAmount = meanStdDev(amounts)
	stats.UniqueCounterparties = len(counterparties)
	stats.UniqueTokens = len(tokens)
	return stats
}

// meanStdDev returns the sample mean and sample standard deviation.
func meanStdDev(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	std = math.Sqrt(ss / float64(len(xs)-1))
	return mean, std
}
