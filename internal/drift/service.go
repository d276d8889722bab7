// Package drift compares the ledger's reconciled view of wallet balances
// against what the chain actually reports, and records how far apart the two
// have moved.
package drift

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/emperorhan/ledger-reconciler/internal/alert"
	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/matching"
	"github.com/emperorhan/ledger-reconciler/internal/metrics"
	"github.com/emperorhan/ledger-reconciler/internal/runlock"
	"github.com/emperorhan/ledger-reconciler/internal/store"
)

const syncLockTTL = 10 * time.Minute

// BalanceSource reads the on-chain balance of one wallet+token pair from an
// external provider (node RPC, indexer API). Implementations are expected to
// be slow and rate-limited; the service paces its calls accordingly.
type BalanceSource interface {
	GetBalance(ctx context.Context, wallet, tokenSymbol string) (decimal.Decimal, error)
}

// SyncResult summarizes one drift detection run.
type SyncResult struct {
	Pairs     int   `json:"pairs"`
	Warnings  int   `json:"warnings"`
	Criticals int   `json:"criticals"`
	Errors    int   `json:"errors"`
	TimeMS    int64 `json:"time_ms"`
}

// Service runs drift detection and serves the recorded results.
type Service struct {
	txRepo    store.TransactionRepository
	driftRepo store.DriftRepository
	source    BalanceSource
	config    matching.ConfigSource
	alerter   alert.Alerter
	locker    runlock.Locker
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewService builds a drift service. sourceRPS bounds balance-source queries
// per second; zero or negative disables pacing.
func NewService(
	txRepo store.TransactionRepository,
	driftRepo store.DriftRepository,
	source BalanceSource,
	config matching.ConfigSource,
	alerter alert.Alerter,
	locker runlock.Locker,
	sourceRPS float64,
	logger *slog.Logger,
) *Service {
	limit := rate.Inf
	if sourceRPS > 0 {
		limit = rate.Limit(sourceRPS)
	}
	return &Service{
		txRepo:    txRepo,
		driftRepo: driftRepo,
		source:    source,
		config:    config,
		alerter:   alerter,
		locker:    locker,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.With("component", "drift"),
	}
}

// Sync recomputes drift for every wallet+token pair the reconciled ledger
// knows about. A balance-source failure skips that pair and continues; the
// failure count is reported in the result.
func (s *Service) Sync(ctx context.Context) (*SyncResult, error) {
	release, err := s.locker.Acquire(ctx, "drift:sync", syncLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire drift:sync: %w", err)
	}
	defer release()

	started := time.Now()
	metrics.DriftChecksTotal.Inc()
	defer func() {
		metrics.DriftCheckDuration.Observe(time.Since(started).Seconds())
	}()

	cfg, err := s.config.GetMatchingConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	balances, err := s.txRepo.GetReconciledBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconciled balances: %w", err)
	}

	result := &SyncResult{Pairs: len(balances)}
	for _, b := range balances {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		internal, err := decimal.NewFromString(b.Balance)
		if err != nil {
			return nil, fmt.Errorf("ledger balance %s/%s: %w", b.Wallet, b.TokenSymbol, err)
		}
		onchain, err := s.source.GetBalance(ctx, b.Wallet, b.TokenSymbol)
		if err != nil {
			metrics.DriftCheckErrors.Inc()
			result.Errors++
			s.logger.Warn("balance source query failed",
				"wallet", b.Wallet, "token", b.TokenSymbol, "error", err)
			continue
		}

		record := Evaluate(b.Wallet, b.TokenSymbol, internal, onchain, cfg, time.Now().UTC())
		if err := s.driftRepo.Upsert(ctx, &record); err != nil {
			return nil, fmt.Errorf("persist drift %s/%s: %w", b.Wallet, b.TokenSymbol, err)
		}

		switch record.Level {
		case model.AlertWarning:
			result.Warnings++
			metrics.DriftAlertsTotal.WithLabelValues(string(model.AlertWarning)).Inc()
			s.notify(ctx, alert.AlertTypeDriftWarning, &record)
		case model.AlertCritical:
			result.Criticals++
			metrics.DriftAlertsTotal.WithLabelValues(string(model.AlertCritical)).Inc()
			s.notify(ctx, alert.AlertTypeDriftCritical, &record)
		}
	}

	result.TimeMS = time.Since(started).Milliseconds()
	s.logger.Info("drift sync finished",
		"pairs", result.Pairs, "warnings", result.Warnings,
		"criticals", result.Criticals, "errors", result.Errors,
		"duration_ms", result.TimeMS)
	return result, nil
}

// GetAll returns drift records at or above minLevel, highest drift first.
func (s *Service) GetAll(ctx context.Context, minLevel model.AlertLevel) ([]model.DriftRecord, error) {
	return s.driftRepo.List(ctx, minLevel)
}

// GetByWallet returns every recorded token drift for one wallet.
func (s *Service) GetByWallet(ctx context.Context, wallet string) ([]model.DriftRecord, error) {
	return s.driftRepo.GetByWallet(ctx, wallet)
}

func (s *Service) notify(ctx context.Context, typ alert.AlertType, r *model.DriftRecord) {
	err := s.alerter.Send(ctx, alert.Alert{
		Type:   typ,
		Wallet: r.Wallet,
		Token:  r.TokenSymbol,
		Title:  fmt.Sprintf("Balance drift %s: %s %s", r.Level, r.Wallet, r.TokenSymbol),
		Message: fmt.Sprintf("ledger %s vs on-chain %s (%.2f%% drift)",
			r.InternalBalance, r.OnChainBalance, r.DriftPct),
		Fields: map[string]string{
			"internal_balance": r.InternalBalance,
			"onchain_balance":  r.OnChainBalance,
			"drift":            r.Drift,
			"drift_pct":        fmt.Sprintf("%.4f", r.DriftPct),
		},
	})
	if err != nil {
		s.logger.Warn("drift alert dispatch failed",
			"wallet", r.Wallet, "token", r.TokenSymbol, "error", err)
	}
}

// Evaluate computes one drift record. Drift is on-chain minus ledger; the
// percentage is signed, relative to the ledger balance, with the zero-ledger
// policy documented on model.DriftRecord. Alert levels classify on the
// magnitude; thresholds are inclusive.
func Evaluate(wallet, token string, internal, onchain decimal.Decimal, cfg *model.MatchingConfig, now time.Time) model.DriftRecord {
	drift := onchain.Sub(internal)

	var pct float64
	switch {
	case internal.IsZero() && onchain.IsZero():
		pct = 0
	case internal.IsZero():
		pct = 100
		if drift.IsNegative() {
			pct = -100
		}
	default:
		pct, _ = drift.Div(internal.Abs()).Mul(decimal.NewFromInt(100)).Float64()
	}

	level := model.AlertNone
	switch {
	case math.Abs(pct) >= cfg.DriftCriticalPct:
		level = model.AlertCritical
	case math.Abs(pct) >= cfg.DriftWarningPct:
		level = model.AlertWarning
	}

	return model.DriftRecord{
		Wallet:          wallet,
		TokenSymbol:     token,
		InternalBalance: internal.String(),
		OnChainBalance:  onchain.String(),
		Drift:           drift.String(),
		DriftPct:        pct,
		Level:           level,
		UpdatedAt:       now,
	}
}
