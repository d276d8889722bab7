package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/emperorhan/ledger-reconciler/internal/alert"
	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/metrics"
	"github.com/emperorhan/ledger-reconciler/internal/runlock"
	"github.com/emperorhan/ledger-reconciler/internal/store"
)

const (
	// runLockTTL bounds how long a crashed matching run can block the scope.
	runLockTTL = 10 * time.Minute

	candidateLimit = 50
)

// ConfigSource supplies the active matching configuration. The ledger
// service implements it.
type ConfigSource interface {
	GetMatchingConfig(ctx context.Context) (*model.MatchingConfig, error)
}

// RunResult summarizes one matching run.
type RunResult struct {
	AnchorsScanned  int   `json:"anchors_scanned"`
	NewSuggestions  int   `json:"new_suggestions"`
	MarkedUnmatched int64 `json:"marked_unreconciled"`
	TimeMS          int64 `json:"time_ms"`
}

// Pair identifies one (anchor, claim) pairing for batch operations.
type Pair struct {
	AnchorID uuid.UUID `json:"anchor_id"`
	ClaimID  uuid.UUID `json:"claim_id"`
}

// BatchFailure reports why one pair of a batch was not reconciled.
type BatchFailure struct {
	AnchorID uuid.UUID `json:"anchor_id"`
	ClaimID  uuid.UUID `json:"claim_id"`
	Error    string    `json:"error"`
}

// BatchResult accumulates per-pair outcomes. Pairs are applied independently;
// partial progress is never rolled back.
type BatchResult struct {
	Succeeded int            `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// Service runs the matching engine and the suggestion lifecycle. Every
// decision commits together with its audit entry; the at-most-one-active-match
// invariant is backed by a unique index, not just these checks.
type Service struct {
	db      store.TxBeginner
	txRepo  store.TransactionRepository
	sugRepo store.SuggestionRepository
	rejRepo store.RejectedPairRepository
	audit   store.AuditLogRepository
	config  ConfigSource
	alerter alert.Alerter
	locker  runlock.Locker
	logger  *slog.Logger
}

func NewService(
	db store.TxBeginner,
	txRepo store.TransactionRepository,
	sugRepo store.SuggestionRepository,
	rejRepo store.RejectedPairRepository,
	audit store.AuditLogRepository,
	config ConfigSource,
	alerter alert.Alerter,
	locker runlock.Locker,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:      db,
		txRepo:  txRepo,
		sugRepo: sugRepo,
		rejRepo: rejRepo,
		audit:   audit,
		config:  config,
		alerter: alerter,
		locker:  locker,
		logger:  logger.With("component", "matching"),
	}
}

// RunMatching scans unmatched anchors (optionally one token), scores their
// candidates, and persists a pending suggestion for every pair at or above
// the threshold. Idempotent: pair uniqueness and the rejected-pair memory
// make a re-run over unchanged data a no-op. Claims left with no pending
// suggestion after the run are swept to unreconciled.
func (s *Service) RunMatching(ctx context.Context, tokenSymbol *string, minScore *float64) (*RunResult, error) {
	scope := "matching:all"
	if tokenSymbol != nil {
		scope = "matching:" + *tokenSymbol
	}
	res, err := s.run(ctx, scope, tokenSymbol, minScore)
	if err != nil && !errors.Is(err, runlock.ErrAlreadyRunning) && ctx.Err() == nil {
		s.notifyRunFailed(ctx, scope, err)
	}
	return res, err
}

func (s *Service) run(ctx context.Context, scope string, tokenSymbol *string, minScore *float64) (*RunResult, error) {
	release, err := s.locker.Acquire(ctx, scope, runLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", scope, err)
	}
	defer release()

	started := time.Now()
	cfg, err := s.config.GetMatchingConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load matching config: %w", err)
	}
	threshold := cfg.MinScore
	if minScore != nil {
		threshold = *minScore
	}

	anchors, err := s.txRepo.GetUnmatchedAnchors(ctx, tokenSymbol, 0)
	if err != nil {
		return nil, fmt.Errorf("load unmatched anchors: %w", err)
	}

	res := &RunResult{AnchorsScanned: len(anchors)}
	for i := range anchors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		anchor := &anchors[i]

		candidates, err := s.txRepo.GetCandidateClaims(ctx, store.CandidateQuery{
			AnchorID:           anchor.ID,
			TokenSymbol:        anchor.TokenSymbol,
			Amount:             anchor.Amount,
			AmountTolerancePct: cfg.AmountTolerancePct,
			TimestampMS:        anchor.Timestamp,
			TimeWindowMS:       cfg.TimeWindowMS,
			Limit:              candidateLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("candidates for anchor %s: %w", anchor.ID, err)
		}

		for j := range candidates {
			claim := &candidates[j]
			breakdown := Score(anchor, claim, *cfg)
			total := breakdown.Total()
			if total < threshold {
				continue
			}
			created, err := s.createSuggestion(ctx, anchor, claim, total, breakdown)
			if err != nil {
				return nil, err
			}
			if created {
				res.NewSuggestions++
				metrics.SuggestionsCreatedTotal.Inc()
				metrics.MatchScoreDistribution.Observe(total)
			}
		}
	}

	swept, err := s.txRepo.MarkUnreconciled(ctx, tokenSymbol)
	if err != nil {
		return nil, fmt.Errorf("mark unreconciled: %w", err)
	}
	res.MarkedUnmatched = swept
	res.TimeMS = time.Since(started).Milliseconds()

	metrics.MatchingRunsTotal.Inc()
	metrics.MatchingRunDuration.Observe(time.Since(started).Seconds())
	s.logger.Info("matching run finished",
		"scope", scope, "anchors", res.AnchorsScanned,
		"new_suggestions", res.NewSuggestions, "swept_unreconciled", swept,
		"threshold", threshold, "took_ms", res.TimeMS,
	)
	return res, nil
}

func (s *Service) notifyRunFailed(ctx context.Context, scope string, runErr error) {
	err := s.alerter.Send(ctx, alert.Alert{
		Type:    alert.AlertTypeMatchingErr,
		Title:   "Matching run failed: " + scope,
		Message: runErr.Error(),
		Fields:  map[string]string{"scope": scope},
	})
	if err != nil {
		s.logger.Warn("matching alert dispatch failed", "scope", scope, "error", err)
	}
}

// createSuggestion persists one scored pairing with its audit entry. The
// claim is re-read under lock: it may have been consumed since the candidate
// query ran.
func (s *Service) createSuggestion(ctx context.Context, anchor, claim *model.Transaction, total float64, breakdown model.ScoreBreakdown) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	current, err := s.txRepo.FindByIDForUpdateTx(ctx, tx, claim.ID)
	if err != nil {
		return false, fmt.Errorf("lock claim %s: %w", claim.ID, err)
	}
	if current.Status.Terminal() {
		return false, nil
	}

	sug := &model.MatchSuggestion{
		AnchorID:  anchor.ID,
		ClaimID:   claim.ID,
		Score:     total,
		Breakdown: breakdown,
		Status:    model.SuggestionPending,
	}
	inserted, err := s.sugRepo.InsertTx(ctx, tx, sug)
	if err != nil {
		return false, fmt.Errorf("insert suggestion: %w", err)
	}
	if !inserted {
		// Pair already suggested or decided in an earlier run.
		return false, nil
	}

	// Link the claim to its best pending suggestion.
	if current.Status == model.StatusPending || current.Status == model.StatusUnreconciled ||
		(current.Status == model.StatusSuggested && (current.MatchScore == nil || total > *current.MatchScore)) {
		err = s.txRepo.UpdateStatusTx(ctx, tx, claim.ID, store.StatusUpdate{
			Status:      model.StatusSuggested,
			MatchedTxID: &anchor.ID,
			MatchScore:  &total,
			Breakdown:   &breakdown,
		})
		if err != nil {
			return false, fmt.Errorf("mark claim suggested: %w", err)
		}
	}

	if err := s.audit.InsertTx(ctx, tx, &model.AuditLogEntry{
		Action:     model.AuditSuggestMatch,
		EntityType: model.EntitySuggestion,
		EntityID:   sug.ID,
		Actor:      "system",
		NewState:   model.Snapshot(sug),
	}); err != nil {
		return false, fmt.Errorf("audit suggestion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit suggestion: %w", err)
	}
	return true, nil
}

// Approve reconciles an (anchor, claim) pair. With force it bypasses the
// score threshold and records the pair as force-reconciled; without, an
// unsuggested pair must still score at or above the configured minimum.
// Either side already in a terminal state fails with store.ErrConflict.
func (s *Service) Approve(ctx context.Context, anchorID, claimID uuid.UUID, actor string, force bool, notes *string) (*model.MatchSuggestion, error) {
	cfg, err := s.config.GetMatchingConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load matching config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	anchor, err := s.txRepo.FindByIDForUpdateTx(ctx, tx, anchorID)
	if err != nil {
		return nil, fmt.Errorf("lock anchor %s: %w", anchorID, err)
	}
	claim, err := s.txRepo.FindByIDForUpdateTx(ctx, tx, claimID)
	if err != nil {
		return nil, fmt.Errorf("lock claim %s: %w", claimID, err)
	}

	if !anchor.IsAnchor() {
		return nil, &model.ValidationError{Field: "anchor_id", Reason: "not an on-chain anchor"}
	}
	if claim.IsAnchor() {
		return nil, &model.ValidationError{Field: "claim_id", Reason: "refers to an on-chain anchor"}
	}
	if anchor.Status.Terminal() {
		return nil, fmt.Errorf("anchor %s already %s: %w", anchorID, anchor.Status, store.ErrConflict)
	}
	if claim.Status.Terminal() {
		return nil, fmt.Errorf("claim %s already %s: %w", claimID, claim.Status, store.ErrConflict)
	}

	now := time.Now().UTC()
	sug, err := s.sugRepo.FindByPairForUpdateTx(ctx, tx, anchorID, claimID)
	switch {
	case err == nil:
		if sug.Status != model.SuggestionPending {
			return nil, fmt.Errorf("suggestion (%s, %s) already %s: %w", anchorID, claimID, sug.Status, store.ErrConflict)
		}
	case errors.Is(err, store.ErrNotFound):
		sug = nil
	default:
		return nil, err
	}

	var prevSug *model.MatchSuggestion
	var breakdown model.ScoreBreakdown
	var total float64
	if sug != nil {
		snapshot := *sug
		prevSug = &snapshot
		breakdown, total = sug.Breakdown, sug.Score
	} else {
		breakdown = Score(anchor, claim, *cfg)
		total = breakdown.Total()
	}
	if !force && total < cfg.MinScore {
		return nil, &model.ValidationError{
			Field:  "score",
			Reason: fmt.Sprintf("%.1f below threshold %.1f; use force to reconcile anyway", total, cfg.MinScore),
		}
	}

	status := model.StatusReconciled
	action := model.AuditApproveMatch
	if force {
		status = model.StatusForceReconciled
		action = model.AuditForceReconcile
	}

	if sug != nil {
		if err := s.sugRepo.DecideTx(ctx, tx, sug.ID, model.SuggestionApproved, actor, now); err != nil {
			return nil, fmt.Errorf("approve suggestion %s: %w", sug.ID, err)
		}
		sug.Status = model.SuggestionApproved
		sug.ReviewedBy = &actor
		sug.ReviewedAt = &now
	} else {
		sug = &model.MatchSuggestion{
			AnchorID:   anchorID,
			ClaimID:    claimID,
			Score:      total,
			Breakdown:  breakdown,
			Status:     model.SuggestionApproved,
			ReviewedBy: &actor,
			ReviewedAt: &now,
		}
		if _, err := s.sugRepo.InsertTx(ctx, tx, sug); err != nil {
			return nil, fmt.Errorf("insert approved suggestion: %w", err)
		}
	}

	forced := force
	if err := s.txRepo.UpdateStatusTx(ctx, tx, claimID, store.StatusUpdate{
		Status:       status,
		MatchedTxID:  &anchorID,
		MatchScore:   &total,
		Breakdown:    &breakdown,
		ReconciledBy: &actor,
		ReconciledAt: &now,
		ForceMatched: &forced,
		Notes:        notes,
	}); err != nil {
		return nil, fmt.Errorf("reconcile claim %s: %w", claimID, err)
	}
	if err := s.txRepo.UpdateStatusTx(ctx, tx, anchorID, store.StatusUpdate{
		Status:       status,
		ReconciledBy: &actor,
		ReconciledAt: &now,
		ForceMatched: &forced,
	}); err != nil {
		return nil, fmt.Errorf("consume anchor %s: %w", anchorID, err)
	}

	if err := s.audit.InsertTx(ctx, tx, &model.AuditLogEntry{
		Action:        action,
		EntityType:    model.EntitySuggestion,
		EntityID:      sug.ID,
		Actor:         actor,
		PreviousState: model.Snapshot(prevSug),
		NewState:      model.Snapshot(sug),
		Metadata:      model.Snapshot(map[string]any{"anchor_id": anchorID, "claim_id": claimID, "score": total}),
	}); err != nil {
		return nil, fmt.Errorf("audit approval: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}

	decision := "approve"
	if force {
		decision = "force"
	}
	metrics.MatchDecisionsTotal.WithLabelValues(decision).Inc()
	s.logger.Info("pair reconciled",
		"anchor_id", anchorID, "claim_id", claimID,
		"score", total, "force", force, "actor", actor,
	)
	return sug, nil
}

// Reject declines a pending suggestion, remembers the pair so it is never
// re-suggested, and returns the claim to the matching pool (or relinks it to
// its next-best pending suggestion).
func (s *Service) Reject(ctx context.Context, anchorID, claimID uuid.UUID, actor string, reason *string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sug, err := s.sugRepo.FindByPairForUpdateTx(ctx, tx, anchorID, claimID)
	if err != nil {
		return fmt.Errorf("find suggestion (%s, %s): %w", anchorID, claimID, err)
	}
	if sug.Status != model.SuggestionPending {
		return fmt.Errorf("suggestion (%s, %s) already %s: %w", anchorID, claimID, sug.Status, store.ErrConflict)
	}
	prevSug := *sug

	now := time.Now().UTC()
	if err := s.sugRepo.DecideTx(ctx, tx, sug.ID, model.SuggestionRejected, actor, now); err != nil {
		return fmt.Errorf("reject suggestion %s: %w", sug.ID, err)
	}
	sug.Status = model.SuggestionRejected
	sug.ReviewedBy = &actor
	sug.ReviewedAt = &now

	if err := s.rejRepo.InsertTx(ctx, tx, &model.RejectedPair{
		AnchorID:   anchorID,
		ClaimID:    claimID,
		RejectedBy: actor,
		Reason:     reason,
	}); err != nil {
		return fmt.Errorf("remember rejected pair: %w", err)
	}

	claim, err := s.txRepo.FindByIDForUpdateTx(ctx, tx, claimID)
	if err != nil {
		return fmt.Errorf("lock claim %s: %w", claimID, err)
	}
	if claim.Status == model.StatusSuggested && claim.MatchedTxID != nil && *claim.MatchedTxID == anchorID {
		next, err := s.sugRepo.TopPendingForClaimTx(ctx, tx, claimID, sug.ID)
		if err != nil {
			return fmt.Errorf("next suggestion for claim %s: %w", claimID, err)
		}
		if next != nil {
			err = s.txRepo.UpdateStatusTx(ctx, tx, claimID, store.StatusUpdate{
				Status:      model.StatusSuggested,
				MatchedTxID: &next.AnchorID,
				MatchScore:  &next.Score,
				Breakdown:   &next.Breakdown,
			})
		} else {
			err = s.txRepo.UpdateStatusTx(ctx, tx, claimID, store.StatusUpdate{
				Status:     model.StatusPending,
				ClearMatch: true,
			})
		}
		if err != nil {
			return fmt.Errorf("release claim %s: %w", claimID, err)
		}
	}

	meta := map[string]any{"anchor_id": anchorID, "claim_id": claimID}
	if reason != nil {
		meta["reason"] = *reason
	}
	if err := s.audit.InsertTx(ctx, tx, &model.AuditLogEntry{
		Action:        model.AuditRejectMatch,
		EntityType:    model.EntitySuggestion,
		EntityID:      sug.ID,
		Actor:         actor,
		PreviousState: model.Snapshot(prevSug),
		NewState:      model.Snapshot(sug),
		Metadata:      model.Snapshot(meta),
	}); err != nil {
		return fmt.Errorf("audit rejection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rejection: %w", err)
	}

	metrics.MatchDecisionsTotal.WithLabelValues("reject").Inc()
	s.logger.Info("pair rejected",
		"anchor_id", anchorID, "claim_id", claimID, "actor", actor,
	)
	return nil
}

// BatchReconcile approves a list of pairs, each independently: one failed
// pair is reported and the rest of the batch continues.
func (s *Service) BatchReconcile(ctx context.Context, pairs []Pair, actor string) (*BatchResult, error) {
	res := &BatchResult{}
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.Approve(ctx, p.AnchorID, p.ClaimID, actor, false, nil); err != nil {
			res.Failed = append(res.Failed, BatchFailure{
				AnchorID: p.AnchorID,
				ClaimID:  p.ClaimID,
				Error:    err.Error(),
			})
			continue
		}
		res.Succeeded++
	}
	s.logger.Info("batch reconcile finished",
		"total", len(pairs), "succeeded", res.Succeeded, "failed", len(res.Failed), "actor", actor,
	)
	return res, nil
}

// ListSuggestions returns suggestions filtered by status, newest first.
func (s *Service) ListSuggestions(ctx context.Context, status *model.SuggestionStatus, p store.Page) ([]model.MatchSuggestion, int, error) {
	return s.sugRepo.List(ctx, status, p)
}

var _ ConfigSource = (configSourceFunc)(nil)

type configSourceFunc func(ctx context.Context) (*model.MatchingConfig, error)

func (f configSourceFunc) GetMatchingConfig(ctx context.Context) (*model.MatchingConfig, error) {
	return f(ctx)
}

// StaticConfig wraps a fixed configuration as a ConfigSource, for tests and
// one-shot tools.
func StaticConfig(cfg model.MatchingConfig) ConfigSource {
	return configSourceFunc(func(context.Context) (*model.MatchingConfig, error) {
		c := cfg
		return &c, nil
	})
}
