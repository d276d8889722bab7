// Package admin exposes the reconciler's operator API: ledger ingestion,
// matching lifecycle, risk and drift reads, audit queries, and configuration.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/emperorhan/ledger-reconciler/internal/domain/model"
	"github.com/emperorhan/ledger-reconciler/internal/drift"
	"github.com/emperorhan/ledger-reconciler/internal/ledger"
	"github.com/emperorhan/ledger-reconciler/internal/matching"
	"github.com/emperorhan/ledger-reconciler/internal/risk"
	"github.com/emperorhan/ledger-reconciler/internal/runlock"
	"github.com/emperorhan/ledger-reconciler/internal/store"
)

const (
	maxRequestBodyBytes = 1 << 20 // 1 MB
	defaultPageLimit    = 50
	maxPageLimit        = 500
)

// Server provides the HTTP operator API.
type Server struct {
	ledger    *ledger.Service
	matching  *matching.Service
	risk      *risk.Service
	drift     *drift.Service
	auditRepo store.AuditLogRepository
	logger    *slog.Logger
}

// NewServer builds the operator API server. drift may be nil when no balance
// source is configured; its endpoints then answer 503.
func NewServer(
	ledgerSvc *ledger.Service,
	matchingSvc *matching.Service,
	riskSvc *risk.Service,
	driftSvc *drift.Service,
	auditRepo store.AuditLogRepository,
	logger *slog.Logger,
) *Server {
	return &Server{
		ledger:    ledgerSvc,
		matching:  matchingSvc,
		risk:      riskSvc,
		drift:     driftSvc,
		auditRepo: auditRepo,
		logger:    logger.With("component", "admin"),
	}
}

// Handler returns the HTTP handler for the operator API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/claims", s.handleCreateClaim)
	mux.HandleFunc("POST /api/v1/claims/import", s.handleImportClaims)
	mux.HandleFunc("POST /api/v1/anchors", s.handleUpsertAnchor)
	mux.HandleFunc("GET /api/v1/transactions", s.handleQueryTransactions)
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)

	mux.HandleFunc("POST /api/v1/matching/run", s.handleRunMatching)
	mux.HandleFunc("GET /api/v1/suggestions", s.handleListSuggestions)
	mux.HandleFunc("POST /api/v1/matching/approve", s.handleApprove)
	mux.HandleFunc("POST /api/v1/matching/reject", s.handleReject)
	mux.HandleFunc("POST /api/v1/matching/batch", s.handleBatchReconcile)

	mux.HandleFunc("GET /api/v1/config/matching", s.handleGetConfig)
	mux.HandleFunc("PUT /api/v1/config/matching", s.handleUpdateConfig)

	mux.HandleFunc("GET /api/v1/risk/wallets", s.handleListRisk)
	mux.HandleFunc("GET /api/v1/risk/wallets/{wallet}", s.handleGetRisk)
	mux.HandleFunc("POST /api/v1/risk/recalculate", s.handleRecalculateRisk)

	mux.HandleFunc("GET /api/v1/drift", s.handleListDrift)
	mux.HandleFunc("GET /api/v1/drift/{wallet}", s.handleGetDrift)
	mux.HandleFunc("POST /api/v1/drift/sync", s.handleSyncDrift)

	mux.HandleFunc("GET /api/v1/audit", s.handleQueryAudit)

	return mux
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors onto HTTP statuses: validation
// failures are 400, missing rows 404, lifecycle conflicts and held run locks
// 409, everything else 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflicting lifecycle state")
	case errors.Is(err, runlock.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "a run is already in progress")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSONBody reads and decodes a JSON request body into v.
// Returns false (and writes an error response) if decoding fails.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// requireActor extracts the acting operator from the request: the
// authenticated Basic Auth user when present, else the X-Actor header.
func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	if user, _, ok := r.BasicAuth(); ok && user != "" {
		return user, true
	}
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor, true
	}
	writeError(w, http.StatusBadRequest, "actor required (Basic Auth user or X-Actor header)")
	return "", false
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func pageFromQuery(r *http.Request) store.Page {
	p := store.Page{Limit: defaultPageLimit}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = min(n, maxPageLimit)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Offset = n
		}
	}
	return p
}

type pagedResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

// --- Ledger endpoints ---

func (s *Server) handleCreateClaim(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var in ledger.ClaimInput
	if !decodeJSONBody(w, r, &in) {
		return
	}

	tx, err := s.ledger.CreateClaim(r.Context(), in, actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleImportClaims(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var ins []ledger.ClaimInput
	if !decodeJSONBody(w, r, &ins) {
		return
	}
	if len(ins) == 0 {
		writeError(w, http.StatusBadRequest, "empty import batch")
		return
	}

	result, err := s.ledger.ImportClaims(r.Context(), ins, actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

func (s *Server) handleUpsertAnchor(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var in ledger.AnchorInput
	if !decodeJSONBody(w, r, &in) {
		return
	}

	result, err := s.ledger.UpsertAnchor(r.Context(), in, actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Inserted {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (s *Server) handleQueryTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.TransactionFilter
	if v := q.Get("source"); v != "" {
		src := model.TxSource(v)
		if !src.Valid() {
			writeError(w, http.StatusBadRequest, "unknown source "+v)
			return
		}
		f.Source = &src
	}
	if v := q.Get("status"); v != "" {
		st := model.TxStatus(v)
		f.Status = &st
	}
	if v := q.Get("token_symbol"); v != "" {
		f.TokenSymbol = &v
	}
	if v := q.Get("from_address"); v != "" {
		f.FromAddress = &v
	}
	if v := q.Get("to_address"); v != "" {
		f.ToAddress = &v
	}
	for param, dst := range map[string]**int64{"from_ts": &f.FromTimestamp, "to_ts": &f.ToTimestamp} {
		if v := q.Get(param); v != "" {
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, param+" must be epoch milliseconds")
				return
			}
			*dst = &ts
		}
	}

	txs, total, err := s.ledger.Query(r.Context(), f, pageFromQuery(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: txs, Total: total})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	tx, err := s.ledger.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.GetStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Matching endpoints ---

type runMatchingRequest struct {
	TokenSymbol *string  `json:"token_symbol,omitempty"`
	MinScore    *float64 `json:"min_score,omitempty"`
}

func (s *Server) handleRunMatching(w http.ResponseWriter, r *http.Request) {
	var req runMatchingRequest
	if r.ContentLength > 0 && !decodeJSONBody(w, r, &req) {
		return
	}
	if req.MinScore != nil && (*req.MinScore < 0 || *req.MinScore > 100) {
		writeError(w, http.StatusBadRequest, "min_score must be within [0, 100]")
		return
	}

	result, err := s.matching.RunMatching(r.Context(), req.TokenSymbol, req.MinScore)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	var status *model.SuggestionStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := model.SuggestionStatus(v)
		status = &st
	}

	items, total, err := s.matching.ListSuggestions(r.Context(), status, pageFromQuery(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: items, Total: total})
}

type approveRequest struct {
	AnchorID uuid.UUID `json:"anchor_id"`
	ClaimID  uuid.UUID `json:"claim_id"`
	Force    bool      `json:"force"`
	Notes    *string   `json:"notes,omitempty"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.AnchorID == uuid.Nil || req.ClaimID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "anchor_id and claim_id are required")
		return
	}

	sug, err := s.matching.Approve(r.Context(), req.AnchorID, req.ClaimID, actor, req.Force, req.Notes)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

type rejectRequest struct {
	AnchorID uuid.UUID `json:"anchor_id"`
	ClaimID  uuid.UUID `json:"claim_id"`
	Reason   *string   `json:"reason,omitempty"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.AnchorID == uuid.Nil || req.ClaimID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "anchor_id and claim_id are required")
		return
	}

	if err := s.matching.Reject(r.Context(), req.AnchorID, req.ClaimID, actor, req.Reason); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleBatchReconcile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var pairs []matching.Pair
	if !decodeJSONBody(w, r, &pairs) {
		return
	}
	if len(pairs) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch")
		return
	}

	result, err := s.matching.BatchReconcile(r.Context(), pairs, actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

// --- Configuration endpoints ---

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ledger.GetMatchingConfig(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var cfg model.MatchingConfig
	if !decodeJSONBody(w, r, &cfg) {
		return
	}

	saved, err := s.ledger.UpdateMatchingConfig(r.Context(), cfg, actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// --- Risk endpoints ---

func (s *Server) handleListRisk(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.risk.GetAllScores(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleGetRisk(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet is required")
		return
	}
	profile, err := s.risk.GetScore(r.Context(), wallet)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleRecalculateRisk(w http.ResponseWriter, r *http.Request) {
	scored, err := s.risk.RecalculateAll(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"wallets_scored": scored})
}

// --- Drift endpoints ---

func (s *Server) handleListDrift(w http.ResponseWriter, r *http.Request) {
	if s.drift == nil {
		writeError(w, http.StatusServiceUnavailable, "drift detection not configured")
		return
	}
	minLevel := model.AlertNone
	if v := r.URL.Query().Get("min_level"); v != "" {
		switch lvl := model.AlertLevel(v); lvl {
		case model.AlertNone, model.AlertWarning, model.AlertCritical:
			minLevel = lvl
		default:
			writeError(w, http.StatusBadRequest, "min_level must be none, warning, or critical")
			return
		}
	}

	records, err := s.drift.GetAll(r.Context(), minLevel)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetDrift(w http.ResponseWriter, r *http.Request) {
	if s.drift == nil {
		writeError(w, http.StatusServiceUnavailable, "drift detection not configured")
		return
	}
	wallet := r.PathValue("wallet")
	records, err := s.drift.GetByWallet(r.Context(), wallet)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSyncDrift(w http.ResponseWriter, r *http.Request) {
	if s.drift == nil {
		writeError(w, http.StatusServiceUnavailable, "drift detection not configured")
		return
	}
	result, err := s.drift.Sync(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Audit endpoint ---

func (s *Server) handleQueryAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.AuditFilter
	if v := q.Get("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := q.Get("entity_type"); v != "" {
		et := model.AuditEntityType(v)
		f.EntityType = &et
	}
	if v := q.Get("entity_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "entity_id must be a UUID")
			return
		}
		f.EntityID = &id
	}
	if v := q.Get("actor"); v != "" {
		f.Actor = &v
	}
	for param, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if v := q.Get(param); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, param+" must be RFC3339")
				return
			}
			*dst = &ts
		}
	}

	entries, total, err := s.auditRepo.Query(r.Context(), f, pageFromQuery(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: entries, Total: total})
}
