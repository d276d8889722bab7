package drift

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emperorhan/ledger-reconciler/internal/circuitbreaker"
)

// HTTPSource queries an external balance endpoint:
//
//	GET {base}/balances/{wallet}/{token} -> {"balance": "123.45"}
//
// A circuit breaker shields the sync loop from a source that starts failing
// hard; while the breaker is open every pair is skipped immediately instead
// of each one waiting out the request timeout.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

func NewHTTPSource(baseURL string, logger *slog.Logger) *HTTPSource {
	s := &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With("component", "drift_source"),
	}
	s.breaker = circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		OnStateChange: func(from, to circuitbreaker.State) {
			s.logger.Warn("balance source circuit state changed",
				"from", from.String(), "to", to.String())
		},
	})
	return s
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

func (s *HTTPSource) GetBalance(ctx context.Context, wallet, tokenSymbol string) (decimal.Decimal, error) {
	if err := s.breaker.Allow(); err != nil {
		return decimal.Zero, fmt.Errorf("balance source %s/%s: %w", wallet, tokenSymbol, err)
	}

	endpoint := fmt.Sprintf("%s/balances/%s/%s",
		s.baseURL, url.PathEscape(wallet), url.PathEscape(tokenSymbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create balance request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.breaker.RecordFailure()
		return decimal.Zero, fmt.Errorf("query balance source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.breaker.RecordFailure()
		return decimal.Zero, fmt.Errorf("balance source returned status %d for %s/%s",
			resp.StatusCode, wallet, tokenSymbol)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		s.breaker.RecordFailure()
		return decimal.Zero, fmt.Errorf("read balance response: %w", err)
	}

	var parsed balanceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		s.breaker.RecordFailure()
		return decimal.Zero, fmt.Errorf("decode balance response: %w", err)
	}

	bal, err := decimal.NewFromString(parsed.Balance)
	if err != nil {
		s.breaker.RecordFailure()
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", parsed.Balance, err)
	}

	s.breaker.RecordSuccess()
	return bal, nil
}
