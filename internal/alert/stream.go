package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	alertStreamKey    = "reconciler:alerts"
	alertStreamMaxLen = 10000
)

// StreamAlerter publishes alerts to a Redis stream so downstream consumers
// (ticketing, paging, archival) can tail them without coupling to this
// process. The stream is trimmed approximately to keep memory bounded.
type StreamAlerter struct {
	client *redis.Client
}

func NewStreamAlerter(url string) (*StreamAlerter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &StreamAlerter{client: client}, nil
}

func (s *StreamAlerter) Close() error {
	return s.client.Close()
}

// Send appends the alert to the stream via XADD.
func (s *StreamAlerter) Send(ctx context.Context, alert Alert) error {
	values := map[string]any{
		"type":    string(alert.Type),
		"wallet":  alert.Wallet,
		"token":   alert.Token,
		"title":   alert.Title,
		"message": alert.Message,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range alert.Fields {
		values["field_"+k] = v
	}

	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: alertStreamKey,
		MaxLen: alertStreamMaxLen,
		Approx: true,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("publish alert to stream: %w", err)
	}
	return nil
}
