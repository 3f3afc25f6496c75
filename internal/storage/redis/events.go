// Package redis records processed webhook events so repeated deliveries can
// be acknowledged without applying them twice.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "carmelita:webhook:event:"

// EventLog marks webhook event ids as processed.
type EventLog struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewEventLog connects to addr and verifies the connection.
func NewEventLog(ctx context.Context, addr string, ttl time.Duration) (*EventLog, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &EventLog{client: client, ttl: ttl}, nil
}

// Claim records eventID and reports whether this call was the first to do so.
func (l *EventLog) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	return ok, nil
}

// Release forgets eventID so that a redelivery is processed again.
func (l *EventLog) Release(ctx context.Context, eventID string) error {
	if err := l.client.Del(ctx, keyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}

// Close closes the client.
func (l *EventLog) Close() error {
	return l.client.Close()
}
