// Package cache provides a Redis read-through cache for event summaries.
// List operations tolerate slightly stale summaries, so cached reads are
// safe; the engine's state transitions never go through here.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"registration-service/internal/model"
)

// EventSummaries caches the event fields joined into registration
// listings. A nil *EventSummaries is valid and disables caching.
type EventSummaries struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewEventSummaries constructs a cache over the given Redis client.
func NewEventSummaries(client redis.Cmdable, ttl time.Duration) *EventSummaries {
	return &EventSummaries{client: client, ttl: ttl}
}

func summaryKey(eventID string) string {
	return "event:summary:" + eventID
}

// Get returns the cached summary for an event, or ok=false on a miss.
// Cache failures are treated as misses; the caller falls back to the
// catalog.
func (c *EventSummaries) Get(ctx context.Context, eventID string) (model.Summary, bool) {
	if c == nil {
		return model.Summary{}, false
	}
	data, err := c.client.Get(ctx, summaryKey(eventID)).Bytes()
	if err != nil {
		return model.Summary{}, false
	}
	var s model.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Summary{}, false
	}
	return s, true
}

// Set stores a summary with the configured TTL. Failures are ignored; the
// cache is best-effort.
func (c *EventSummaries) Set(ctx context.Context, s model.Summary) {
	if c == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	c.client.Set(ctx, summaryKey(s.ID), data, c.ttl)
}

// Invalidate drops the cached summary after an event update or delete.
func (c *EventSummaries) Invalidate(ctx context.Context, eventID string) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, summaryKey(eventID)).Err(); err != nil {
		return fmt.Errorf("invalidate event summary: %w", err)
	}
	return nil
}
