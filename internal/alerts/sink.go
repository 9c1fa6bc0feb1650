// Package alerts fans alerts out from the background detectors: every
// alert is persisted, optionally pushed to a Redis fast queue, and
// broadcast to live subscribers (the websocket endpoint).
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

const (
	// redisKey is the Redis list holding recent alerts, newest first.
	redisKey = "alerts:global"

	// redisKeep is how many alerts the Redis list retains.
	redisKeep = 100

	// subscriberBuffer is the per-subscriber channel capacity. A slow
	// subscriber drops alerts rather than blocking the detectors.
	subscriberBuffer = 16
)

// Sink receives alerts from detectors and distributes them.
type Sink struct {
	store store.KnowledgeStore
	redis *redis.Client // nil when no fast queue is configured

	mu          sync.Mutex
	subscribers map[int]chan types.Alert
	nextSubID   int
}

// NewSink creates an alert sink. redisURL may be empty to disable the
// fast queue.
func NewSink(st store.KnowledgeStore, redisURL string) (*Sink, error) {
	s := &Sink{
		store:       st,
		subscribers: make(map[int]chan types.Alert),
	}
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("alerts: invalid redis URL: %w", err)
		}
		s.redis = redis.NewClient(opts)
	}
	return s, nil
}

// Publish persists the alert and pushes it to all outputs. Persistence
// failure is the only fatal error; queue and broadcast failures are
// logged and absorbed.
func (s *Sink) Publish(ctx context.Context, alert *types.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return fmt.Errorf("alerts: failed to persist alert: %w", err)
	}

	if s.redis != nil {
		if err := s.pushRedis(ctx, alert); err != nil {
			log.Printf("alerts: redis push failed: %v", err)
		}
	}

	s.broadcast(*alert)
	return nil
}

func (s *Sink) pushRedis(ctx context.Context, alert *types.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	pipe := s.redis.TxPipeline()
	pipe.LPush(ctx, redisKey, payload)
	pipe.LTrim(ctx, redisKey, 0, redisKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("lpush/ltrim: %w", err)
	}
	return nil
}

func (s *Sink) broadcast(alert types.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		select {
		case ch <- alert:
		default:
			log.Printf("alerts: subscriber %d too slow, dropping alert %s", id, alert.ID)
		}
	}
}

// Subscribe registers a live alert listener. The returned cancel func
// must be called to release the subscription.
func (s *Sink) Subscribe() (<-chan types.Alert, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan types.Alert, subscriberBuffer)
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Close releases the Redis connection, if any.
func (s *Sink) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
