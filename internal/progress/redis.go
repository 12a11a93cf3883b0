package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes every completion event to a Redis pub/sub channel
// so an external dashboard can follow a run. It never holds state that
// the core conversion reads back — only transient fan-out, matching
// spec.md §6's "no persisted state".
//
// Connection setup mirrors the teacher's g/pkg/queue/redis_client.go
// NewRedisClient: same Options fields, same Ping-on-construct check.
type RedisSink struct {
	client  *redis.Client
	channel string
	ctx     context.Context
}

// cellEvent is published as JSON on each OnCell call.
type cellEvent struct {
	A    uint32    `json:"a"`
	B    uint32    `json:"b"`
	Time time.Time `json:"t"`
}

// NewRedisSink dials addr and returns a sink publishing to
// "pixelart:progress:<runID>". It returns an error if Redis is
// unreachable, so callers can fall back to the terminal Bar alone.
func NewRedisSink(addr, runID string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("progress: redis ping failed: %w", err)
	}

	return &RedisSink{
		client:  client,
		channel: fmt.Sprintf("pixelart:progress:%s", runID),
		ctx:     ctx,
	}, nil
}

// OnCell implements converter.ProgressSink. Publish errors are
// swallowed here too: the Converter already treats sink panics as
// non-fatal, and a dropped progress message must never fail a
// conversion.
func (s *RedisSink) OnCell(a, b uint32) {
	payload, err := json.Marshal(cellEvent{A: a, B: b, Time: time.Now()})
	if err != nil {
		return
	}
	_ = s.client.Publish(s.ctx, s.channel, payload).Err()
}

// Close releases the underlying Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
