package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// retention is how long daily counters are kept in Redis
const retention = 90 * 24 * time.Hour

// Record is the accounting entry of one vendor call.
type Record struct {
	ModelID          int64
	PromptTokens     int
	CompletionTokens int
	Success          bool
	At               time.Time
}

// Summary is the per model, per day aggregate.
type Summary struct {
	Requests         int64 `json:"requests"`
	Failures         int64 `json:"failures"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// Tracker records token usage of vendor calls.
type Tracker interface {
	Record(ctx context.Context, rec Record) error
}

// NoopTracker discards usage.
type NoopTracker struct{}

func NewNoopTracker() *NoopTracker {
	return &NoopTracker{}
}

func (t *NoopTracker) Record(ctx context.Context, rec Record) error {
	return nil
}

// RedisTracker keeps daily counters in a Redis hash per model.
type RedisTracker struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRedisTracker creates a new Redis usage tracker
func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{
		redis: client,
		now:   time.Now,
	}
}

// Record increments the daily counters of rec.ModelID atomically
func (t *RedisTracker) Record(ctx context.Context, rec Record) error {
	at := rec.At
	if at.IsZero() {
		at = t.now()
	}
	key := dailyKey(rec.ModelID, at)

	failures := int64(0)
	if !rec.Success {
		failures = 1
	}

	_, err := t.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "requests", 1)
		pipe.HIncrBy(ctx, key, "failures", failures)
		pipe.HIncrBy(ctx, key, "prompt_tokens", int64(rec.PromptTokens))
		pipe.HIncrBy(ctx, key, "completion_tokens", int64(rec.CompletionTokens))
		pipe.Expire(ctx, key, retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	return nil
}

// Daily returns the counters of a model for the UTC day containing day
func (t *RedisTracker) Daily(ctx context.Context, modelID int64, day time.Time) (Summary, error) {
	values, err := t.redis.HGetAll(ctx, dailyKey(modelID, day)).Result()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to get usage: %w", err)
	}

	parse := func(field string) int64 {
		n, _ := strconv.ParseInt(values[field], 10, 64)
		return n
	}
	return Summary{
		Requests:         parse("requests"),
		Failures:         parse("failures"),
		PromptTokens:     parse("prompt_tokens"),
		CompletionTokens: parse("completion_tokens"),
	}, nil
}

// dailyKey generates the Redis key of the daily counters
func dailyKey(modelID int64, day time.Time) string {
	return fmt.Sprintf("usage:%s:%d", day.UTC().Format("2006-01-02"), modelID)
}
