package middlewares

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// countingRedis keeps counters in a map; only the commands allowRequest sends are implemented.
type countingRedis struct {
	redis.Cmdable
	counts    map[string]int64
	expiring  map[string]time.Duration
	expireErr error
}

func newCountingRedis() *countingRedis {
	return &countingRedis{counts: map[string]int64{}, expiring: map[string]time.Duration{}}
}

func (r *countingRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	r.counts[key]++
	return redis.NewIntResult(r.counts[key], nil)
}

func (r *countingRedis) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if r.expireErr != nil {
		return redis.NewBoolResult(false, r.expireErr)
	}
	r.expiring[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (r *countingRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := r.counts[key]; ok {
			delete(r.counts, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestAllowRequestWindow(t *testing.T) {
	ctx := context.Background()
	client := newCountingRedis()

	for i := 1; i <= 3; i++ {
		allowed, err := allowRequest(ctx, client, "RateLimit:10.0.0.1", 2, time.Minute)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if want := i <= 2; allowed != want {
			t.Fatalf("request %d: allowed=%v want %v", i, allowed, want)
		}
	}
	if got := client.expiring["RateLimit:10.0.0.1"]; got != time.Minute {
		t.Fatalf("expected the window set on first hit, got %v", got)
	}
}

func TestAllowRequestDropsCounterWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	client := newCountingRedis()
	client.expireErr = errors.New("READONLY")

	allowed, err := allowRequest(ctx, client, "RateLimit:10.0.0.2", 1, time.Minute)
	if err == nil || !allowed {
		t.Fatalf("expected the request let through with the expire error, got allowed=%v err=%v", allowed, err)
	}
	if _, ok := client.counts["RateLimit:10.0.0.2"]; ok {
		t.Fatalf("counter without expiry must be dropped")
	}

	// once expiry works again the client starts a fresh window
	client.expireErr = nil
	allowed, err = allowRequest(ctx, client, "RateLimit:10.0.0.2", 1, time.Minute)
	if err != nil || !allowed {
		t.Fatalf("expected a fresh window, got allowed=%v err=%v", allowed, err)
	}
}
