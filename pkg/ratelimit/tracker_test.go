package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis creates a test Redis client against a local server.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewTracker_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewTracker should panic with nil redis client")
		}
	}()
	NewTracker(nil, "apiuser", nil, zerolog.Nop())
}

func TestNewTracker_DefaultWindows(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	tracker := NewTracker(client, "apiuser", nil, zerolog.Nop())
	if len(tracker.windows) != len(DefaultWindows()) {
		t.Errorf("windows = %d, want defaults", len(tracker.windows))
	}
	if tracker.throttleDelay != DefaultThrottleDelay {
		t.Errorf("throttleDelay = %s, want %s", tracker.throttleDelay, DefaultThrottleDelay)
	}
}

func TestTracker_GetState_Empty(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewTracker(client, "apiuser", nil, zerolog.Nop())

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	for _, w := range state.Windows {
		if w.Used != 0 {
			t.Errorf("%s used = %d, want 0", w.Window.Name, w.Used)
		}
		if w.Remaining() != w.Window.Limit {
			t.Errorf("%s remaining = %d, want %d", w.Window.Name, w.Remaining(), w.Window.Limit)
		}
	}
}

func TestTracker_RecordRequest(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewTracker(client, "apiuser", nil, zerolog.Nop())
	fixed := time.Now()
	tracker.now = func() time.Time { return fixed }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := tracker.RecordRequest(ctx); err != nil {
			t.Fatalf("RecordRequest() error = %v", err)
		}
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	for _, w := range state.Windows {
		if w.Used != 3 {
			t.Errorf("%s used = %d, want 3", w.Window.Name, w.Used)
		}
	}

	key := tracker.windows[0].Key("apiuser", fixed)
	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > 2*time.Minute {
		t.Errorf("minute bucket TTL = %s, want within (0, 2m]", ttl)
	}
}

func TestTracker_ShouldAllowRequest(t *testing.T) {
	client := setupTestRedis(t)
	windows := []Window{{Name: "minute", Length: time.Minute, Limit: 2}}
	tracker := NewTracker(client, "apiuser", windows, zerolog.Nop())
	fixed := time.Now()
	tracker.now = func() time.Time { return fixed }
	tracker.throttleDelay = time.Millisecond
	ctx := context.Background()

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil || !allowed {
		t.Fatalf("fresh budget: allowed=%v err=%v", allowed, err)
	}

	if err := tracker.RecordRequest(ctx); err != nil {
		t.Fatalf("RecordRequest() error = %v", err)
	}
	if err := tracker.RecordRequest(ctx); err != nil {
		t.Fatalf("RecordRequest() error = %v", err)
	}

	allowed, err = tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("exhausted budget should block")
	}
}

func TestTracker_UsersAreIsolated(t *testing.T) {
	client := setupTestRedis(t)
	windows := []Window{{Name: "minute", Length: time.Minute, Limit: 1}}
	ctx := context.Background()

	first := NewTracker(client, "first", windows, zerolog.Nop())
	second := NewTracker(client, "second", windows, zerolog.Nop())

	if err := first.RecordRequest(ctx); err != nil {
		t.Fatalf("RecordRequest() error = %v", err)
	}

	if allowed, _ := first.ShouldAllowRequest(ctx); allowed {
		t.Error("first user should be blocked")
	}
	if allowed, _ := second.ShouldAllowRequest(ctx); !allowed {
		t.Error("second user should be allowed")
	}
}
