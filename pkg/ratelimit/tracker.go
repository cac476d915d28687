package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for call budget tracking.
var (
	requestsRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "namecheap_requests_remaining",
		Help: "API calls remaining in the current bucket by window",
	}, []string{"window"})

	rateLimitBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "namecheap_rate_limit_blocks_total",
		Help: "Total number of requests blocked because a window was exhausted",
	}, []string{"window"})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "namecheap_rate_limit_throttles_total",
		Help: "Total number of requests throttled because a window was nearly spent",
	})
)

// DefaultThrottleDelay is the pause applied to a request when throttling.
const DefaultThrottleDelay = 1 * time.Second

// Tracker monitors the API call budget and gates requests.
type Tracker struct {
	redis         *redis.Client
	apiUser       string
	windows       []Window
	logger        zerolog.Logger
	throttleDelay time.Duration
	now           func() time.Time
}

// NewTracker creates a new budget tracker for one API user. A nil windows
// slice selects DefaultWindows.
func NewTracker(redisClient *redis.Client, apiUser string, windows []Window, logger zerolog.Logger) *Tracker {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if windows == nil {
		windows = DefaultWindows()
	}

	return &Tracker{
		redis:         redisClient,
		apiUser:       apiUser,
		windows:       windows,
		logger:        logger,
		throttleDelay: DefaultThrottleDelay,
		now:           time.Now,
	}
}

// GetState reads the current bucket of every window from Redis.
// Buckets with no recorded calls count as unused.
func (t *Tracker) GetState(ctx context.Context) (*BudgetState, error) {
	now := t.now()

	pipe := t.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(t.windows))
	for i, w := range t.windows {
		cmds[i] = pipe.Get(ctx, w.Key(t.apiUser, now))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get call budget: %w", err)
	}

	state := &BudgetState{Windows: make([]WindowState, 0, len(t.windows))}
	for i, w := range t.windows {
		used, err := cmds[i].Int()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				return nil, fmt.Errorf("parse %s usage: %w", w.Name, err)
			}
			used = 0
		}

		ws := WindowState{
			Window:  w,
			Used:    used,
			ResetAt: w.BucketStart(now).Add(w.Length),
		}
		requestsRemaining.WithLabelValues(w.Name).Set(float64(ws.Remaining()))
		state.Windows = append(state.Windows, ws)
	}

	return state, nil
}

// RecordRequest counts one call against every window.
func (t *Tracker) RecordRequest(ctx context.Context) error {
	now := t.now()

	pipe := t.redis.TxPipeline()
	for _, w := range t.windows {
		key := w.Key(t.apiUser, now)
		pipe.Incr(ctx, key)
		pipe.ExpireAt(ctx, key, w.BucketStart(now).Add(w.Length+time.Minute))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store call budget in redis: %w", err)
	}

	t.logger.Debug().Str("api_user", t.apiUser).Msg("Recorded API call")
	return nil
}

// ShouldAllowRequest checks whether a request fits the budget.
// Returns false if any window is exhausted.
// Returns true but sleeps for throttling if any window is nearly spent.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get call budget state: %w", err)
	}

	if w, blocked := state.Blocking(); blocked {
		t.logger.Error().
			Str("window", w.Window.Name).
			Int("used", w.Used).
			Int("limit", w.Window.Limit).
			Dur("wait_duration", w.TimeUntilReset()).
			Msg("API call budget exhausted - blocking request")

		rateLimitBlocksTotal.WithLabelValues(w.Window.Name).Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Dur("delay", t.throttleDelay).
			Msg("API call budget nearly spent - throttling request")

		rateLimitThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}
