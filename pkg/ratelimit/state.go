// Package ratelimit keeps the registrar's API call budget in Redis so that
// concurrent runs under the same API user share one view of it.
//
// The registrar limits calls per minute, hour and day. Each window is a fixed
// bucket counter that expires with the bucket.
package ratelimit

import (
	"fmt"
	"time"
)

// Redis key prefix for budget counters.
// Full key: namecheap:rate_limit:<api user>:<window>:<bucket start unix>.
const RedisKeyPrefix = "namecheap:rate_limit"

// ThrottleFraction applies throttling when less than this share of a window's
// limit remains.
const ThrottleFraction = 0.10

// Window is one fixed-size budget window.
type Window struct {
	Name   string
	Length time.Duration
	Limit  int
}

// DefaultWindows are the registrar's published per-user call limits.
func DefaultWindows() []Window {
	return []Window{
		{Name: "minute", Length: time.Minute, Limit: 50},
		{Name: "hour", Length: time.Hour, Limit: 700},
		{Name: "day", Length: 24 * time.Hour, Limit: 8000},
	}
}

// BucketStart returns the start of the bucket containing t.
func (w Window) BucketStart(t time.Time) time.Time {
	return t.UTC().Truncate(w.Length)
}

// Key returns the Redis key of the bucket containing t for the given user.
func (w Window) Key(user string, t time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", RedisKeyPrefix, user, w.Name, w.BucketStart(t).Unix())
}

// WindowState is the usage of one window's current bucket.
type WindowState struct {
	Window  Window
	Used    int
	ResetAt time.Time
}

// Remaining returns the calls left in the bucket, never negative.
func (s WindowState) Remaining() int {
	if r := s.Window.Limit - s.Used; r > 0 {
		return r
	}
	return 0
}

// Exhausted reports whether no calls are left in the bucket.
func (s WindowState) Exhausted() bool {
	return s.Used >= s.Window.Limit
}

// NeedsThrottling reports whether the bucket is nearly spent.
func (s WindowState) NeedsThrottling() bool {
	return !s.Exhausted() && float64(s.Remaining()) < float64(s.Window.Limit)*ThrottleFraction
}

// TimeUntilReset returns the duration until the bucket rolls over.
// Returns 0 if the reset time has already passed.
func (s WindowState) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// BudgetState is the usage of every window.
type BudgetState struct {
	Windows []WindowState
}

// Blocking returns the first exhausted window, if any.
func (b *BudgetState) Blocking() (WindowState, bool) {
	for _, w := range b.Windows {
		if w.Exhausted() {
			return w, true
		}
	}
	return WindowState{}, false
}

// NeedsThrottling reports whether any window is nearly spent.
func (b *BudgetState) NeedsThrottling() bool {
	for _, w := range b.Windows {
		if w.NeedsThrottling() {
			return true
		}
	}
	return false
}
