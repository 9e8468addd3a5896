// Package quota tracks rate-limit state for a generation session and
// computes how long the orchestrator must wait before the next attempt.
// The tracker owns a single mutable State for the session lifetime; no
// other component mutates it.
package quota

import (
	"time"
)

// Defaults matching the provider limits the service is tuned for.
const (
	// DefaultSpacingIncrement is added to the minimum spacing on every
	// quota rejection.
	DefaultSpacingIncrement = 10 * time.Second
	// DefaultSpacingCeiling caps the ratcheted minimum spacing.
	DefaultSpacingCeiling = 120 * time.Second
	// DefaultBackoffBase is the backoff window after the first
	// consecutive quota rejection.
	DefaultBackoffBase = 60 * time.Second
	// DefaultBackoffMultiplier doubles the window per extra rejection.
	DefaultBackoffMultiplier = 2.0
	// DefaultBackoffCap bounds the backoff window.
	DefaultBackoffCap = 300 * time.Second
	// DefaultFailureThreshold is the consecutive-failure count at which
	// the tracker reports the session exhausted.
	DefaultFailureThreshold = 5
)

// Config holds the quota limits for one session.
type Config struct {
	// RPMLimit is the provider's requests-per-minute budget. It seeds
	// the initial minimum spacing between attempts.
	RPMLimit int
	// DailyLimit is the provider's requests-per-day budget.
	DailyLimit int
	// SpacingIncrement, SpacingCeiling, BackoffBase, BackoffMultiplier,
	// BackoffCap and FailureThreshold override the defaults when set.
	SpacingIncrement  time.Duration
	SpacingCeiling    time.Duration
	BackoffBase       time.Duration
	BackoffMultiplier float64
	BackoffCap        time.Duration
	FailureThreshold  int
}

func (c Config) withDefaults() Config {
	if c.SpacingIncrement <= 0 {
		c.SpacingIncrement = DefaultSpacingIncrement
	}
	if c.SpacingCeiling <= 0 {
		c.SpacingCeiling = DefaultSpacingCeiling
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffMultiplier <= 1 {
		c.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = DefaultBackoffCap
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	return c
}

// State is the mutable quota record for one session.
type State struct {
	// MinSpacing is the current minimum gap between attempts. It only
	// ratchets upward on quota rejections, never auto-decreases.
	MinSpacing time.Duration
	// DailyCount is the number of successful generations today.
	DailyCount int
	// ConsecutiveFailures counts quota rejections since the last
	// success.
	ConsecutiveFailures int
	// LastGeneration is when the last successful attempt finished.
	LastGeneration time.Time
	// LastQuotaHit is when the last quota rejection was recorded.
	LastQuotaHit time.Time
	// CurrentDay anchors the daily counter to a calendar day.
	CurrentDay time.Time
}

// Tracker gates generation attempts against the session quota budget.
// It is not safe for concurrent use; the orchestrator drives clips
// one at a time and is the tracker's only caller.
type Tracker struct {
	cfg   Config
	state State
	now   func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock injects a clock, used by tests to control time.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a Tracker for one generation session.
func NewTracker(cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		cfg: cfg.withDefaults(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.cfg.RPMLimit > 0 {
		t.state.MinSpacing = time.Minute / time.Duration(t.cfg.RPMLimit)
	}
	t.state.CurrentDay = startOfDay(t.now())
	return t
}

// CheckAndWait returns how long the caller must wait before the next
// attempt. Zero means the attempt may proceed now. When the daily
// budget is spent, the wait spans to the next calendar-day boundary.
func (t *Tracker) CheckAndWait() time.Duration {
	now := t.now()
	t.rollDay(now)

	if t.cfg.DailyLimit > 0 && t.state.DailyCount >= t.cfg.DailyLimit {
		return t.untilNextDay(now)
	}

	var wait time.Duration
	if !t.state.LastGeneration.IsZero() {
		wait = t.state.MinSpacing - now.Sub(t.state.LastGeneration)
	}

	if t.state.ConsecutiveFailures > 0 && !t.state.LastQuotaHit.IsZero() {
		window := t.backoffWindow(t.state.ConsecutiveFailures)
		// The ratcheted spacing is a floor on the backoff window so a
		// rejection never shortens the gap it just widened.
		if window < t.state.MinSpacing {
			window = t.state.MinSpacing
		}
		if remaining := window - now.Sub(t.state.LastQuotaHit); remaining > wait {
			wait = remaining
		}
	}

	if wait < 0 {
		wait = 0
	}
	return wait
}

// RecordSuccess registers a successful generation: the failure streak
// clears, the daily counter advances and the spacing clock restarts.
func (t *Tracker) RecordSuccess() {
	now := t.now()
	t.rollDay(now)
	t.state.ConsecutiveFailures = 0
	t.state.LastGeneration = now
	t.state.DailyCount++
}

// RecordQuotaRejection registers a provider quota rejection: the
// failure streak grows, the minimum spacing ratchets up by the fixed
// increment (capped at the ceiling) and a new backoff window opens.
func (t *Tracker) RecordQuotaRejection() {
	now := t.now()
	t.rollDay(now)
	t.state.ConsecutiveFailures++
	t.state.LastQuotaHit = now
	t.state.MinSpacing += t.cfg.SpacingIncrement
	if t.state.MinSpacing > t.cfg.SpacingCeiling {
		t.state.MinSpacing = t.cfg.SpacingCeiling
	}
}

// IsExhausted reports whether the session budget is spent, either
// because the daily limit was reached or because quota rejections kept
// piling up past the failure threshold.
func (t *Tracker) IsExhausted() bool {
	t.rollDay(t.now())
	if t.cfg.DailyLimit > 0 && t.state.DailyCount >= t.cfg.DailyLimit {
		return true
	}
	return t.state.ConsecutiveFailures >= t.cfg.FailureThreshold
}

// MarkDayExhausted forces the daily budget to its limit, used to seed
// the tracker from a provider pre-flight quota check.
func (t *Tracker) MarkDayExhausted() {
	t.rollDay(t.now())
	if t.cfg.DailyLimit > 0 {
		t.state.DailyCount = t.cfg.DailyLimit
	}
}

// Snapshot returns a copy of the current state for logging and tests.
func (t *Tracker) Snapshot() State {
	return t.state
}

// Day returns the calendar day the daily counter is anchored to.
func (t *Tracker) Day() time.Time {
	t.rollDay(t.now())
	return t.state.CurrentDay
}

// backoffWindow computes base * multiplier^(failures-1), capped.
func (t *Tracker) backoffWindow(failures int) time.Duration {
	window := t.cfg.BackoffBase
	for i := 1; i < failures; i++ {
		window = time.Duration(float64(window) * t.cfg.BackoffMultiplier)
		if window >= t.cfg.BackoffCap {
			return t.cfg.BackoffCap
		}
	}
	if window > t.cfg.BackoffCap {
		window = t.cfg.BackoffCap
	}
	return window
}

// rollDay resets the daily counter and failure streak exactly once per
// calendar-day boundary.
func (t *Tracker) rollDay(now time.Time) {
	day := startOfDay(now)
	if day.Equal(t.state.CurrentDay) {
		return
	}
	t.state.CurrentDay = day
	t.state.DailyCount = 0
	t.state.ConsecutiveFailures = 0
}

func (t *Tracker) untilNextDay(now time.Time) time.Duration {
	next := startOfDay(now).AddDate(0, 0, 1)
	return next.Sub(now)
}

func startOfDay(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}
