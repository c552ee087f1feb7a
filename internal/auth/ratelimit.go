package auth

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter throttles login attempts per client address and username. It
// complements the per-account lockout in Service.Authenticate, which only
// sees existing usernames.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu       sync.Mutex
	attempts map[attemptKey]*attemptRecord

	stop     chan struct{}
	stopOnce sync.Once
}

type attemptKey struct {
	ip       string
	username string
}

type attemptRecord struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

// RateLimitConfig contains configuration for the rate limiter. Zero values
// fall back to 5 attempts per 15 minutes and a 30 minute lockout.
type RateLimitConfig struct {
	MaxAttempts     int
	WindowDuration  time.Duration
	LockoutDuration time.Duration
	CleanupInterval time.Duration
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = 15 * time.Minute
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	return c
}

// NewRateLimiter starts a limiter and its sweeper goroutine. Call Stop to end it.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		attempts: make(map[attemptKey]*attemptRecord),
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func keyFor(ip, username string) attemptKey {
	return attemptKey{ip: ip, username: strings.ToLower(strings.TrimSpace(username))}
}

// current returns the live record for key, dropping one whose window and
// lockout have both passed. Callers hold mu.
func (rl *RateLimiter) current(key attemptKey, now time.Time) *attemptRecord {
	record, ok := rl.attempts[key]
	if !ok {
		return nil
	}
	if now.Before(record.lockedUntil) {
		return record
	}
	if now.Sub(record.windowStart) > rl.cfg.WindowDuration {
		delete(rl.attempts, key)
		return nil
	}
	return record
}

// Allow reports whether a login attempt may proceed and, if not, how long
// the caller should wait.
func (rl *RateLimiter) Allow(ip, username string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record := rl.current(keyFor(ip, username), now)
	switch {
	case record == nil:
		return true, 0
	case now.Before(record.lockedUntil):
		return false, record.lockedUntil.Sub(now)
	case record.failures < rl.cfg.MaxAttempts:
		return true, 0
	}
	return false, rl.cfg.LockoutDuration
}

// RecordFailure counts a failed attempt and reports whether it triggered a
// lockout together with its length.
func (rl *RateLimiter) RecordFailure(ip, username string) (bool, time.Duration) {
	key := keyFor(ip, username)
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record := rl.current(key, now)
	if record == nil {
		record = &attemptRecord{windowStart: now}
		rl.attempts[key] = record
	}

	record.failures++
	if record.failures < rl.cfg.MaxAttempts {
		return false, 0
	}
	record.lockedUntil = now.Add(rl.cfg.LockoutDuration)
	return true, rl.cfg.LockoutDuration
}

// RecordSuccess forgets earlier failures after a successful login.
func (rl *RateLimiter) RecordSuccess(ip, username string) {
	rl.mu.Lock()
	delete(rl.attempts, keyFor(ip, username))
	rl.mu.Unlock()
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep drops records whose window and lockout have both passed.
func (rl *RateLimiter) sweep() int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	before := len(rl.attempts)
	for key := range rl.attempts {
		rl.current(key, now)
	}
	return before - len(rl.attempts)
}
