// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keychain.
//
// go-keychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package ratelimit throttles repeated unlock attempts per account with a
// token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCleanupInterval = 10 * time.Minute
	defaultMaxIdle         = 30 * time.Minute
)

// Config holds rate limiter configuration.
type Config struct {
	// Enabled controls whether rate limiting is active.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// AttemptsPerMinute sets the sustained rate of unlock attempts.
	AttemptsPerMinute int `yaml:"attempts_per_minute" mapstructure:"attempts_per_minute"`

	// Burst allows a few attempts in quick succession.
	// Zero means AttemptsPerMinute.
	Burst int `yaml:"burst" mapstructure:"burst"`

	// CleanupInterval controls how often idle accounts are forgotten.
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`

	// MaxIdle is how long an account may go without attempts before it is
	// forgotten.
	MaxIdle time.Duration `yaml:"max_idle" mapstructure:"max_idle"`

	// MaxWait is how long an attempt may block for a token before it is
	// rejected. Zero rejects at once.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// bucket is the attempt budget of one account.
type bucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out unlock attempts per account.
type Limiter struct {
	mu       sync.RWMutex
	accounts map[string]*bucket
	rate     rate.Limit
	burst    int
	enabled  bool

	cleanupInterval time.Duration
	maxIdle         time.Duration
	done            chan struct{}
	stopOnce        sync.Once
}

// New creates a limiter. An enabled limiter runs a cleanup goroutine until
// Stop is called.
func New(config *Config) *Limiter {
	if config == nil {
		config = &Config{}
	}

	l := &Limiter{
		accounts:        make(map[string]*bucket),
		rate:            rate.Limit(float64(config.AttemptsPerMinute) / 60.0),
		burst:           config.Burst,
		enabled:         config.Enabled,
		cleanupInterval: config.CleanupInterval,
		maxIdle:         config.MaxIdle,
		done:            make(chan struct{}),
	}
	if l.burst == 0 {
		l.burst = config.AttemptsPerMinute
	}
	if l.cleanupInterval == 0 {
		l.cleanupInterval = defaultCleanupInterval
	}
	if l.maxIdle == 0 {
		l.maxIdle = defaultMaxIdle
	}

	if l.enabled {
		go l.cleanupWorker()
	}
	return l
}

// bucketFor returns the bucket of account, creating a full one on first use.
func (l *Limiter) bucketFor(account string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.accounts[account]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(l.rate, l.burst)}
		l.accounts[account] = b
	}
	b.lastSeen = time.Now()
	return b
}

// Allow reports whether another attempt for account is within limits and
// consumes a token if so.
func (l *Limiter) Allow(account string) bool {
	if !l.enabled {
		return true
	}
	return l.bucketFor(account).tokens.Allow()
}

// Wait blocks until an attempt for account is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, account string) error {
	if !l.enabled {
		return nil
	}
	return l.bucketFor(account).tokens.Wait(ctx)
}

// Remaining returns how many attempts account can make right now. A
// disabled limiter or an unknown account reports the full burst.
func (l *Limiter) Remaining(account string) int {
	if !l.enabled {
		return l.burst
	}
	l.mu.RLock()
	b, ok := l.accounts[account]
	l.mu.RUnlock()
	if !ok {
		return l.burst
	}
	return max(0, int(b.tokens.Tokens()))
}

// Reset forgets account, restoring its full burst. Called after a
// successful unlock.
func (l *Limiter) Reset(account string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.accounts, account)
}

func (l *Limiter) cleanupWorker() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.done:
			return
		}
	}
}

// cleanup forgets accounts idle for longer than maxIdle.
func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.maxIdle)
	for account, b := range l.accounts {
		if b.lastSeen.Before(cutoff) {
			delete(l.accounts, account)
		}
	}
}

// Stop stops the cleanup worker. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Stats returns current rate limiter statistics.
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return map[string]interface{}{
		"enabled":         l.enabled,
		"active_accounts": len(l.accounts),
		"rate_per_min":    float64(l.rate) * 60,
		"burst":           l.burst,
	}
}

// IsEnabled returns whether rate limiting is enabled.
func (l *Limiter) IsEnabled() bool {
	return l.enabled
}
