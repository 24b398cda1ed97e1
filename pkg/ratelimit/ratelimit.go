// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-tcp-keystore.
//
// go-tcp-keystore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package ratelimit throttles keystore requests per remote peer using
// token buckets from golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter tracks one token bucket per peer. Connections from the same host
// share a bucket.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	enabled  bool

	maxIdle     time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// Config holds rate limiter configuration.
type Config struct {
	Enabled bool

	// RequestsPerSecond sets the sustained per-peer rate.
	RequestsPerSecond float64

	// Burst allows short bursts above the sustained rate. Defaults to
	// RequestsPerSecond rounded up, with a minimum of 1.
	Burst int

	// CleanupInterval controls how often idle peers are dropped. Defaults
	// to 10 minutes.
	CleanupInterval time.Duration

	// MaxIdle is how long a peer can be idle before its bucket is dropped.
	// Defaults to 30 minutes.
	MaxIdle time.Duration
}

// New creates a rate limiter. A nil or disabled config yields a limiter
// that admits everything.
func New(config *Config) *Limiter {
	if config == nil {
		config = &Config{}
	}

	burst := config.Burst
	if burst <= 0 {
		burst = int(config.RequestsPerSecond + 0.999)
		if burst < 1 {
			burst = 1
		}
	}
	cleanupInterval := config.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	maxIdle := config.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 30 * time.Minute
	}

	l := &Limiter{
		limiters:    make(map[string]*rate.Limiter),
		lastSeen:    make(map[string]time.Time),
		rate:        rate.Limit(config.RequestsPerSecond),
		burst:       burst,
		enabled:     config.Enabled && config.RequestsPerSecond > 0,
		maxIdle:     maxIdle,
		stopCleanup: make(chan struct{}),
	}
	if l.enabled {
		go l.cleanupWorker(cleanupInterval)
	}
	return l
}

func (l *Limiter) get(peer string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[peer]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[peer] = limiter
	}
	l.lastSeen[peer] = time.Now()
	return limiter
}

// Allow reports whether a request from peer may proceed now.
func (l *Limiter) Allow(peer string) bool {
	if !l.enabled {
		return true
	}
	return l.get(peer).Allow()
}

// Wait blocks until a request from peer may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, peer string) error {
	if !l.enabled {
		return nil
	}
	return l.get(peer).Wait(ctx)
}

// Forget drops the bucket for peer.
func (l *Limiter) Forget(peer string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, peer)
	delete(l.lastSeen, peer)
}

// Peers returns the number of tracked peers.
func (l *Limiter) Peers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// IsEnabled returns whether rate limiting is enabled.
func (l *Limiter) IsEnabled() bool {
	return l.enabled
}

// Stop stops the cleanup worker.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

func (l *Limiter) cleanupWorker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for peer, seen := range l.lastSeen {
		if now.Sub(seen) > l.maxIdle {
			delete(l.limiters, peer)
			delete(l.lastSeen, peer)
		}
	}
}

// PeerID returns the host part of addr, or the full address when it has no
// port.
func PeerID(addr net.Addr) string {
	if addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
