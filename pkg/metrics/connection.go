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

package metrics

import (
	"sync"
	"time"
)

// ConnectionTracker counts one client connection for its lifetime.
//
// Usage:
//
//	tracker := metrics.NewConnectionTracker("tcp")
//	defer tracker.Close()
type ConnectionTracker struct {
	transport string
	started   time.Time
	counted   bool
	once      sync.Once
}

// NewConnectionTracker increments the active and total connection counters.
func NewConnectionTracker(transport string) *ConnectionTracker {
	ct := &ConnectionTracker{transport: transport, started: time.Now()}
	if IsEnabled() {
		ActiveConnections.WithLabelValues(transport).Inc()
		ConnectionsTotal.WithLabelValues(transport).Inc()
		ct.counted = true
	}
	return ct
}

// Close decrements the active connection gauge. Calling it more than once
// has no further effect.
func (ct *ConnectionTracker) Close() {
	ct.once.Do(func() {
		if ct.counted {
			ActiveConnections.WithLabelValues(ct.transport).Dec()
		}
	})
}

// Duration returns the time elapsed since the connection was accepted.
func (ct *ConnectionTracker) Duration() time.Duration {
	return time.Since(ct.started)
}
