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
	"context"
	"runtime"
	"time"
)

// ResourceCollector periodically refreshes process gauges and, when a key
// counter is set, the number of keys held.
type ResourceCollector struct {
	interval time.Duration
	started  time.Time
	keys     func() int
}

// NewResourceCollector creates a collector. keys may be nil.
func NewResourceCollector(interval time.Duration, keys func() int) *ResourceCollector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ResourceCollector{interval: interval, started: time.Now(), keys: keys}
}

// Run collects until ctx is cancelled.
func (rc *ResourceCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	rc.Collect()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rc.Collect()
		}
	}
}

// Collect performs a single collection.
func (rc *ResourceCollector) Collect() {
	if !IsEnabled() {
		return
	}
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	MemoryAllocBytes.Set(float64(memStats.Alloc))

	ServerUptime.Set(time.Since(rc.started).Seconds())
	if rc.keys != nil {
		KeysHeld.Set(float64(rc.keys()))
	}
}
