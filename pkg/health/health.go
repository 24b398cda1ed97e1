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

// Package health implements liveness and readiness probes for the keystore
// daemon.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// CheckFunc performs a health check. It should return quickly.
type CheckFunc func(ctx context.Context) CheckResult

// Checker manages health checks following Kubernetes probe semantics.
// The service is live as long as the process runs. It is ready once
// MarkStarted has been called and every registered check passes.
type Checker struct {
	mu        sync.RWMutex
	started   bool
	startTime time.Time
	checks    map[string]CheckFunc
}

// NewChecker creates a new health checker.
func NewChecker() *Checker {
	return &Checker{
		checks:    make(map[string]CheckFunc),
		startTime: time.Now(),
	}
}

// RegisterCheck adds a health check with the given name, replacing any
// existing check of that name. A nil check is ignored.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	if check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes a health check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// MarkStarted marks startup as complete. The daemon calls it once the
// backend is provisioned and all listeners are bound.
func (c *Checker) MarkStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

// MarkNotStarted clears the started flag, used during shutdown.
func (c *Checker) MarkNotStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
}

// Live performs a liveness check.
func (c *Checker) Live(ctx context.Context) CheckResult {
	return CheckResult{
		Name:    "liveness",
		Status:  StatusHealthy,
		Message: fmt.Sprintf("uptime %s", c.Uptime().Round(time.Second)),
	}
}

// Ready runs the startup check followed by every registered check, ordered
// by name.
func (c *Checker) Ready(ctx context.Context) []CheckResult {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		checks[name] = check
	}
	c.mu.RUnlock()
	sort.Strings(names)

	results := make([]CheckResult, 0, len(names)+1)
	results = append(results, c.Startup(ctx))
	for _, name := range names {
		start := time.Now()
		result := checks[name](ctx)
		result.Latency = time.Since(start)
		if result.Name == "" {
			result.Name = name
		}
		results = append(results, result)
	}
	return results
}

// Startup reports whether MarkStarted has been called.
func (c *Checker) Startup(ctx context.Context) CheckResult {
	if !c.IsStarted() {
		return CheckResult{
			Name:    "startup",
			Status:  StatusUnhealthy,
			Message: "initialization not complete",
		}
	}
	return CheckResult{
		Name:    "startup",
		Status:  StatusHealthy,
		Message: "initialized",
	}
}

// Checks returns the names of all registered checks, sorted.
func (c *Checker) Checks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsReady returns true if startup completed and no check is unhealthy.
func (c *Checker) IsReady(ctx context.Context) bool {
	return AggregateStatus(c.Ready(ctx)) != StatusUnhealthy
}

// IsStarted returns true if the service has been marked as started.
func (c *Checker) IsStarted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Uptime returns how long the service has been running.
func (c *Checker) Uptime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.startTime)
}

// AggregateStatus returns unhealthy if any result is unhealthy, degraded if
// any is degraded, and healthy otherwise.
func AggregateStatus(results []CheckResult) Status {
	hasDegraded := false
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			hasDegraded = true
		}
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// KeyCountCheck reports degraded when the backend holds no keys. An empty
// keystore still serves requests, so it never reports unhealthy.
func KeyCountCheck(count func() int) CheckFunc {
	return func(ctx context.Context) CheckResult {
		n := count()
		if n == 0 {
			return CheckResult{Name: "keystore", Status: StatusDegraded, Message: "no keys held"}
		}
		return CheckResult{Name: "keystore", Status: StatusHealthy, Message: fmt.Sprintf("%d keys held", n)}
	}
}

// ErrorCheck adapts a function returning an error into a CheckFunc.
func ErrorCheck(name string, fn func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) CheckResult {
		if err := fn(ctx); err != nil {
			return CheckResult{Name: name, Status: StatusUnhealthy, Error: err.Error()}
		}
		return CheckResult{Name: name, Status: StatusHealthy}
	}
}
