// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sessionsign.
//
// go-sessionsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package health runs the liveness, readiness and startup probes served by
// the sessionsign REST surface.
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
	// StatusHealthy indicates the component is operating normally.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is not functioning.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the component is functioning with reduced capacity.
	StatusDegraded Status = "degraded"
)

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// CheckFunc performs one readiness check. It should return quickly.
type CheckFunc func(ctx context.Context) CheckResult

// Checker holds the registered readiness checks and the startup flag.
//
// Liveness always succeeds while the process runs. Readiness runs every
// registered check. Startup fails until MarkStarted is called.
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

// RegisterCheck adds or replaces the check called name. A nil check is ignored.
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

// MarkStarted marks initialization as complete.
func (c *Checker) MarkStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

// MarkNotStarted clears the startup flag, for example during shutdown.
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
		Message: "Service is alive",
	}
}

// Ready runs every registered check and returns the results ordered by name.
func (c *Checker) Ready(ctx context.Context) []CheckResult {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	if len(checks) == 0 {
		return []CheckResult{{
			Name:    "default",
			Status:  StatusHealthy,
			Message: "No readiness checks configured",
		}}
	}

	results := make([]CheckResult, 0, len(checks))
	for name, check := range checks {
		start := time.Now()
		result := check(ctx)
		result.Latency = time.Since(start)
		if result.Name == "" {
			result.Name = name
		}
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})
	return results
}

// Startup reports whether MarkStarted has been called.
func (c *Checker) Startup(ctx context.Context) CheckResult {
	c.mu.RLock()
	started := c.started
	startTime := c.startTime
	c.mu.RUnlock()

	if !started {
		return CheckResult{
			Name:    "startup",
			Status:  StatusUnhealthy,
			Message: "Service initialization not complete",
		}
	}
	return CheckResult{
		Name:    "startup",
		Status:  StatusHealthy,
		Message: fmt.Sprintf("Service fully initialized (uptime: %s)", time.Since(startTime).Round(time.Second)),
	}
}

// Names returns the sorted names of all registered checks.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
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
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}
