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

package rest

import (
	"net/http"

	"github.com/jeremyhahn/go-sessionsign/pkg/health"
)

// LivenessHandler handles GET /health/live requests. It fails only when the
// service must be restarted.
func (h *HandlerContext) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	if h.HealthChecker == nil {
		writeJSON(h.logger, w, HealthCheckResponse{
			Status:  health.StatusHealthy,
			Message: "Service is alive",
		}, http.StatusOK)
		return
	}

	result := h.HealthChecker.Live(r.Context())
	writeJSON(h.logger, w, HealthCheckResponse{
		Status:  result.Status,
		Message: result.Message,
	}, probeStatusCode(result.Status))
}

// ReadinessHandler handles GET /health/ready requests. A degraded service
// still reports 200 since it keeps serving traffic.
func (h *HandlerContext) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if h.HealthChecker == nil {
		writeJSON(h.logger, w, HealthCheckResponse{
			Status:  health.StatusHealthy,
			Message: "Service is ready",
		}, http.StatusOK)
		return
	}

	results := h.HealthChecker.Ready(r.Context())
	overall := health.AggregateStatus(results)

	resp := HealthCheckResponse{
		Status: overall,
		Checks: results,
	}
	switch overall {
	case health.StatusHealthy:
		resp.Message = "All checks passed"
	case health.StatusDegraded:
		resp.Message = "Service is degraded"
	case health.StatusUnhealthy:
		resp.Message = "One or more checks failed"
	}

	writeJSON(h.logger, w, resp, probeStatusCode(overall))
}

// StartupHandler handles GET /health/startup requests.
func (h *HandlerContext) StartupHandler(w http.ResponseWriter, r *http.Request) {
	if h.HealthChecker == nil {
		writeJSON(h.logger, w, HealthCheckResponse{
			Status:  health.StatusHealthy,
			Message: "Service has started",
		}, http.StatusOK)
		return
	}

	result := h.HealthChecker.Startup(r.Context())
	writeJSON(h.logger, w, HealthCheckResponse{
		Status:  result.Status,
		Message: result.Message,
	}, probeStatusCode(result.Status))
}

func probeStatusCode(status health.Status) int {
	if status == health.StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
