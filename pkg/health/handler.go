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

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Response is the JSON body served by the probe handlers.
type Response struct {
	Status Status        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// probeTimeout bounds a single probe request.
const probeTimeout = 5 * time.Second

// LiveHandler serves the liveness probe.
func (c *Checker) LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := c.Live(r.Context())
		writeResponse(w, []CheckResult{result})
	})
}

// ReadyHandler serves the readiness probe. It responds with 503 when the
// aggregate status is unhealthy.
func (c *Checker) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		writeResponse(w, c.Ready(ctx))
	})
}

func writeResponse(w http.ResponseWriter, results []CheckResult) {
	resp := Response{Status: AggregateStatus(results), Checks: results}
	w.Header().Set("Content-Type", "application/json")
	if resp.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
