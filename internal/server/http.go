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

package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/adapters/logger"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/correlation"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/metrics"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/transport"
)

// router builds the HTTP side-port: health probes, metrics and, when ws is
// non-nil, the websocket transport at /ws.
func (d *Daemon) router(ws *transport.WebSocketListener) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(correlation.Middleware)
	r.Use(d.loggingMiddleware)
	r.Use(metrics.HTTPMiddleware)

	if d.cfg.Health.Enabled {
		ready := d.health.ReadyHandler()
		r.Method(http.MethodGet, "/health", ready)
		r.Method(http.MethodHead, "/health", ready)
		r.Method(http.MethodGet, "/health/live", d.health.LiveHandler())
		r.Method(http.MethodGet, "/health/ready", ready)
	}
	if d.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, d.cfg.Metrics.Path, promhttp.Handler())
	}
	if ws != nil {
		r.Method(http.MethodGet, "/ws", ws)
	}
	return r
}

func (d *Daemon) loggingMiddleware(next http.Handler) http.Handler {
	slogAdapter, _ := d.log.(*logger.SlogAdapter)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		fields := []logger.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Duration("duration", time.Since(start)),
		}
		if slogAdapter != nil {
			slogAdapter.DebugContext(r.Context(), "Request completed", fields...)
		} else {
			d.log.Debug("Request completed", fields...)
		}
	})
}
