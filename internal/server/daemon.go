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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/jeremyhahn/go-tcp-keystore/internal/config"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/adapters/logger"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/backend/memory"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/health"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/metrics"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/ratelimit"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/transport"
)

// shutdownTimeout bounds the graceful stop of the HTTP side-port.
const shutdownTimeout = 10 * time.Second

// StartupError is returned when the daemon cannot start.
type StartupError struct {
	// Stage is "config", "provision" or "bind".
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup %s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Daemon wires the backend, the connection server, the enabled listeners
// and the HTTP side-port from a Config.
type Daemon struct {
	cfg     *config.Config
	log     logger.Logger
	backend *memory.Backend
	server  *Server
	health  *health.Checker
	limiter *ratelimit.Limiter

	mu        sync.Mutex
	started   bool
	listeners []transport.Listener
	httpLn    net.Listener
	httpSrv   *http.Server
}

// NewDaemon creates a daemon. The backend is empty until Start.
func NewDaemon(cfg *config.Config, log logger.Logger) (*Daemon, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &StartupError{Stage: "config", Err: err}
	}
	if log == nil {
		log = logger.Nop()
	}
	keyTypes, err := cfg.KeyTypeIDs()
	if err != nil {
		return nil, &StartupError{Stage: "config", Err: err}
	}

	backend := memory.New(&memory.Config{KeyTypes: keyTypes, Logger: log})
	limiter := ratelimit.New(&ratelimit.Config{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})
	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	checker := health.NewChecker()
	checker.RegisterCheck("keystore", health.KeyCountCheck(backend.Len))

	return &Daemon{
		cfg:     cfg,
		log:     log,
		backend: backend,
		server:  New(backend, &Options{Logger: log, Limiter: limiter}),
		health:  checker,
		limiter: limiter,
	}, nil
}

// Backend returns the daemon's key store.
func (d *Daemon) Backend() *memory.Backend {
	return d.backend
}

// Health returns the daemon's health checker.
func (d *Daemon) Health() *health.Checker {
	return d.health
}

// Start provisions the backend and binds every enabled listener. A
// provisioning failure is logged and only returned when
// provision.fail_on_error is set. Bind failures release whatever was
// already bound.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil
	}

	if d.cfg.Provision.Enabled {
		if err := Provision(d.backend); err != nil {
			d.log.Error("Provisioning failed", logger.Error(err))
			if d.cfg.Provision.FailOnError {
				return &StartupError{Stage: "provision", Err: err}
			}
		} else {
			d.log.Info("Provisioned development keys", logger.Int("keys", d.backend.Len()))
		}
	}

	if err := d.bind(); err != nil {
		d.release()
		return &StartupError{Stage: "bind", Err: err}
	}
	d.started = true
	d.health.MarkStarted()
	return nil
}

func (d *Daemon) bind() error {
	opts := &transport.Options{
		MaxFrameSize: d.cfg.Limits.MaxFrameSize,
	}
	if d.cfg.Metrics.Enabled {
		opts.GRPCServerOptions = []grpc.ServerOption{
			grpc.ChainStreamInterceptor(metrics.GRPCStreamServerInterceptor()),
		}
	}

	if d.cfg.Protocols.TCP {
		ln, err := transport.ListenTCP(d.cfg.TCPAddress(), opts)
		if err != nil {
			return fmt.Errorf("tcp %s: %w", d.cfg.TCPAddress(), err)
		}
		d.listeners = append(d.listeners, ln)
	}
	if d.cfg.Protocols.GRPC {
		ln, err := transport.ListenGRPC(d.cfg.GRPCAddress(), opts)
		if err != nil {
			return fmt.Errorf("grpc %s: %w", d.cfg.GRPCAddress(), err)
		}
		d.listeners = append(d.listeners, ln)
	}
	if !d.cfg.HTTPEnabled() {
		return nil
	}

	ln, err := net.Listen("tcp", d.cfg.HTTPAddress())
	if err != nil {
		return fmt.Errorf("http %s: %w", d.cfg.HTTPAddress(), err)
	}
	d.httpLn = ln

	var ws *transport.WebSocketListener
	if d.cfg.Protocols.WebSocket {
		ws = transport.NewWebSocketListener(ln.Addr().String(), opts)
		d.listeners = append(d.listeners, ws)
	}
	d.httpSrv = &http.Server{
		Handler:           d.router(ws),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func (d *Daemon) release() {
	for _, l := range d.listeners {
		l.Close()
	}
	d.listeners = nil
	if d.httpLn != nil {
		d.httpLn.Close()
		d.httpLn = nil
	}
	d.httpSrv = nil
}

// Addr returns the bound address of the named listener: "tcp", "grpc", "ws"
// or "http". It returns nil before Start or when the listener is disabled.
func (d *Daemon) Addr(name string) net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	if name == "http" {
		if d.httpLn == nil {
			return nil
		}
		return d.httpLn.Addr()
	}
	for _, l := range d.listeners {
		if l.Addr().Network() == name {
			return l.Addr()
		}
	}
	return nil
}

// Run starts the daemon if needed and serves until ctx is cancelled or a
// listener fails, then shuts everything down.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return err
	}

	d.mu.Lock()
	listeners := d.listeners
	httpLn, httpSrv := d.httpLn, d.httpSrv
	d.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		g.Go(func() error {
			if err := d.server.Serve(l); err != nil && !errors.Is(err, ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", l.Addr().Network(), err)
			}
			return nil
		})
	}
	if httpSrv != nil {
		g.Go(func() error {
			d.log.Info("HTTP side-port listening", logger.String("address", httpLn.Addr().String()))
			if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http: %w", err)
			}
			return nil
		})
	}
	if d.cfg.Metrics.Enabled {
		collector := metrics.NewResourceCollector(d.cfg.Metrics.Interval, d.backend.Len)
		g.Go(func() error { return collector.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		d.shutdown(httpSrv)
		return nil
	})

	err := g.Wait()
	d.log.Info("Server shutdown complete")
	return err
}

func (d *Daemon) shutdown(httpSrv *http.Server) {
	d.log.Info("Shutting down server...")
	d.health.MarkNotStarted()

	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			d.log.Warn("HTTP shutdown timeout exceeded", logger.Error(err))
		}
	}
	if err := d.server.Close(); err != nil {
		d.log.Error("Error closing server", logger.Error(err))
	}
	d.limiter.Stop()
}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. A
// second signal exits the process.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		<-sigCh
		os.Exit(1)
	}()
	return ctx
}
