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

// Package server accepts keystore connections and serves each one with its
// own worker, dispatching decoded requests against a shared backend.
package server

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/adapters/logger"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/correlation"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/metrics"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/protocol"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/ratelimit"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/transport"
)

// ErrServerClosed is returned by Serve after Close.
var ErrServerClosed = errors.New("server: closed")

// Options configures a Server.
type Options struct {
	// Logger defaults to logger.Nop().
	Logger logger.Logger

	// Limiter throttles requests per peer. Nil admits everything.
	Limiter *ratelimit.Limiter
}

// Server owns the connection workers of one or more listeners. Every worker
// shares the same KeyStore.
type Server struct {
	ks      keystore.KeyStore
	log     logger.Logger
	limiter *ratelimit.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	listeners map[transport.Listener]struct{}
	conns     map[transport.Conn]struct{}
	wg        sync.WaitGroup
}

// New creates a Server dispatching to ks.
func New(ks keystore.KeyStore, opts *Options) *Server {
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.New(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		ks:        ks,
		log:       log,
		limiter:   limiter,
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[transport.Listener]struct{}),
		conns:     make(map[transport.Conn]struct{}),
	}
}

// Serve accepts connections from l until l fails or the server is closed,
// spawning one worker per connection. It always closes l before returning.
func (s *Server) Serve(l transport.Listener) error {
	if !s.trackListener(l, true) {
		l.Close()
		return ErrServerClosed
	}
	defer s.trackListener(l, false)
	defer l.Close()

	name := l.Addr().Network()
	s.log.Info("Accepting connections",
		logger.String("transport", name),
		logger.String("address", l.Addr().String()))

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if errors.Is(err, transport.ErrClosed) {
				return nil
			}
			return err
		}
		if !s.trackConn(conn, true) {
			conn.Close()
			return ErrServerClosed
		}
		go func() {
			defer s.wg.Done()
			defer s.trackConn(conn, false)
			s.ServeConn(name, conn)
		}()
	}
}

// ServeConn runs the request loop for one connection until the peer
// disconnects, a frame cannot be decoded or a response cannot be written.
// conn is closed on return.
func (s *Server) ServeConn(transportName string, conn transport.Conn) {
	tracker := metrics.NewConnectionTracker(transportName)
	defer tracker.Close()
	defer conn.Close()

	session := correlation.NewID()
	ctx := correlation.WithSessionID(s.ctx, session)
	peer := ratelimit.PeerID(conn.RemoteAddr())
	log := s.log.With(
		logger.String("session", session),
		logger.String("transport", transportName),
		logger.Stringer("remote", conn.RemoteAddr()))

	log.Debug("Connection opened")
	defer func() {
		log.Debug("Connection closed", logger.Duration("duration", tracker.Duration()))
	}()

	for {
		frame, err := conn.ReadMsg()
		if err != nil {
			s.readFailed(log, transportName, err)
			return
		}

		req, err := protocol.DecodeRequest(frame)
		if err != nil {
			reason := metrics.ReasonMalformed
			if errors.Is(err, protocol.ErrUnknownOperation) {
				reason = metrics.ReasonUnknownOp
			}
			metrics.RecordProtocolError(transportName, reason)
			log.Warn("Closing connection on undecodable request", logger.Error(err))
			return
		}

		if err := s.limiter.Wait(ctx, peer); err != nil {
			return
		}

		start := time.Now()
		resp, err := protocol.Dispatch(s.ks, req)
		if err != nil {
			log.Error("Dispatch failed", logger.Stringer("op", req.Op()), logger.Error(err))
			return
		}
		metrics.RecordRequest(req.Op().String(), resp.Err(), time.Since(start).Seconds())
		if rerr := resp.Err(); rerr != nil {
			log.Debug("Request failed", logger.Stringer("op", req.Op()), logger.Error(rerr))
		}

		out, err := protocol.EncodeResponse(resp)
		if err != nil {
			log.Error("Failed to encode response", logger.Stringer("op", req.Op()), logger.Error(err))
			return
		}
		if err := conn.WriteMsg(out); err != nil {
			log.Debug("Write failed", logger.Error(err))
			return
		}
	}
}

func (s *Server) readFailed(log logger.Logger, transportName string, err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, transport.ErrClosed):
	case errors.Is(err, transport.ErrFrameTooLarge):
		metrics.RecordProtocolError(transportName, metrics.ReasonFrameTooBig)
		log.Warn("Closing connection on oversized frame", logger.Error(err))
	default:
		if !s.isClosed() {
			log.Debug("Read failed", logger.Error(err))
		}
	}
}

// Close stops every listener, closes every open connection and waits for
// the workers to exit. In-flight backend calls run to completion.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	for l := range s.listeners {
		l.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// ActiveConnections returns the number of open connections.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) trackListener(l transport.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed {
			return false
		}
		s.listeners[l] = struct{}{}
	} else {
		delete(s.listeners, l)
	}
	return true
}

func (s *Server) trackConn(c transport.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed {
			return false
		}
		s.conns[c] = struct{}{}
		s.wg.Add(1)
	} else {
		delete(s.conns, c)
	}
	return true
}
