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

// Package client is the remote keystore proxy. A Client implements
// keystore.KeyStore by forwarding every call over a single transport
// connection and waiting for the paired response.
package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/adapters/logger"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/protocol"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/transport"
)

// DefaultServerURL is where keystored listens by default.
const DefaultServerURL = "tcp://localhost:10710"

// Options configures a Client. A nil *Options uses the defaults.
type Options struct {
	Logger logger.Logger

	// Transport tunes the underlying connection.
	Transport *transport.Options

	// CallTimeout, when positive, bounds each round trip. A call that
	// exceeds it closes the connection and fails with a TransportError.
	// Zero waits indefinitely.
	CallTimeout time.Duration
}

// Client is a keystore.KeyStore backed by a remote server. Calls are
// serialized on the connection so responses always pair with requests.
type Client struct {
	mu      sync.Mutex
	conn    transport.Conn
	broken  error
	log     logger.Logger
	timeout time.Duration
}

var _ keystore.KeyStore = (*Client)(nil)

// Dial connects to the server at rawURL (see transport.Dial).
func Dial(ctx context.Context, rawURL string, opts *Options) (*Client, error) {
	var topts *transport.Options
	if opts != nil {
		topts = opts.Transport
	}
	conn, err := transport.Dial(ctx, rawURL, topts)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return New(conn, opts), nil
}

// New wraps an established connection. The Client owns conn from now on.
func New(conn transport.Conn, opts *Options) *Client {
	c := &Client{conn: conn, log: logger.Nop()}
	if opts != nil {
		if opts.Logger != nil {
			c.log = opts.Logger
		}
		c.timeout = opts.CallTimeout
	}
	c.log = c.log.With(logger.Stringer("server", conn.RemoteAddr()))
	return c
}

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection. Calls made afterwards fail with a
// TransportError.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken == nil {
		c.broken = transport.ErrClosed
	}
	return c.conn.Close()
}

// roundTrip sends req and returns the next frame decoded as a response.
// Any transport failure leaves the connection unusable.
func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	frame, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken != nil {
		return nil, &TransportError{Op: req.Op(), Err: c.broken}
	}

	if c.timeout > 0 {
		timer := time.AfterFunc(c.timeout, func() {
			c.conn.Close() //nolint:errcheck
		})
		defer timer.Stop()
	}

	if err := c.conn.WriteMsg(frame); err != nil {
		return nil, c.fail(req.Op(), err)
	}
	reply, err := c.conn.ReadMsg()
	if err != nil {
		return nil, c.fail(req.Op(), err)
	}

	resp, err := protocol.DecodeResponse(reply)
	if err != nil {
		perr := &ProtocolError{Op: req.Op(), Err: err}
		c.log.Warn("undecodable response", logger.Stringer("operation", req.Op()), logger.Error(err))
		return nil, perr
	}
	return resp, nil
}

// fail marks the connection broken. c.mu must be held.
func (c *Client) fail(op protocol.Op, err error) error {
	c.broken = err
	c.conn.Close() //nolint:errcheck
	c.log.Debug("connection failed", logger.Stringer("operation", op), logger.Error(err))
	return &TransportError{Op: op, Err: err}
}

// call performs one typed round trip.
func call[T protocol.Response](c *Client, req protocol.Request) (T, error) {
	var zero T
	resp, err := c.roundTrip(req)
	if err != nil {
		return zero, err
	}
	if resp, err = protocol.NormalizeResponse(resp); err != nil {
		return zero, &ProtocolError{Op: req.Op(), Err: err}
	}
	typed, ok := resp.(T)
	if !ok {
		c.log.Warn("mismatched response",
			logger.Stringer("operation", req.Op()),
			logger.Stringer("response", resp.Op()))
		return zero, &ProtocolError{Op: req.Op(), Got: resp.Op()}
	}
	return typed, nil
}

var errIncomplete = errors.New("response carries neither result nor error")
