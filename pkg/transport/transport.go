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

// Package transport provides message oriented connections used to carry
// keystore frames. Each frame written with WriteMsg arrives as exactly one
// ReadMsg on the peer. Three transports are available: raw TCP with length
// prefixed frames, websocket binary messages and a gRPC bidirectional
// stream.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"google.golang.org/grpc"
)

// DefaultMaxFrameSize bounds a single frame in either direction.
const DefaultMaxFrameSize = 4 << 20

// Transport names, also used as URL schemes and metric labels.
const (
	TCP       = "tcp"
	WebSocket = "ws"
	GRPC      = "grpc"
)

var (
	// ErrClosed is returned by operations on a closed connection or listener.
	ErrClosed = errors.New("transport: closed")

	// ErrFrameTooLarge is returned for frames above the configured limit.
	ErrFrameTooLarge = errors.New("transport: frame too large")

	// ErrUnsupportedScheme is returned by Dial for unknown URL schemes.
	ErrUnsupportedScheme = errors.New("transport: unsupported scheme")
)

// Conn is a bidirectional, message oriented connection. ReadMsg and WriteMsg
// may be called concurrently with each other but not with themselves.
type Conn interface {
	ReadMsg() ([]byte, error)
	WriteMsg(msg []byte) error
	Close() error
	RemoteAddr() net.Addr
}

// Listener accepts Conns.
type Listener interface {
	Accept() (Conn, error)
	Close() error
	// Addr reports the bound address; Network() is the transport name.
	Addr() net.Addr
}

// Options tunes transports. A nil *Options uses the defaults.
type Options struct {
	// MaxFrameSize defaults to DefaultMaxFrameSize.
	MaxFrameSize int

	// GRPCServerOptions are appended to the options of gRPC listeners.
	GRPCServerOptions []grpc.ServerOption

	// GRPCDialOptions are appended to the options of gRPC clients.
	GRPCDialOptions []grpc.DialOption
}

func (o *Options) maxFrameSize() int {
	if o == nil || o.MaxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}
	return o.MaxFrameSize
}

// Dial connects to a keystore server. The scheme of rawURL selects the
// transport: tcp://host:port, ws://host:port/path or grpc://host:port. A
// bare host:port dials TCP.
func Dial(ctx context.Context, rawURL string, opts *Options) (Conn, error) {
	if !strings.Contains(rawURL, "://") {
		return DialTCP(ctx, rawURL, opts)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case TCP:
		return DialTCP(ctx, u.Host, opts)
	case WebSocket:
		return DialWebSocket(ctx, rawURL, opts)
	case GRPC:
		return DialGRPC(ctx, u.Host, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// addr is a net.Addr tagged with the transport name.
type addr struct{ network, address string }

func (a addr) Network() string { return a.network }
func (a addr) String() string  { return a.address }
