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

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsBufferSize = 4096

type wsConn struct {
	ws  *websocket.Conn
	max int

	// gorilla allows one concurrent reader and one concurrent writer.
	readLock  sync.Mutex
	writeLock sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

func newWSConn(ws *websocket.Conn, limit int) *wsConn {
	ws.SetReadLimit(int64(limit))
	return &wsConn{ws: ws, max: limit}
}

func (c *wsConn) ReadMsg() ([]byte, error) {
	c.readLock.Lock()
	defer c.readLock.Unlock()

	t, b, err := c.ws.ReadMessage()
	if err != nil {
		if errors.Is(err, websocket.ErrReadLimit) {
			return nil, ErrFrameTooLarge
		}
		return nil, err
	}
	if t != websocket.BinaryMessage {
		return nil, fmt.Errorf("transport: unexpected websocket message type %d", t)
	}
	return b, nil
}

func (c *wsConn) WriteMsg(msg []byte) error {
	if len(msg) > c.max {
		return ErrFrameTooLarge
	}
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, msg)
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeLock.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "EOF")
		//nolint:errcheck
		c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeLock.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *wsConn) RemoteAddr() net.Addr {
	return addr{WebSocket, c.ws.RemoteAddr().String()}
}

// WebSocketListener is an http.Handler that upgrades requests to websocket
// connections and hands them out through Accept. Mount it on an existing
// HTTP server.
type WebSocketListener struct {
	upgrader websocket.Upgrader
	addr     net.Addr
	max      int

	acceptQ   chan Conn
	closed    chan struct{}
	closeOnce sync.Once
}

var _ http.Handler = (*WebSocketListener)(nil)

// NewWebSocketListener returns a listener reporting address as its Addr.
func NewWebSocketListener(address string, opts *Options) *WebSocketListener {
	return &WebSocketListener{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsBufferSize,
			WriteBufferSize: wsBufferSize,
		},
		addr:    addr{WebSocket, address},
		max:     opts.maxFrameSize(),
		acceptQ: make(chan Conn),
		closed:  make(chan struct{}),
	}
}

func (l *WebSocketListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed.", http.StatusMethodNotAllowed)
		return
	}
	select {
	case <-l.closed:
		http.Error(w, "Listener closed", http.StatusServiceUnavailable)
		return
	default:
	}

	// Upgrade writes the error response itself.
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := newWSConn(ws, l.max)
	select {
	case l.acceptQ <- conn:
	case <-l.closed:
		conn.Close()
	case <-r.Context().Done():
		conn.Close()
	}
}

func (l *WebSocketListener) Accept() (Conn, error) {
	select {
	case conn := <-l.acceptQ:
		return conn, nil
	case <-l.closed:
		return nil, ErrClosed
	}
}

func (l *WebSocketListener) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

func (l *WebSocketListener) Addr() net.Addr {
	return l.addr
}

// DialWebSocket connects to a WebSocketListener at a ws:// URL.
func DialWebSocket(ctx context.Context, rawURL string, opts *Options) (Conn, error) {
	dialer := websocket.Dialer{
		ReadBufferSize:   wsBufferSize,
		WriteBufferSize:  wsBufferSize,
		HandshakeTimeout: 10 * time.Second,
	}
	ws, resp, err := dialer.DialContext(ctx, rawURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return newWSConn(ws, opts.maxFrameSize()), nil
}
