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
	"net"
	"sync"

	"github.com/libp2p/go-msgio"
)

type tcpConn struct {
	conn   net.Conn
	reader msgio.Reader
	writer msgio.Writer
	max    int

	closeOnce sync.Once
	closeErr  error
}

// NewTCPConn frames an established stream connection with 4 byte big endian
// length prefixes.
func NewTCPConn(conn net.Conn, opts *Options) Conn {
	limit := opts.maxFrameSize()
	return &tcpConn{
		conn:   conn,
		reader: msgio.NewReaderSize(conn, limit),
		writer: msgio.NewWriter(conn),
		max:    limit,
	}
}

func (c *tcpConn) ReadMsg() ([]byte, error) {
	msg, err := c.reader.ReadMsg()
	if err != nil {
		if errors.Is(err, msgio.ErrMsgTooLarge) {
			return nil, ErrFrameTooLarge
		}
		return nil, err
	}
	return msg, nil
}

func (c *tcpConn) WriteMsg(msg []byte) error {
	if len(msg) > c.max {
		return ErrFrameTooLarge
	}
	return c.writer.WriteMsg(msg)
}

func (c *tcpConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *tcpConn) RemoteAddr() net.Addr {
	return addr{TCP, c.conn.RemoteAddr().String()}
}

type tcpListener struct {
	ln   net.Listener
	opts *Options
}

// ListenTCP binds address and returns a Listener of framed TCP connections.
func ListenTCP(address string, opts *Options) (Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &tcpListener{ln: ln, opts: opts}, nil
}

func (l *tcpListener) Accept() (Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}
	return NewTCPConn(conn, l.opts), nil
}

func (l *tcpListener) Close() error {
	return l.ln.Close()
}

func (l *tcpListener) Addr() net.Addr {
	return addr{TCP, l.ln.Addr().String()}
}

// DialTCP connects to a framed TCP listener.
func DialTCP(ctx context.Context, address string, opts *Options) (Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return NewTCPConn(conn, opts), nil
}
