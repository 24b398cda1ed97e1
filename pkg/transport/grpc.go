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
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/peer"
)

const (
	grpcServiceName = "keystore.v1.Remote"
	grpcSessionName = "Session"
	grpcSessionPath = "/" + grpcServiceName + "/" + grpcSessionName
)

// rawCodec passes frames through gRPC untouched; message bodies are already
// serialized by the protocol package.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *[]byte:
		return *m, nil
	case []byte:
		return m, nil
	default:
		return nil, fmt.Errorf("transport: raw codec cannot marshal %T", v)
	}
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("transport: raw codec cannot unmarshal into %T", v)
	}
	*m = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string { return "keystore-raw" }

// sessionServer is implemented by GRPCListener.
type sessionServer interface {
	session(stream grpc.ServerStream) error
}

var grpcServiceDesc = grpc.ServiceDesc{
	ServiceName: grpcServiceName,
	HandlerType: (*sessionServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName: grpcSessionName,
			Handler: func(srv any, stream grpc.ServerStream) error {
				return srv.(sessionServer).session(stream)
			},
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

// grpcStream is the subset shared by grpc.ServerStream and grpc.ClientStream.
type grpcStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

type grpcConn struct {
	stream grpcStream
	remote net.Addr
	max    int

	readLock  sync.Mutex
	writeLock sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
	onClose   func()
}

func (c *grpcConn) ReadMsg() ([]byte, error) {
	c.readLock.Lock()
	defer c.readLock.Unlock()

	var msg []byte
	if err := c.stream.RecvMsg(&msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *grpcConn) WriteMsg(msg []byte) error {
	if len(msg) > c.max {
		return ErrFrameTooLarge
	}
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	return c.stream.SendMsg(&msg)
}

func (c *grpcConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.onClose != nil {
			c.onClose()
		}
	})
	return nil
}

func (c *grpcConn) RemoteAddr() net.Addr {
	return c.remote
}

// GRPCListener serves the keystore session stream and yields one Conn per
// stream opened by a client.
type GRPCListener struct {
	server *grpc.Server
	ln     net.Listener
	max    int

	acceptQ   chan Conn
	closed    chan struct{}
	closeOnce sync.Once
}

// ListenGRPC binds address and starts a gRPC server for the session stream.
func ListenGRPC(address string, opts *Options) (*GRPCListener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	limit := opts.maxFrameSize()
	serverOpts := []grpc.ServerOption{
		grpc.ForceServerCodec(rawCodec{}),
		grpc.MaxRecvMsgSize(limit),
		grpc.MaxSendMsgSize(limit),
	}
	if opts != nil {
		serverOpts = append(serverOpts, opts.GRPCServerOptions...)
	}

	l := &GRPCListener{
		server:  grpc.NewServer(serverOpts...),
		ln:      ln,
		max:     limit,
		acceptQ: make(chan Conn),
		closed:  make(chan struct{}),
	}
	l.server.RegisterService(&grpcServiceDesc, l)
	go l.server.Serve(ln) //nolint:errcheck
	return l, nil
}

func (l *GRPCListener) session(stream grpc.ServerStream) error {
	remote := net.Addr(addr{GRPC, "unknown"})
	if p, ok := peer.FromContext(stream.Context()); ok && p.Addr != nil {
		remote = addr{GRPC, p.Addr.String()}
	}
	conn := &grpcConn{
		stream: stream,
		remote: remote,
		max:    l.max,
		done:   make(chan struct{}),
	}

	select {
	case l.acceptQ <- conn:
	case <-l.closed:
		return ErrClosed
	case <-stream.Context().Done():
		return stream.Context().Err()
	}

	// Returning ends the stream, so hold it open until either side closes.
	select {
	case <-conn.done:
	case <-stream.Context().Done():
		conn.Close()
	}
	// No SendMsg may run once the handler has returned.
	conn.writeLock.Lock()
	defer conn.writeLock.Unlock()
	return nil
}

func (l *GRPCListener) Accept() (Conn, error) {
	select {
	case conn := <-l.acceptQ:
		return conn, nil
	case <-l.closed:
		return nil, ErrClosed
	}
}

// Close stops the gRPC server and cancels every open session.
func (l *GRPCListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.server.Stop()
	})
	return nil
}

func (l *GRPCListener) Addr() net.Addr {
	return addr{GRPC, l.ln.Addr().String()}
}

// DialGRPC opens a session stream to a GRPCListener at host:port.
func DialGRPC(ctx context.Context, target string, opts *Options) (Conn, error) {
	limit := opts.maxFrameSize()
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(rawCodec{}),
			grpc.MaxCallRecvMsgSize(limit),
			grpc.MaxCallSendMsgSize(limit),
		),
	}
	if opts != nil {
		dialOpts = append(dialOpts, opts.GRPCDialOptions...)
	}

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("transport: grpc client: %w", err)
	}

	// The stream outlives ctx, which only bounds establishment.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)
	stream, err := cc.NewStream(streamCtx, &grpcServiceDesc.Streams[0], grpcSessionPath)
	if !stop() {
		cancel()
		cc.Close()
		if err == nil {
			err = ctx.Err()
		}
		return nil, err
	}
	if err != nil {
		cancel()
		cc.Close()
		return nil, err
	}

	conn := &grpcConn{
		stream: stream,
		remote: addr{GRPC, target},
		max:    limit,
		done:   make(chan struct{}),
	}
	conn.onClose = func() {
		//nolint:errcheck
		stream.CloseSend()
		cancel()
		cc.Close()
	}
	return conn, nil
}
