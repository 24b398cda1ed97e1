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
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	name     string
	listener Listener
	url      string
}

func newHarnesses(t *testing.T, opts *Options) []harness {
	t.Helper()

	tcpLn, err := ListenTCP("127.0.0.1:0", opts)
	require.NoError(t, err)
	t.Cleanup(func() { tcpLn.Close() })

	wsLn := NewWebSocketListener("test", opts)
	httpSrv := httptest.NewServer(wsLn)
	t.Cleanup(func() {
		wsLn.Close()
		httpSrv.Close()
	})

	grpcLn, err := ListenGRPC("127.0.0.1:0", opts)
	require.NoError(t, err)
	t.Cleanup(func() { grpcLn.Close() })

	return []harness{
		{TCP, tcpLn, "tcp://" + tcpLn.Addr().String()},
		{WebSocket, wsLn, "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"},
		{GRPC, grpcLn, "grpc://" + grpcLn.Addr().String()},
	}
}

// connect dials h and returns both ends of the connection.
func connect(t *testing.T, h harness, opts *Options) (client, server Conn) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan Conn, 1)
	errs := make(chan error, 1)
	go func() {
		c, err := h.listener.Accept()
		if err != nil {
			errs <- err
			return
		}
		accepted <- c
	}()

	client, err := Dial(ctx, h.url, opts)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	// gRPC streams are only delivered once the first frame is sent.
	if h.name == GRPC {
		require.NoError(t, client.WriteMsg([]byte("hello")))
	}

	select {
	case server = <-accepted:
	case err := <-errs:
		t.Fatalf("accept: %v", err)
	case <-ctx.Done():
		t.Fatal("accept timed out")
	}
	t.Cleanup(func() { server.Close() })

	if h.name == GRPC {
		msg, err := server.ReadMsg()
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), msg)
	}
	return client, server
}

func TestEcho(t *testing.T) {
	for _, h := range newHarnesses(t, nil) {
		t.Run(h.name, func(t *testing.T) {
			client, server := connect(t, h, nil)
			assert.Equal(t, h.name, server.RemoteAddr().Network())

			go func() {
				for {
					msg, err := server.ReadMsg()
					if err != nil {
						return
					}
					if err := server.WriteMsg(msg); err != nil {
						return
					}
				}
			}()

			for _, size := range []int{1, 7, 4096, 100000} {
				msg := bytes.Repeat([]byte{byte(size)}, size)
				require.NoError(t, client.WriteMsg(msg))
				got, err := client.ReadMsg()
				require.NoError(t, err)
				assert.Equal(t, msg, got)
			}
		})
	}
}

func TestFrameBoundaries(t *testing.T) {
	for _, h := range newHarnesses(t, nil) {
		t.Run(h.name, func(t *testing.T) {
			client, server := connect(t, h, nil)

			frames := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
			for _, f := range frames {
				require.NoError(t, client.WriteMsg(f))
			}
			for _, f := range frames {
				got, err := server.ReadMsg()
				require.NoError(t, err)
				assert.Equal(t, f, got)
			}
		})
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	opts := &Options{MaxFrameSize: 64}
	for _, h := range newHarnesses(t, opts) {
		t.Run(h.name, func(t *testing.T) {
			client, _ := connect(t, h, opts)
			err := client.WriteMsg(make([]byte, 65))
			assert.ErrorIs(t, err, ErrFrameTooLarge)
		})
	}
}

func TestTCPReadFrameTooLarge(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0", &Options{MaxFrameSize: 16})
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		_, err = conn.ReadMsg()
		done <- err
	}()

	client, err := DialTCP(context.Background(), ln.Addr().String(), nil)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.WriteMsg(make([]byte, 32)))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrFrameTooLarge)
	case <-time.After(5 * time.Second):
		t.Fatal("read did not fail")
	}
}

func TestPeerCloseUnblocksRead(t *testing.T) {
	for _, h := range newHarnesses(t, nil) {
		t.Run(h.name, func(t *testing.T) {
			client, server := connect(t, h, nil)

			readErr := make(chan error, 1)
			go func() {
				_, err := client.ReadMsg()
				readErr <- err
			}()

			time.Sleep(50 * time.Millisecond)
			require.NoError(t, server.Close())

			select {
			case err := <-readErr:
				assert.Error(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("client read still blocked after server close")
			}
		})
	}
}

func TestListenerClose(t *testing.T) {
	for _, h := range newHarnesses(t, nil) {
		t.Run(h.name, func(t *testing.T) {
			require.NoError(t, h.listener.Close())
			_, err := h.listener.Accept()
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestDial(t *testing.T) {
	_, err := Dial(context.Background(), "udp://127.0.0.1:1", nil)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	ln, err := ListenTCP("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer ln.Close()

	conn, err := Dial(context.Background(), ln.Addr().String(), nil)
	require.NoError(t, err)
	conn.Close()
	assert.NoError(t, conn.Close())
}

func TestRawCodec(t *testing.T) {
	codec := rawCodec{}
	in := []byte{1, 2, 3}

	out, err := codec.Marshal(&in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	var back []byte
	require.NoError(t, codec.Unmarshal(out, &back))
	assert.Equal(t, in, back)
	out[0] = 9
	assert.Equal(t, byte(1), back[0])

	_, err = codec.Marshal("nope")
	assert.Error(t, err)
	assert.Error(t, codec.Unmarshal(out, new(string)))
}
