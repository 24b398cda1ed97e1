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

package ratelimit

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabled(t *testing.T) {
	for _, cfg := range []*Config{nil, {}, {Enabled: true}} {
		l := New(cfg)
		assert.False(t, l.IsEnabled())
		for i := 0; i < 100; i++ {
			assert.True(t, l.Allow("peer"))
		}
		assert.NoError(t, l.Wait(context.Background(), "peer"))
		assert.Zero(t, l.Peers())
		l.Stop()
	}
}

func TestAllowBurst(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerSecond: 1, Burst: 3})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("peer"), "request %d", i)
	}
	assert.False(t, l.Allow("peer"))
}

func TestPerPeer(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerSecond: 1, Burst: 1})
	defer l.Stop()

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.Peers())

	l.Forget("a")
	assert.Equal(t, 1, l.Peers())
	assert.True(t, l.Allow("a"))
}

func TestWaitHonorsContext(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerSecond: 0.1, Burst: 1})
	defer l.Stop()

	require.NoError(t, l.Wait(context.Background(), "peer"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "peer"))
}

func TestCleanup(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerSecond: 10, MaxIdle: time.Minute})
	defer l.Stop()

	l.Allow("old")
	l.cleanup(time.Now())
	assert.Equal(t, 1, l.Peers())

	l.cleanup(time.Now().Add(2 * time.Minute))
	assert.Zero(t, l.Peers())
}

func TestDefaultBurst(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerSecond: 2.5})
	defer l.Stop()
	assert.Equal(t, 3, l.burst)
}

func TestPeerID(t *testing.T) {
	assert.Equal(t, "127.0.0.1", PeerID(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4000}))
	assert.Equal(t, "pipe", PeerID(&net.UnixAddr{Name: "pipe", Net: "unix"}))
	assert.Equal(t, "unknown", PeerID(nil))
}
