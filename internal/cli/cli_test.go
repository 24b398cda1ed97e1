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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-tcp-keystore/internal/server"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/backend/memory"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/crypto"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/transport"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := run(t, append([]string{"-o", "json"}, args...)...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

type keysOutput struct {
	Keys []keyJSON `json:"keys"`
}

func startServer(t *testing.T) string {
	t.Helper()
	ln, err := transport.ListenTCP("127.0.0.1:0", nil)
	require.NoError(t, err)
	srv := server.New(memory.New(nil), nil)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()
	t.Cleanup(func() {
		srv.Close()
		<-done
	})
	return "tcp://" + ln.Addr().String()
}

func TestVersion(t *testing.T) {
	var v map[string]string
	runJSON(t, &v, "version")
	assert.Equal(t, Version, v["version"])

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "keystore version")
}

func TestLocalKeysAreProvisioned(t *testing.T) {
	var out keysOutput
	runJSON(t, &out, "--local", "keys", "babe")
	require.Len(t, out.Keys, 3)
	assert.Equal(t, "sr25519", out.Keys[0].Scheme)
	assert.Equal(t, "ed25519", out.Keys[1].Scheme)
	assert.Equal(t, "ecdsa", out.Keys[2].Scheme)

	var again keysOutput
	runJSON(t, &again, "--local", "keys", "babe")
	assert.Equal(t, out, again)

	var pubs keysOutput
	runJSON(t, &pubs, "--local", "public-keys", "babe", "--scheme", "ed25519")
	require.Len(t, pubs.Keys, 1)
	assert.Equal(t, out.Keys[1], pubs.Keys[0])
}

func TestLocalGenerateDeterministic(t *testing.T) {
	var first, second keyJSON
	runJSON(t, &first, "--local", "generate", "acco", "--scheme", "ed25519", "--seed", "//Alice")
	runJSON(t, &second, "--local", "generate", "acco", "--scheme", "ed25519", "--seed", "//Alice")
	assert.Equal(t, first, second)
	assert.Equal(t, "ed25519", first.Scheme)

	var random keyJSON
	runJSON(t, &random, "--local", "generate", "acco")
	assert.Equal(t, "sr25519", random.Scheme)
	assert.NotEqual(t, first.Public, random.Public)
}

func TestLocalSignAndVerify(t *testing.T) {
	var keys keysOutput
	runJSON(t, &keys, "--local", "keys", "gran")
	require.NotEmpty(t, keys.Keys)

	for _, k := range keys.Keys {
		handle := k.Scheme + ":" + k.Public
		t.Run(k.Scheme, func(t *testing.T) {
			var sig struct {
				Key       keyJSON `json:"key"`
				Signature string  `json:"signature"`
			}
			runJSON(t, &sig, "--local", "sign", "gran", "hello", "-k", handle)
			assert.Equal(t, k, sig.Key)

			var valid map[string]bool
			runJSON(t, &valid, "verify", handle, "hello", sig.Signature)
			assert.True(t, valid["valid"])

			_, err := run(t, "verify", handle, "goodbye", sig.Signature)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestLocalSignModes(t *testing.T) {
	var keys keysOutput
	runJSON(t, &keys, "--local", "keys", "imon")
	present := keys.Keys[0].Scheme + ":" + keys.Keys[0].Public
	missing := "sr25519:0x" + strings.Repeat("ab", 32)

	var anyOut struct {
		Key keyJSON `json:"key"`
	}
	runJSON(t, &anyOut, "--local", "sign", "imon", "msg", "--mode", "any", "-k", missing, "-k", present)
	assert.Equal(t, keys.Keys[0], anyOut.Key)

	var all struct {
		Results []struct {
			Key       keyJSON `json:"key"`
			Signature string  `json:"signature"`
			Error     string  `json:"error"`
		} `json:"results"`
	}
	runJSON(t, &all, "--local", "sign", "imon", "msg", "--mode", "all", "-k", present, "-k", missing)
	require.Len(t, all.Results, 2)
	assert.NotEmpty(t, all.Results[0].Signature)
	assert.Empty(t, all.Results[0].Error)
	assert.Empty(t, all.Results[1].Signature)
	assert.NotEmpty(t, all.Results[1].Error)

	_, err := run(t, "--local", "sign", "imon", "msg", "-k", missing)
	assert.ErrorIs(t, err, keystore.ErrPairNotFound)

	_, err = run(t, "--local", "sign", "imon", "msg", "--mode", "any")
	assert.ErrorIs(t, err, keystore.ErrPairNotFound)
}

func TestLocalHasAndSupported(t *testing.T) {
	var keys keysOutput
	runJSON(t, &keys, "--local", "keys", "babe")
	present := keys.Keys[0].Public
	missing := "0x" + strings.Repeat("cd", 32)

	var has map[string]bool
	runJSON(t, &has, "--local", "has", "babe:"+present)
	assert.True(t, has["has"])
	runJSON(t, &has, "--local", "has", "babe:"+present, "babe:"+missing)
	assert.False(t, has["has"])

	var supported keysOutput
	runJSON(t, &supported, "--local", "supported", "babe", keys.Keys[0].Scheme+":"+present, "ed25519:"+missing)
	require.Len(t, supported.Keys, 1)
	assert.Equal(t, keys.Keys[0], supported.Keys[0])
}

func TestLocalVRFSign(t *testing.T) {
	var keys keysOutput
	runJSON(t, &keys, "--local", "public-keys", "babe")
	require.Len(t, keys.Keys, 1)

	var out struct {
		Output string `json:"output"`
		Proof  string `json:"proof"`
	}
	runJSON(t, &out, "--local", "vrf-sign", "babe", keys.Keys[0].Public,
		"--label", "test", "--item", "epoch=u64:7", "--item", "randomness=0x0102")

	output, err := parseHex(out.Output)
	require.NoError(t, err)
	proof, err := parseHex(out.Proof)
	require.NoError(t, err)
	require.Len(t, output, types.VRFOutputSize)
	require.Len(t, proof, types.VRFProofSize)

	public, err := parseHex(keys.Keys[0].Public)
	require.NoError(t, err)
	var sig types.VRFSignature
	copy(sig.Output[:], output)
	copy(sig.Proof[:], proof)
	transcript := types.VRFTranscript{Label: "test", Items: []types.VRFTranscriptItem{
		types.U64Item("epoch", 7),
		types.BytesItem("randomness", []byte{1, 2}),
	}}
	assert.True(t, crypto.VRFVerify(types.Sr25519, public, transcript, &sig))
}

func TestLocalInsert(t *testing.T) {
	pair, err := crypto.FromURI(types.Ed25519, "//Bob")
	require.NoError(t, err)
	public := encodeHex(pair.Public())

	out, err := run(t, "--local", "insert", "acco", "//Bob", public)
	require.NoError(t, err)
	assert.Contains(t, out, "Key inserted")

	_, err = run(t, "--local", "insert", "acco", "//Bob", "0x"+strings.Repeat("00", 32))
	assert.ErrorIs(t, err, keystore.ErrPublicKeyMismatch)
}

func TestRemoteServer(t *testing.T) {
	url := startServer(t)

	var gen keyJSON
	runJSON(t, &gen, "--server", url, "generate", "babe", "--scheme", "ecdsa", "--seed", "//remote")

	var keys keysOutput
	runJSON(t, &keys, "--server", url, "keys", "babe")
	require.Len(t, keys.Keys, 1)
	assert.Equal(t, gen, keys.Keys[0])

	t.Setenv("KEYSTORE_SERVER", url)
	runJSON(t, &keys, "keys", "babe")
	assert.Len(t, keys.Keys, 1)
}

func TestRemoteUnavailable(t *testing.T) {
	ln, err := transport.ListenTCP("127.0.0.1:0", nil)
	require.NoError(t, err)
	url := "tcp://" + ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = run(t, "--server", url, "--timeout", "2s", "keys", "babe")
	assert.ErrorIs(t, err, keystore.ErrUnavailable)
}

func TestBadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"key type", []string{"--local", "keys", "toolong"}},
		{"scheme", []string{"--local", "generate", "babe", "--scheme", "rsa"}},
		{"handle", []string{"--local", "supported", "babe", "nocolon"}},
		{"hex", []string{"--local", "has", "babe:0xzz"}},
		{"mode with", []string{"--local", "sign", "babe", "m", "-k", "sr25519:00", "-k", "sr25519:01"}},
		{"mode", []string{"--local", "sign", "babe", "m", "--mode", "some"}},
		{"item", []string{"--local", "vrf-sign", "babe", "00", "--item", "nolabel"}},
		{"u64 item", []string{"--local", "vrf-sign", "babe", "00", "--item", "n=u64:x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.ErrorIs(t, err, errBadArgument)
		})
	}

	_, err := run(t, "-o", "yaml", "--local", "keys", "babe")
	assert.Error(t, err)
}

func TestPrinterText(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter("text", &buf)

	require.NoError(t, p.PrintKeys(nil))
	assert.Equal(t, "No keys found\n", buf.String())

	buf.Reset()
	key := types.NewHandle(types.Ed25519, []byte{0xaa})
	require.NoError(t, p.PrintSignResults([]types.SignResult{
		{Key: key, Signature: []byte{0x01}},
		{Key: key, Err: errors.New("boom")},
	}))
	assert.Equal(t, "ed25519:0xaa 0x01\ned25519:0xaa error: boom\n", buf.String())

	buf.Reset()
	require.NoError(t, p.PrintError(errors.New("bad")))
	assert.Equal(t, "Error: bad\n", buf.String())
}
