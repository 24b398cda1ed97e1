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

package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/crypto/suri"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

func TestFromSeedEd25519Vector(t *testing.T) {
	// RFC 8032 section 7.1, test 1
	raw, _ := hex.DecodeString("9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	var seed [32]byte
	copy(seed[:], raw)

	pair, err := FromSeed(types.Ed25519, seed)
	require.NoError(t, err)
	assert.Equal(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a", hex.EncodeToString(pair.Public()))

	sig, err := pair.Sign(nil)
	require.NoError(t, err)
	assert.Equal(t,
		"e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e06522490155"+
			"5fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b",
		hex.EncodeToString(sig))
}

func TestSignVerify(t *testing.T) {
	msg := []byte("attack at dawn")

	for _, scheme := range types.Schemes() {
		t.Run(scheme.Name(), func(t *testing.T) {
			pair, err := Generate(scheme)
			require.NoError(t, err)
			assert.Equal(t, scheme, pair.Scheme())
			assert.Len(t, pair.Public(), PublicKeySize(scheme))

			sig, err := pair.Sign(msg)
			require.NoError(t, err)

			assert.True(t, Verify(scheme, pair.Public(), msg, sig))
			assert.False(t, Verify(scheme, pair.Public(), []byte("attack at dusk"), sig))

			other, err := Generate(scheme)
			require.NoError(t, err)
			assert.False(t, Verify(scheme, other.Public(), msg, sig))
			assert.False(t, Verify(scheme, pair.Public()[:8], msg, sig))
			assert.False(t, Verify(scheme, pair.Public(), msg, sig[:10]))
		})
	}
}

func TestFromURI(t *testing.T) {
	for _, scheme := range types.Schemes() {
		t.Run(scheme.Name(), func(t *testing.T) {
			a, err := FromURI(scheme, "//Alice")
			require.NoError(t, err)
			b, err := FromURI(scheme, "//Alice")
			require.NoError(t, err)
			c, err := FromURI(scheme, "//Bob")
			require.NoError(t, err)

			assert.Equal(t, a.Public(), b.Public())
			assert.NotEqual(t, a.Public(), c.Public())
		})
	}

	t.Run("schemes derive different keys", func(t *testing.T) {
		sr, _ := FromURI(types.Sr25519, "//Alice")
		ed, _ := FromURI(types.Ed25519, "//Alice")
		assert.NotEqual(t, sr.Public(), ed.Public())
	})

	t.Run("invalid uri", func(t *testing.T) {
		_, err := FromURI(types.Ed25519, "0x1234")
		assert.ErrorIs(t, err, ErrInvalidSeed)

		for _, scheme := range types.Schemes() {
			_, err = FromURI(scheme, "definitely not a bip39 mnemonic")
			assert.ErrorIs(t, err, ErrInvalidSeed, scheme.Name())
		}

		_, err = FromURI(types.Sr25519, "//Alice/soft")
		assert.ErrorIs(t, err, ErrInvalidSeed)

		_, err = FromURI(types.Ed25519, "//Alice/soft")
		assert.ErrorIs(t, err, ErrInvalidSeed)
	})

	t.Run("unknown scheme", func(t *testing.T) {
		_, err := FromURI(types.Scheme{'x', 'x', 'x', 'x'}, "//Alice")
		assert.ErrorIs(t, err, ErrUnsupportedScheme)
	})
}

// Well-known substrate development keys.
func TestFromURIDevKeys(t *testing.T) {
	tests := []struct {
		name   string
		scheme types.Scheme
		uri    string
		public string
	}{
		{"sr25519 root", types.Sr25519, suri.DevPhrase, "46ebddef8cd9bb167dc30878d7113b7e168e6f0646beffd77d69d39bad76b47a"},
		{"sr25519 alice", types.Sr25519, "//Alice", "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"},
		{"ed25519 alice", types.Ed25519, "//Alice", "88dc3417d5058ec4b4503e0c12ea1a0a89be200fe98922423d4334014fa6b0ee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := FromURI(tt.scheme, tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.public, hex.EncodeToString(pair.Public()))
		})
	}
}

func TestVRF(t *testing.T) {
	pair, err := FromURI(types.Sr25519, "//Alice")
	require.NoError(t, err)

	vrfPair, ok := pair.(VRFPair)
	require.True(t, ok)

	transcript := types.VRFTranscript{
		Label: "BABE",
		Items: []types.VRFTranscriptItem{
			types.U64Item("slot number", 42),
			types.BytesItem("chain randomness", []byte{1, 2, 3}),
		},
	}

	sig, err := vrfPair.VRFSign(transcript)
	require.NoError(t, err)
	assert.True(t, VRFVerify(types.Sr25519, pair.Public(), transcript, sig))

	again, err := vrfPair.VRFSign(transcript)
	require.NoError(t, err)
	assert.Equal(t, sig.Output, again.Output)

	other := transcript
	other.Items = []types.VRFTranscriptItem{types.U64Item("slot number", 43)}
	assert.False(t, VRFVerify(types.Sr25519, pair.Public(), other, sig))

	ed, _ := FromURI(types.Ed25519, "//Alice")
	_, ok = ed.(VRFPair)
	assert.False(t, ok)
	assert.False(t, VRFVerify(types.Ed25519, ed.Public(), transcript, sig))
}
