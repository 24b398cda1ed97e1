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

package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/backend/memory"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/crypto"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

// roundTrip dispatches req the way a server would: through the codec on
// both sides.
func roundTrip(t *testing.T, ks keystore.KeyStore, req Request) Response {
	t.Helper()
	frame, err := EncodeRequest(req)
	require.NoError(t, err)
	decoded, err := DecodeRequest(frame)
	require.NoError(t, err)

	resp, err := Dispatch(ks, decoded)
	require.NoError(t, err)
	require.Equal(t, req.Op(), resp.Op())

	out, err := EncodeResponse(resp)
	require.NoError(t, err)
	back, err := DecodeResponse(out)
	require.NoError(t, err)
	return back
}

func TestDispatch(t *testing.T) {
	ks := memory.New(nil)
	msg := []byte("payload")

	gen := roundTrip(t, ks, GenerateNewRequest{Scheme: types.Sr25519, KeyType: types.KeyTypeBABE, Seed: "//Alice"}).(GenerateNewResponse)
	require.NoError(t, gen.Err())
	alice := types.NewHandle(types.Sr25519, gen.Public)

	t.Run("public keys", func(t *testing.T) {
		resp := roundTrip(t, ks, PublicKeysRequest{Scheme: types.Sr25519, KeyType: types.KeyTypeBABE}).(PublicKeysResponse)
		assert.Equal(t, [][]byte{gen.Public}, resp.Keys)
	})

	t.Run("generate error", func(t *testing.T) {
		resp := roundTrip(t, ks, GenerateNewRequest{Scheme: types.Ed25519, KeyType: types.KeyTypeBABE, Seed: "0xzz"})
		assert.ErrorIs(t, resp.Err(), keystore.ErrInvalidSeed)
	})

	t.Run("insert unknown", func(t *testing.T) {
		pair, err := crypto.FromURI(types.Ed25519, "//Bob")
		require.NoError(t, err)

		resp := roundTrip(t, ks, InsertUnknownRequest{KeyType: types.KeyTypeGRANDPA, SURI: "//Bob", Public: pair.Public()})
		assert.NoError(t, resp.Err())

		resp = roundTrip(t, ks, InsertUnknownRequest{KeyType: types.KeyTypeGRANDPA, SURI: "//Eve", Public: pair.Public()})
		assert.ErrorIs(t, resp.Err(), keystore.ErrPublicKeyMismatch)
	})

	t.Run("keys and supported keys", func(t *testing.T) {
		keys := roundTrip(t, ks, KeysRequest{KeyType: types.KeyTypeBABE}).(KeysResponse)
		assert.Equal(t, []types.PublicKeyHandle{alice}, keys.Keys)

		absent := types.NewHandle(types.Ed25519, make([]byte, 32))
		supported := roundTrip(t, ks, SupportedKeysRequest{KeyType: types.KeyTypeBABE, Keys: []types.PublicKeyHandle{absent, alice}}).(SupportedKeysResponse)
		assert.Equal(t, []types.PublicKeyHandle{alice}, supported.Keys)
	})

	t.Run("has keys", func(t *testing.T) {
		has := roundTrip(t, ks, HasKeysRequest{Keys: []types.PublicKeyRef{{Public: alice.Public, KeyType: types.KeyTypeBABE}}}).(HasKeysResponse)
		assert.True(t, has.Has)

		has = roundTrip(t, ks, HasKeysRequest{Keys: []types.PublicKeyRef{{Public: alice.Public, KeyType: types.KeyTypeImOnline}}}).(HasKeysResponse)
		assert.False(t, has.Has)
	})

	t.Run("sign with", func(t *testing.T) {
		resp := roundTrip(t, ks, SignWithRequest{KeyType: types.KeyTypeBABE, Key: alice, Msg: msg}).(SignWithResponse)
		require.NoError(t, resp.Err())
		assert.True(t, crypto.Verify(types.Sr25519, alice.Public, msg, resp.Signature))
	})

	t.Run("sign with any", func(t *testing.T) {
		absent := types.NewHandle(types.Sr25519, make([]byte, 32))
		resp := roundTrip(t, ks, SignWithAnyRequest{KeyType: types.KeyTypeBABE, Keys: []types.PublicKeyHandle{absent, alice}, Msg: msg}).(SignWithAnyResponse)
		require.NoError(t, resp.Err())
		require.NotNil(t, resp.Key)
		assert.Equal(t, alice, *resp.Key)

		resp = roundTrip(t, ks, SignWithAnyRequest{KeyType: types.KeyTypeBABE, Msg: msg}).(SignWithAnyResponse)
		assert.ErrorIs(t, resp.Err(), keystore.ErrPairNotFound)
		assert.Nil(t, resp.Key)
	})

	t.Run("sign with all", func(t *testing.T) {
		absent := types.NewHandle(types.Sr25519, make([]byte, 32))
		resp := roundTrip(t, ks, SignWithAllRequest{KeyType: types.KeyTypeBABE, Keys: []types.PublicKeyHandle{alice, absent}, Msg: msg}).(SignWithAllResponse)
		require.NoError(t, resp.Err())

		results := resp.ToSignResults()
		require.Len(t, results, 2)
		assert.True(t, results[0].OK())
		assert.ErrorIs(t, results[1].Err, keystore.ErrPairNotFound)
	})

	t.Run("vrf sign", func(t *testing.T) {
		transcript := types.VRFTranscript{Label: "BABE", Items: []types.VRFTranscriptItem{types.U64Item("slot", 3)}}
		resp := roundTrip(t, ks, VRFSignRequest{KeyType: types.KeyTypeBABE, Public: alice.Public, Transcript: transcript}).(VRFSignResponse)
		require.NoError(t, resp.Err())
		require.NotNil(t, resp.Signature)
		assert.True(t, crypto.VRFVerify(types.Sr25519, alice.Public, transcript, resp.Signature))
	})
}

func TestDispatchNil(t *testing.T) {
	_, err := Dispatch(memory.New(nil), nil)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = Dispatch(memory.New(nil), (*KeysRequest)(nil))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestDispatchPointerRequests(t *testing.T) {
	ks := memory.New(nil)
	pub, err := ks.GenerateNew(types.Ed25519, types.KeyTypeBABE, "//Alice")
	require.NoError(t, err)
	alice := types.NewHandle(types.Ed25519, pub)
	msg := []byte("payload")

	requests := []Request{
		&PublicKeysRequest{Scheme: types.Ed25519, KeyType: types.KeyTypeBABE},
		&GenerateNewRequest{Scheme: types.Ed25519, KeyType: types.KeyTypeBABE, Seed: "//Alice"},
		&InsertUnknownRequest{KeyType: types.KeyTypeBABE, SURI: "//Alice", Public: pub},
		&SupportedKeysRequest{KeyType: types.KeyTypeBABE, Keys: []types.PublicKeyHandle{alice}},
		&KeysRequest{KeyType: types.KeyTypeBABE},
		&HasKeysRequest{Keys: []types.PublicKeyRef{{KeyType: types.KeyTypeBABE, Public: pub}}},
		&SignWithRequest{KeyType: types.KeyTypeBABE, Key: alice, Msg: msg},
		&SignWithAnyRequest{KeyType: types.KeyTypeBABE, Keys: []types.PublicKeyHandle{alice}, Msg: msg},
		&SignWithAllRequest{KeyType: types.KeyTypeBABE, Keys: []types.PublicKeyHandle{alice}, Msg: msg},
		&VRFSignRequest{KeyType: types.KeyTypeBABE, Public: pub},
	}
	require.Len(t, requests, len(Ops()))

	for _, req := range requests {
		t.Run(req.Op().String(), func(t *testing.T) {
			value, err := NormalizeRequest(req)
			require.NoError(t, err)

			byPointer, err := Dispatch(ks, req)
			require.NoError(t, err)
			byValue, err := Dispatch(ks, value)
			require.NoError(t, err)
			assert.Equal(t, req.Op(), byPointer.Op())
			assert.IsType(t, byValue, byPointer)

			frame, err := EncodeRequest(req)
			require.NoError(t, err)
			decoded, err := DecodeRequest(frame)
			require.NoError(t, err)
			assert.Equal(t, value, decoded)
		})
	}

	keys, err := Dispatch(ks, &KeysRequest{KeyType: types.KeyTypeBABE})
	require.NoError(t, err)
	assert.Equal(t, KeysResponse{Keys: []types.PublicKeyHandle{alice}}, keys)
}

func TestNormalizeResponse(t *testing.T) {
	resp, err := NormalizeResponse(&HasKeysResponse{Has: true})
	require.NoError(t, err)
	assert.Equal(t, HasKeysResponse{Has: true}, resp)

	resp, err = NormalizeResponse(HasKeysResponse{Has: true})
	require.NoError(t, err)
	assert.Equal(t, HasKeysResponse{Has: true}, resp)

	_, err = NormalizeResponse((*HasKeysResponse)(nil))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = EncodeResponse((*SignWithResponse)(nil))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestWireError(t *testing.T) {
	assert.Nil(t, NewWireError(nil))
	assert.NoError(t, (*WireError)(nil).Err())

	sentinels := []error{
		keystore.ErrKeyNotSupported,
		keystore.ErrPairNotFound,
		keystore.ErrInvalidSeed,
		keystore.ErrPublicKeyMismatch,
		keystore.ErrValidation,
		keystore.ErrUnavailable,
	}
	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("context: %w", sentinel)
		decoded := NewWireError(wrapped).Err()
		assert.ErrorIs(t, decoded, sentinel)
		assert.Equal(t, wrapped.Error(), decoded.Error())

		var remote *RemoteError
		assert.True(t, errors.As(decoded, &remote))
	}

	other := NewWireError(errors.New("disk on fire"))
	assert.Equal(t, CodeOther, other.Code)
	assert.ErrorIs(t, other.Err(), keystore.ErrOther)

	bare := &RemoteError{Code: CodePairNotFound}
	assert.Equal(t, keystore.ErrPairNotFound.Error(), bare.Error())
}
