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
	"fmt"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

var (
	srKey = types.NewHandle(types.Sr25519, bytesOf(32, 0x11))
	ecKey = types.NewHandle(types.ECDSA, bytesOf(33, 0x22))
)

func bytesOf(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func sampleRequests() []Request {
	return []Request{
		PublicKeysRequest{Scheme: types.Ed25519, KeyType: types.KeyTypeBABE},
		GenerateNewRequest{Scheme: types.Sr25519, KeyType: types.KeyTypeGRANDPA},
		GenerateNewRequest{Scheme: types.ECDSA, KeyType: types.KeyTypeImOnline, Seed: "//Alice///pw"},
		InsertUnknownRequest{KeyType: types.KeyTypeAccount, SURI: "//Bob", Public: bytesOf(32, 1)},
		SupportedKeysRequest{KeyType: types.KeyTypeBABE, Keys: []types.PublicKeyHandle{srKey, ecKey}},
		SupportedKeysRequest{KeyType: types.KeyTypeBABE, Keys: []types.PublicKeyHandle{}},
		KeysRequest{KeyType: types.KeyTypeBABE},
		HasKeysRequest{Keys: []types.PublicKeyRef{{Public: bytesOf(32, 3), KeyType: types.KeyTypeBABE}}},
		HasKeysRequest{},
		SignWithRequest{KeyType: types.KeyTypeBABE, Key: srKey, Msg: []byte("hello")},
		SignWithAnyRequest{KeyType: types.KeyTypeBABE, Keys: []types.PublicKeyHandle{ecKey, srKey}, Msg: []byte("x")},
		SignWithAllRequest{KeyType: types.KeyTypeGRANDPA, Keys: []types.PublicKeyHandle{srKey}, Msg: []byte("m")},
		VRFSignRequest{
			KeyType: types.KeyTypeBABE,
			Public:  srKey.Public,
			Transcript: types.VRFTranscript{
				Label: "BABE",
				Items: []types.VRFTranscriptItem{
					types.U64Item("slot number", 1<<40),
					types.BytesItem("chain randomness", bytesOf(32, 9)),
				},
			},
		},
	}
}

func sampleResponses() []Response {
	notFound := NewWireError(keystore.ErrPairNotFound)
	vrf := &types.VRFSignature{}
	copy(vrf.Output[:], bytesOf(32, 5))
	copy(vrf.Proof[:], bytesOf(64, 6))

	return []Response{
		PublicKeysResponse{Keys: [][]byte{bytesOf(32, 1), bytesOf(32, 2)}},
		PublicKeysResponse{Keys: [][]byte{}},
		GenerateNewResponse{Public: bytesOf(33, 7)},
		GenerateNewResponse{Error: NewWireError(keystore.ErrInvalidSeed)},
		InsertUnknownResponse{},
		InsertUnknownResponse{Error: NewWireError(keystore.ErrPublicKeyMismatch)},
		SupportedKeysResponse{Keys: []types.PublicKeyHandle{srKey}},
		KeysResponse{Keys: []types.PublicKeyHandle{srKey, ecKey}},
		HasKeysResponse{Has: true},
		HasKeysResponse{Has: false},
		SignWithResponse{Signature: bytesOf(64, 8)},
		SignWithResponse{Error: notFound},
		SignWithAnyResponse{Key: &ecKey, Signature: bytesOf(65, 4)},
		SignWithAnyResponse{Error: notFound},
		SignWithAllResponse{Results: []SignOutcome{
			{Key: srKey, Signature: bytesOf(64, 1)},
			{Key: ecKey, Error: notFound},
		}},
		VRFSignResponse{Signature: vrf},
		VRFSignResponse{Error: NewWireError(keystore.ErrUnavailable)},
	}
}

func TestRequestRoundTrip(t *testing.T) {
	seen := map[Op]bool{}
	for i, req := range sampleRequests() {
		t.Run(fmt.Sprintf("%d_%s", i, req.Op()), func(t *testing.T) {
			frame, err := EncodeRequest(req)
			require.NoError(t, err)

			decoded, err := DecodeRequest(frame)
			require.NoError(t, err)
			assert.Equal(t, req, decoded)
		})
		seen[req.Op()] = true
	}
	for _, op := range Ops() {
		assert.True(t, seen[op], "no request sample for %s", op)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	seen := map[Op]bool{}
	for i, resp := range sampleResponses() {
		t.Run(fmt.Sprintf("%d_%s", i, resp.Op()), func(t *testing.T) {
			frame, err := EncodeResponse(resp)
			require.NoError(t, err)

			decoded, err := DecodeResponse(frame)
			require.NoError(t, err)
			assert.Equal(t, resp, decoded)
		})
		seen[resp.Op()] = true
	}
	for _, op := range Ops() {
		assert.True(t, seen[op], "no response sample for %s", op)
	}
}

func TestDecodeUnknownOperation(t *testing.T) {
	body, err := cbor.Marshal(KeysRequest{KeyType: types.KeyTypeBABE})
	require.NoError(t, err)
	frame, err := cbor.Marshal(envelope{Op: 200, Body: body})
	require.NoError(t, err)

	_, err = DecodeRequest(frame)
	assert.ErrorIs(t, err, ErrUnknownOperation)

	var opErr *UnknownOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, Op(200), opErr.Op)

	_, err = DecodeResponse(frame)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestDecodeMalformed(t *testing.T) {
	unknownField, err := cbor.Marshal(map[int]any{1: []byte("babe"), 9: "extra"})
	require.NoError(t, err)
	badScheme, err := cbor.Marshal(map[int]any{1: []byte("nope"), 2: []byte("babe")})
	require.NoError(t, err)

	envelopeFor := func(op Op, body []byte) []byte {
		frame, err := cbor.Marshal(envelope{Op: op, Body: body})
		require.NoError(t, err)
		return frame
	}

	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty frame", nil},
		{"garbage", []byte{0xff, 0x00, 0x13}},
		{"truncated", envelopeFor(OpKeys, []byte("babe"))[:4]},
		{"empty body", envelopeFor(OpKeys, nil)},
		{"body is not a map", envelopeFor(OpKeys, []byte{0x01})},
		{"unknown field", envelopeFor(OpKeys, unknownField)},
		{"unknown scheme", envelopeFor(OpPublicKeys, badScheme)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest(tt.frame)
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestEncodeRejects(t *testing.T) {
	_, err := EncodeRequest(nil)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = EncodeResponse(nil)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = EncodeRequest(PublicKeysRequest{Scheme: types.Scheme{'x', 'x', 'x', 'x'}, KeyType: types.KeyTypeBABE})
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestOp(t *testing.T) {
	assert.Len(t, Ops(), 10)
	assert.Equal(t, "sign_with_all", OpSignWithAll.String())
	assert.Equal(t, "op(0)", Op(0).String())
	assert.False(t, Op(0).Valid())
	assert.True(t, OpVRFSign.Valid())
}
