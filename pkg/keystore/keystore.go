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

// Package keystore defines the capability interface a signing key store must
// satisfy, whether it holds key material locally or proxies every call to a
// remote process.
package keystore

import (
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

// KeyStore is the capability interface proxied over the wire. Every method is
// a blocking call; implementations must be safe for concurrent use.
//
// Read-only operations (PublicKeys, HasKeys) report failures through the
// error result. A local backend never fails them; a remote proxy returns the
// conservative default (nil, false) together with an error that wraps
// ErrUnavailable.
type KeyStore interface {
	// PublicKeys returns every public key of the given scheme held for the
	// key type, in insertion order. The result may be empty.
	PublicKeys(scheme types.Scheme, id types.KeyTypeID) ([][]byte, error)

	// GenerateNew creates (or re-derives) a key pair. An empty seed uses
	// secure randomness; a non-empty seed is a secret URI and is deterministic.
	GenerateNew(scheme types.Scheme, id types.KeyTypeID, seed string) ([]byte, error)

	// InsertUnknown stores the key pair derived from suri under the key type,
	// provided it derives exactly to public for one of the supported schemes.
	InsertUnknown(id types.KeyTypeID, suri string, public []byte) error

	// SupportedKeys filters candidates down to the handles held for id.
	SupportedKeys(id types.KeyTypeID, candidates []types.PublicKeyHandle) ([]types.PublicKeyHandle, error)

	// Keys returns every handle held for the key type across all schemes.
	Keys(id types.KeyTypeID) ([]types.PublicKeyHandle, error)

	// HasKeys reports whether every listed pair is held.
	HasKeys(refs []types.PublicKeyRef) (bool, error)

	// SignWith signs msg with the given key.
	SignWith(id types.KeyTypeID, key types.PublicKeyHandle, msg []byte) ([]byte, error)

	// SignWithAny signs with the first candidate, in order, that succeeds.
	SignWithAny(id types.KeyTypeID, candidates []types.PublicKeyHandle, msg []byte) (types.PublicKeyHandle, []byte, error)

	// SignWithAll attempts every candidate and reports each outcome. The
	// error result is reserved for failures of the whole call.
	SignWithAll(id types.KeyTypeID, candidates []types.PublicKeyHandle, msg []byte) ([]types.SignResult, error)

	// VRFSign produces an sr25519 VRF signature over the transcript.
	// Backends without VRF support return ErrUnavailable.
	VRFSign(id types.KeyTypeID, public []byte, transcript types.VRFTranscript) (*types.VRFSignature, error)
}

// Signer is the single-key signing capability SignWithAny and SignWithAll are
// built from.
type Signer interface {
	SignWith(id types.KeyTypeID, key types.PublicKeyHandle, msg []byte) ([]byte, error)
}

// SignWithAny tries candidates strictly in order and returns the first
// signature produced. With no candidates it returns ErrPairNotFound; when
// every candidate fails it returns the error of the last one attempted.
func SignWithAny(s Signer, id types.KeyTypeID, candidates []types.PublicKeyHandle, msg []byte) (types.PublicKeyHandle, []byte, error) {
	err := ErrPairNotFound
	for _, key := range candidates {
		var sig []byte
		sig, err = s.SignWith(id, key, msg)
		if err == nil {
			return key, sig, nil
		}
	}
	return types.PublicKeyHandle{}, nil, err
}

// SignWithAll signs with every candidate without short-circuiting.
func SignWithAll(s Signer, id types.KeyTypeID, candidates []types.PublicKeyHandle, msg []byte) []types.SignResult {
	results := make([]types.SignResult, 0, len(candidates))
	for _, key := range candidates {
		sig, err := s.SignWith(id, key, msg)
		results = append(results, types.SignResult{Key: key, Signature: sig, Err: err})
	}
	return results
}
