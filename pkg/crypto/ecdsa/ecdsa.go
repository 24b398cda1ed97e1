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

// Package ecdsa implements recoverable secp256k1 ECDSA signatures over the
// BLAKE2b-256 digest of the message.
package ecdsa

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/blake2b"
)

const (
	// PublicKeySize is the size of a compressed SEC1 public key.
	PublicKeySize = 33

	// SignatureSize is r || s || recovery id.
	SignatureSize = 65

	HDKDLabel = "Secp256k1HDKD"

	// compactHeader is the btcec compact signature header offset for a
	// compressed public key (27 + 4).
	compactHeader = 31
)

// ErrInvalidSecret is returned when the seed is not a valid secp256k1 scalar.
var ErrInvalidSecret = errors.New("ecdsa: seed is not a valid secret key")

// KeyPair is a secp256k1 private key with its compressed public key.
type KeyPair struct {
	private *btcec.PrivateKey
	public  []byte
}

// FromSeed uses the seed directly as the secret scalar. Seeds that are zero
// or not below the curve order are rejected.
func FromSeed(seed [32]byte) (*KeyPair, error) {
	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(seed[:]); overflow || scalar.IsZero() {
		return nil, ErrInvalidSecret
	}
	priv, pub := btcec.PrivKeyFromBytes(seed[:])
	return &KeyPair{private: priv, public: pub.SerializeCompressed()}, nil
}

func (kp *KeyPair) Public() []byte {
	return bytes.Clone(kp.public)
}

// Sign returns a 65 byte recoverable signature.
func (kp *KeyPair) Sign(msg []byte) ([]byte, error) {
	digest := blake2b.Sum256(msg)
	compact := btcecdsa.SignCompact(kp.private, digest[:], true)
	sig := make([]byte, 0, SignatureSize)
	sig = append(sig, compact[1:]...)
	return append(sig, compact[0]-compactHeader), nil
}

// Verify recovers the signer from sig and compares it with public.
func Verify(public, msg, sig []byte) bool {
	if len(public) != PublicKeySize || len(sig) != SignatureSize || sig[64] > 3 {
		return false
	}
	compact := make([]byte, 0, SignatureSize)
	compact = append(compact, sig[64]+compactHeader)
	compact = append(compact, sig[:64]...)

	digest := blake2b.Sum256(msg)
	recovered, _, err := btcecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return false
	}
	return bytes.Equal(recovered.SerializeCompressed(), public)
}
