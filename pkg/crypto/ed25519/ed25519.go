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

// Package ed25519 wraps crypto/ed25519 key pairs derived from 32 byte seeds.
package ed25519

import (
	"crypto/ed25519"
)

const (
	PublicKeySize = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize
	HDKDLabel     = "Ed25519HDKD"
)

// KeyPair is an Ed25519 private key.
type KeyPair struct {
	private ed25519.PrivateKey
}

// FromSeed derives the key pair for an RFC 8032 seed.
func FromSeed(seed [32]byte) (*KeyPair, error) {
	return &KeyPair{private: ed25519.NewKeyFromSeed(seed[:])}, nil
}

func (kp *KeyPair) Public() []byte {
	pub := kp.private.Public().(ed25519.PublicKey)
	out := make([]byte, PublicKeySize)
	copy(out, pub)
	return out
}

func (kp *KeyPair) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(kp.private, msg), nil
}

// Verify checks an Ed25519 signature.
func Verify(public, msg, sig []byte) bool {
	if len(public) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(public), msg, sig)
}
