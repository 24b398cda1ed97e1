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

// Package sr25519 implements schnorrkel key pairs, signatures and VRF
// signatures on top of github.com/ChainSafe/go-schnorrkel.
package sr25519

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/gtank/merlin"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

const (
	// PublicKeySize is the size of an encoded public key.
	PublicKeySize = 32

	// SignatureSize is the size of an encoded signature.
	SignatureSize = 64
)

var signingContext = []byte("substrate")

// ErrInvalidPublicKey is returned when public key bytes do not decode.
var ErrInvalidPublicKey = errors.New("sr25519: invalid public key")

// KeyPair is an expanded schnorrkel secret key and its public key.
type KeyPair struct {
	secret *schnorrkel.SecretKey
	public [PublicKeySize]byte
}

// FromSeed expands a 32 byte mini secret key (ed25519 expansion mode).
func FromSeed(seed [32]byte) (*KeyPair, error) {
	return Derive(seed, nil)
}

// Derive hard derives the mini secret key seed along every chain code with
// schnorrkel HDKD and expands the result.
func Derive(seed [32]byte, chainCodes [][32]byte) (*KeyPair, error) {
	mini, err := schnorrkel.NewMiniSecretKeyFromRaw(seed)
	if err != nil {
		return nil, fmt.Errorf("sr25519: %w", err)
	}
	for _, cc := range chainCodes {
		mini, _, err = mini.HardDeriveMiniSecretKey([]byte{}, cc)
		if err != nil {
			return nil, fmt.Errorf("sr25519 derive: %w", err)
		}
	}
	secret := mini.ExpandEd25519()
	pub, err := secret.Public()
	if err != nil {
		return nil, fmt.Errorf("sr25519: %w", err)
	}
	return &KeyPair{secret: secret, public: pub.Encode()}, nil
}

// Public returns the encoded public key.
func (kp *KeyPair) Public() []byte {
	out := make([]byte, PublicKeySize)
	copy(out, kp.public[:])
	return out
}

// Sign signs msg under the "substrate" signing context.
func (kp *KeyPair) Sign(msg []byte) ([]byte, error) {
	sig, err := kp.secret.Sign(schnorrkel.NewSigningContext(signingContext, msg))
	if err != nil {
		return nil, fmt.Errorf("sr25519: %w", err)
	}
	enc := sig.Encode()
	return enc[:], nil
}

// VRFSign evaluates the VRF over the transcript and returns output and proof.
func (kp *KeyPair) VRFSign(transcript types.VRFTranscript) (*types.VRFSignature, error) {
	inout, proof, err := kp.secret.VrfSign(makeTranscript(transcript))
	if err != nil {
		return nil, fmt.Errorf("sr25519 vrf: %w", err)
	}
	return &types.VRFSignature{
		Output: inout.Output().Encode(),
		Proof:  proof.Encode(),
	}, nil
}

// Verify checks a signature produced by Sign.
func Verify(public, msg, sig []byte) bool {
	pub, err := decodePublic(public)
	if err != nil || len(sig) != SignatureSize {
		return false
	}
	var raw [SignatureSize]byte
	copy(raw[:], sig)
	s := new(schnorrkel.Signature)
	if err := s.Decode(raw); err != nil {
		return false
	}
	ok, err := pub.Verify(s, schnorrkel.NewSigningContext(signingContext, msg))
	return err == nil && ok
}

// VRFVerify checks a VRF signature produced by VRFSign.
func VRFVerify(public []byte, transcript types.VRFTranscript, sig *types.VRFSignature) bool {
	pub, err := decodePublic(public)
	if err != nil || sig == nil {
		return false
	}
	out := new(schnorrkel.VrfOutput)
	if err := out.Decode(sig.Output); err != nil {
		return false
	}
	proof := new(schnorrkel.VrfProof)
	if err := proof.Decode(sig.Proof); err != nil {
		return false
	}
	ok, err := pub.VrfVerify(makeTranscript(transcript), out, proof)
	return err == nil && ok
}

func decodePublic(public []byte) (*schnorrkel.PublicKey, error) {
	if len(public) != PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	var raw [PublicKeySize]byte
	copy(raw[:], public)
	pub := new(schnorrkel.PublicKey)
	if err := pub.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

func makeTranscript(t types.VRFTranscript) *merlin.Transcript {
	tr := merlin.NewTranscript(t.Label)
	for _, item := range t.Items {
		tr.AppendMessage([]byte(item.Label), item.Message())
	}
	return tr
}
