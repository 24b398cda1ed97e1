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

// Package crypto maps signature schemes onto their key pair
// implementations and derives key pairs from secret URIs.
package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/crypto/ecdsa"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/crypto/ed25519"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/crypto/sr25519"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/crypto/suri"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

var (
	// ErrUnsupportedScheme is returned for schemes with no implementation.
	ErrUnsupportedScheme = errors.New("crypto: unsupported scheme")

	// ErrInvalidSeed wraps every secret URI and seed failure.
	ErrInvalidSeed = errors.New("crypto: invalid seed")

	// ErrVRFUnsupported is returned when a scheme has no VRF.
	ErrVRFUnsupported = errors.New("crypto: scheme does not support vrf")
)

// Pair is a key pair of a single scheme.
type Pair interface {
	Scheme() types.Scheme
	Public() []byte
	Sign(msg []byte) ([]byte, error)
}

// VRFPair is implemented by pairs that can produce VRF signatures.
type VRFPair interface {
	Pair
	VRFSign(transcript types.VRFTranscript) (*types.VRFSignature, error)
}

type sr25519Pair struct{ *sr25519.KeyPair }

func (sr25519Pair) Scheme() types.Scheme { return types.Sr25519 }

type ed25519Pair struct{ *ed25519.KeyPair }

func (ed25519Pair) Scheme() types.Scheme { return types.Ed25519 }

type ecdsaPair struct{ *ecdsa.KeyPair }

func (ecdsaPair) Scheme() types.Scheme { return types.ECDSA }

// FromSeed builds the scheme's key pair for a 32 byte seed.
func FromSeed(scheme types.Scheme, seed [suri.SeedSize]byte) (Pair, error) {
	switch scheme {
	case types.Sr25519:
		kp, err := sr25519.FromSeed(seed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		return sr25519Pair{kp}, nil
	case types.Ed25519:
		kp, err := ed25519.FromSeed(seed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		return ed25519Pair{kp}, nil
	case types.ECDSA:
		kp, err := ecdsa.FromSeed(seed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		return ecdsaPair{kp}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

// FromURI derives the scheme's key pair from a secret URI. sr25519 junctions
// use schnorrkel HDKD, the other schemes BLAKE2b HDKD.
func FromURI(scheme types.Scheme, uri string) (Pair, error) {
	if !scheme.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	parsed, err := suri.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if scheme == types.Sr25519 {
		return sr25519FromURI(parsed)
	}

	label, err := hdkdLabel(scheme)
	if err != nil {
		return nil, err
	}
	seed, err := parsed.DeriveSeed(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return FromSeed(scheme, seed)
}

func sr25519FromURI(u *suri.URI) (Pair, error) {
	codes, err := u.ChainCodes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	seed, err := u.MasterSeed()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	kp, err := sr25519.Derive(seed, codes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return sr25519Pair{kp}, nil
}

// Generate creates a key pair from fresh randomness.
func Generate(scheme types.Scheme) (Pair, error) {
	if !scheme.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	for {
		var seed [suri.SeedSize]byte
		if _, err := rand.Read(seed[:]); err != nil {
			return nil, fmt.Errorf("crypto: read random seed: %w", err)
		}
		pair, err := FromSeed(scheme, seed)
		if errors.Is(err, ErrInvalidSeed) {
			// out of range secp256k1 scalar, draw again
			continue
		}
		return pair, err
	}
}

// Verify checks a signature for the given scheme.
func Verify(scheme types.Scheme, public, msg, sig []byte) bool {
	switch scheme {
	case types.Sr25519:
		return sr25519.Verify(public, msg, sig)
	case types.Ed25519:
		return ed25519.Verify(public, msg, sig)
	case types.ECDSA:
		return ecdsa.Verify(public, msg, sig)
	default:
		return false
	}
}

// VRFVerify checks a VRF signature. Only sr25519 has a VRF.
func VRFVerify(scheme types.Scheme, public []byte, transcript types.VRFTranscript, sig *types.VRFSignature) bool {
	if scheme != types.Sr25519 {
		return false
	}
	return sr25519.VRFVerify(public, transcript, sig)
}

// PublicKeySize returns the encoded public key size of scheme, or 0.
func PublicKeySize(scheme types.Scheme) int {
	switch scheme {
	case types.Sr25519:
		return sr25519.PublicKeySize
	case types.Ed25519:
		return ed25519.PublicKeySize
	case types.ECDSA:
		return ecdsa.PublicKeySize
	default:
		return 0
	}
}

func hdkdLabel(scheme types.Scheme) (string, error) {
	switch scheme {
	case types.Ed25519:
		return ed25519.HDKDLabel, nil
	case types.ECDSA:
		return ecdsa.HDKDLabel, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}
