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

// Package types defines the data model shared by the keystore backend, the
// wire protocol and the remote client.
package types

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrInvalidKeyTypeID is returned when a key type id is not exactly 4 bytes.
	ErrInvalidKeyTypeID = errors.New("types: key type id must be exactly 4 bytes")

	// ErrUnknownScheme is returned when a scheme name or id is not recognised.
	ErrUnknownScheme = errors.New("types: unknown signature scheme")
)

// KeyTypeID is a 4-byte tag naming the role of a key (for example "babe").
type KeyTypeID [4]byte

// Well-known key types.
var (
	KeyTypeBABE     = KeyTypeID{'b', 'a', 'b', 'e'}
	KeyTypeGRANDPA  = KeyTypeID{'g', 'r', 'a', 'n'}
	KeyTypeImOnline = KeyTypeID{'i', 'm', 'o', 'n'}
	KeyTypeAccount  = KeyTypeID{'a', 'c', 'c', 'o'}
)

// ParseKeyTypeID parses the 4 character textual form of a key type id.
func ParseKeyTypeID(s string) (KeyTypeID, error) {
	var id KeyTypeID
	if len(s) != len(id) {
		return id, fmt.Errorf("%w: %q", ErrInvalidKeyTypeID, s)
	}
	copy(id[:], s)
	return id, nil
}

// String returns the 4 character form of the key type id.
func (k KeyTypeID) String() string {
	return string(k[:])
}

// MarshalText implements encoding.TextMarshaler.
func (k KeyTypeID) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *KeyTypeID) UnmarshalText(text []byte) error {
	id, err := ParseKeyTypeID(string(text))
	if err != nil {
		return err
	}
	*k = id
	return nil
}

// MarshalCBOR encodes the key type id as a 4 byte CBOR byte string.
func (k KeyTypeID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(k[:])
}

// UnmarshalCBOR decodes a 4 byte CBOR byte string.
func (k *KeyTypeID) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != len(k) {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidKeyTypeID, len(raw))
	}
	copy(k[:], raw)
	return nil
}

// Scheme identifies a signature scheme by its 4 byte crypto type id.
type Scheme [4]byte

var (
	// Sr25519 is Schnorr signatures over Ristretto25519 (schnorrkel).
	Sr25519 = Scheme{'s', 'r', '2', '5'}

	// Ed25519 is EdDSA over Curve25519.
	Ed25519 = Scheme{'e', 'd', '2', '5'}

	// ECDSA is ECDSA over secp256k1 with recoverable signatures.
	ECDSA = Scheme{'e', 'c', 'd', 's'}
)

// Schemes lists every supported scheme in a stable order.
func Schemes() []Scheme {
	return []Scheme{Sr25519, Ed25519, ECDSA}
}

// ParseScheme accepts either the scheme name ("sr25519", "ed25519", "ecdsa")
// or its 4 character crypto type id ("sr25", "ed25", "ecds").
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "sr25519", "sr25":
		return Sr25519, nil
	case "ed25519", "ed25":
		return Ed25519, nil
	case "ecdsa", "ecds", "secp256k1":
		return ECDSA, nil
	}
	return Scheme{}, fmt.Errorf("%w: %q", ErrUnknownScheme, s)
}

// Valid reports whether the scheme is one of the supported schemes.
func (s Scheme) Valid() bool {
	return s == Sr25519 || s == Ed25519 || s == ECDSA
}

// Name returns the human readable scheme name.
func (s Scheme) Name() string {
	switch s {
	case Sr25519:
		return "sr25519"
	case Ed25519:
		return "ed25519"
	case ECDSA:
		return "ecdsa"
	}
	return fmt.Sprintf("unknown(%x)", s[:])
}

// String returns the human readable scheme name.
func (s Scheme) String() string {
	return s.Name()
}

// MarshalText implements encoding.TextMarshaler.
func (s Scheme) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %x", ErrUnknownScheme, s[:])
	}
	return []byte(s.Name()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scheme) UnmarshalText(text []byte) error {
	scheme, err := ParseScheme(string(text))
	if err != nil {
		return err
	}
	*s = scheme
	return nil
}

// MarshalCBOR encodes the scheme as its 4 byte crypto type id. Unsupported
// schemes are rejected so they never reach the wire.
func (s Scheme) MarshalCBOR() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %x", ErrUnknownScheme, s[:])
	}
	return cbor.Marshal(s[:])
}

// UnmarshalCBOR decodes a scheme and rejects ids that are not supported.
func (s *Scheme) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	var scheme Scheme
	if len(raw) != len(scheme) {
		return fmt.Errorf("%w: got %d bytes", ErrUnknownScheme, len(raw))
	}
	copy(scheme[:], raw)
	if !scheme.Valid() {
		return fmt.Errorf("%w: %x", ErrUnknownScheme, raw)
	}
	*s = scheme
	return nil
}

// PublicKeyHandle identifies one key pair held by a backend: the scheme it
// belongs to and the raw public key bytes.
type PublicKeyHandle struct {
	Scheme Scheme `cbor:"1,keyasint" json:"scheme"`
	Public []byte `cbor:"2,keyasint" json:"public"`
}

// NewHandle returns a handle for the given scheme and public key.
func NewHandle(scheme Scheme, public []byte) PublicKeyHandle {
	return PublicKeyHandle{Scheme: scheme, Public: public}
}

// Equal reports whether two handles name the same key pair.
func (h PublicKeyHandle) Equal(other PublicKeyHandle) bool {
	return h.Scheme == other.Scheme && bytes.Equal(h.Public, other.Public)
}

// String returns "<scheme>:<hex public key>".
func (h PublicKeyHandle) String() string {
	return h.Scheme.Name() + ":" + hex.EncodeToString(h.Public)
}

// PublicKeyRef pairs raw public key bytes with the key type they are expected
// to be registered under.
type PublicKeyRef struct {
	Public  []byte    `cbor:"1,keyasint" json:"public"`
	KeyType KeyTypeID `cbor:"2,keyasint" json:"key_type"`
}

// SignResult is the independent outcome of signing with one candidate key.
type SignResult struct {
	Key       PublicKeyHandle
	Signature []byte
	Err       error
}

// OK reports whether the candidate produced a signature.
func (r SignResult) OK() bool {
	return r.Err == nil
}
