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

// Package suri parses secret URIs and derives deterministic 32 byte seeds
// from them.
//
// A secret URI has the form
//
//	<phrase | 0x<64 hex chars>>[//hard]*[///password]
//
// An empty phrase followed by at least one junction stands for DevPhrase, so
// "//Alice" is the well-known development account.
package suri

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ChainSafe/go-schnorrkel"
	"golang.org/x/crypto/blake2b"
)

// DevPhrase is the publicly documented development phrase. Keys derived
// from it must never hold value.
const DevPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

// SeedSize is the size of every derived seed.
const SeedSize = 32

var (
	// ErrInvalidURI is returned for URIs that cannot be parsed.
	ErrInvalidURI = errors.New("suri: invalid secret uri")

	// ErrInvalidMnemonic is returned when the phrase is not a BIP39
	// mnemonic.
	ErrInvalidMnemonic = errors.New("suri: invalid mnemonic")

	// ErrSoftJunction is returned when a soft (non-hardened) junction is
	// used; only hard derivation is supported.
	ErrSoftJunction = errors.New("suri: soft junctions are not supported")
)

// Junction is one derivation path element.
type Junction struct {
	Name      string
	Hard      bool
	ChainCode [32]byte
}

// URI is a parsed secret URI.
type URI struct {
	Phrase    string
	RawSeed   []byte
	Password  string
	Junctions []Junction
}

// Parse parses a secret URI.
func Parse(s string) (*URI, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURI)
	}

	u := &URI{}
	if i := strings.Index(s, "///"); i >= 0 {
		u.Password = s[i+3:]
		s = s[:i]
	}

	path := ""
	if i := strings.Index(s, "/"); i >= 0 {
		path = s[i:]
		s = s[:i]
	}

	junctions, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	u.Junctions = junctions

	phrase := strings.Join(strings.Fields(s), " ")
	switch {
	case phrase == "" && len(junctions) > 0:
		u.Phrase = DevPhrase
	case phrase == "":
		return nil, fmt.Errorf("%w: missing phrase", ErrInvalidURI)
	case strings.HasPrefix(phrase, "0x"):
		raw, err := hex.DecodeString(phrase[2:])
		if err != nil || len(raw) != SeedSize {
			return nil, fmt.Errorf("%w: hex seed must be %d bytes", ErrInvalidURI, SeedSize)
		}
		u.RawSeed = raw
	default:
		u.Phrase = phrase
	}
	return u, nil
}

func parsePath(path string) ([]Junction, error) {
	var junctions []Junction
	for path != "" {
		hard := strings.HasPrefix(path, "//")
		if hard {
			path = path[2:]
		} else {
			path = path[1:]
		}
		name := path
		if i := strings.Index(path, "/"); i >= 0 {
			name = path[:i]
		}
		path = path[len(name):]
		if name == "" {
			return nil, fmt.Errorf("%w: empty junction", ErrInvalidURI)
		}
		junctions = append(junctions, Junction{Name: name, Hard: hard, ChainCode: chainCode(name)})
	}
	return junctions, nil
}

// chainCode encodes a junction name the way substrate does: numeric names as a
// little-endian u64, everything else SCALE encoded, hashed when it does not fit.
func chainCode(name string) [32]byte {
	var cc [32]byte
	if n, err := strconv.ParseUint(name, 10, 64); err == nil {
		binary.LittleEndian.PutUint64(cc[:], n)
		return cc
	}
	encoded := scaleBytes([]byte(name))
	if len(encoded) > len(cc) {
		return blake2b.Sum256(encoded)
	}
	copy(cc[:], encoded)
	return cc
}

// scaleBytes prefixes b with its SCALE compact length.
func scaleBytes(b []byte) []byte {
	n := len(b)
	var prefix []byte
	switch {
	case n < 1<<6:
		prefix = []byte{byte(n << 2)}
	case n < 1<<14:
		prefix = binary.LittleEndian.AppendUint16(nil, uint16(n<<2|0b01))
	default:
		prefix = binary.LittleEndian.AppendUint32(nil, uint32(n<<2|0b10))
	}
	return append(prefix, b...)
}

// MasterSeed returns the seed before any junction is applied. Phrases are
// decoded to their BIP39 entropy and stretched the way substrate does.
func (u *URI) MasterSeed() ([SeedSize]byte, error) {
	var seed [SeedSize]byte
	if u.RawSeed != nil {
		copy(seed[:], u.RawSeed)
		return seed, nil
	}
	full, err := schnorrkel.SeedFromMnemonic(u.Phrase, u.Password)
	if err != nil {
		return seed, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	copy(seed[:], full[:SeedSize])
	return seed, nil
}

// ChainCodes returns the chain code of every junction, rejecting soft ones.
func (u *URI) ChainCodes() ([][32]byte, error) {
	codes := make([][32]byte, 0, len(u.Junctions))
	for _, j := range u.Junctions {
		if !j.Hard {
			return nil, fmt.Errorf("%w: /%s", ErrSoftJunction, j.Name)
		}
		codes = append(codes, j.ChainCode)
	}
	return codes, nil
}

// DeriveSeed applies every junction to the master seed using BLAKE2b hard
// derivation keyed by label (for example "Ed25519HDKD").
func (u *URI) DeriveSeed(label string) ([SeedSize]byte, error) {
	codes, err := u.ChainCodes()
	if err != nil {
		return [SeedSize]byte{}, err
	}
	seed, err := u.MasterSeed()
	if err != nil {
		return seed, err
	}
	for _, cc := range codes {
		seed = DeriveHard(label, seed, cc)
	}
	return seed, nil
}

// DeriveHard computes BLAKE2b-256(SCALE(label) || seed || chainCode).
func DeriveHard(label string, seed [SeedSize]byte, chainCode [32]byte) [SeedSize]byte {
	buf := scaleBytes([]byte(label))
	buf = append(buf, seed[:]...)
	buf = append(buf, chainCode[:]...)
	return blake2b.Sum256(buf)
}
