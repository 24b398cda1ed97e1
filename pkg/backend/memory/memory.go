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

// Package memory is the in-process keystore backend. Key pairs live only in
// memory and are lost when the process exits.
package memory

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/adapters/logger"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/crypto"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

// Backend holds key pairs grouped by key type and scheme. Pairs per group
// are kept in insertion order and a public key is stored at most once.
type Backend struct {
	mu    sync.RWMutex
	pairs map[types.KeyTypeID]map[types.Scheme][]crypto.Pair
	count int

	config Config
	log    logger.Logger
}

var _ keystore.KeyStore = (*Backend)(nil)

// New creates an empty backend.
func New(config *Config) *Backend {
	b := &Backend{
		pairs: make(map[types.KeyTypeID]map[types.Scheme][]crypto.Pair),
		log:   logger.Nop(),
	}
	if config != nil {
		b.config = *config
		if config.Logger != nil {
			b.log = config.Logger
		}
	}
	return b
}

// Len returns the number of key pairs held.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// PublicKeys returns the public keys held for scheme under id in insertion
// order. An unknown key type yields an empty list.
func (b *Backend) PublicKeys(scheme types.Scheme, id types.KeyTypeID) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	group := b.pairs[id][scheme]
	keys := make([][]byte, 0, len(group))
	for _, p := range group {
		keys = append(keys, p.Public())
	}
	return keys, nil
}

// GenerateNew derives a key pair from the secret URI seed, or from fresh
// randomness when seed is empty, and stores it under id. Generating a pair
// that is already held returns its public key without storing it twice.
func (b *Backend) GenerateNew(scheme types.Scheme, id types.KeyTypeID, seed string) ([]byte, error) {
	if err := b.check(scheme, id); err != nil {
		return nil, err
	}

	var (
		pair crypto.Pair
		err  error
	)
	if seed == "" {
		pair, err = crypto.Generate(scheme)
	} else {
		pair, err = crypto.FromURI(scheme, seed)
	}
	if err != nil {
		return nil, mapCryptoError(err)
	}

	if b.insert(id, pair) {
		b.log.Debug("key generated",
			logger.Stringer("key_type", id),
			logger.Stringer("scheme", scheme),
			logger.Hex("public", pair.Public()))
	}
	return pair.Public(), nil
}

// InsertUnknown tries every scheme whose public key size matches and stores
// the first pair that derives to public.
func (b *Backend) InsertUnknown(id types.KeyTypeID, suri string, public []byte) error {
	if !b.config.allows(id) {
		return fmt.Errorf("%w: %s", keystore.ErrKeyNotSupported, id)
	}

	var lastErr error
	tried := false
	for _, scheme := range types.Schemes() {
		if crypto.PublicKeySize(scheme) != len(public) {
			continue
		}
		tried = true
		pair, err := crypto.FromURI(scheme, suri)
		if err != nil {
			lastErr = err
			continue
		}
		if bytes.Equal(pair.Public(), public) {
			b.insert(id, pair)
			return nil
		}
	}

	if lastErr != nil && errors.Is(lastErr, crypto.ErrInvalidSeed) {
		return mapCryptoError(lastErr)
	}
	if !tried {
		return fmt.Errorf("%w: no scheme has %d byte public keys", keystore.ErrPublicKeyMismatch, len(public))
	}
	return keystore.ErrPublicKeyMismatch
}

// SupportedKeys returns the candidates held under id, preserving their order.
func (b *Backend) SupportedKeys(id types.KeyTypeID, candidates []types.PublicKeyHandle) ([]types.PublicKeyHandle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	supported := make([]types.PublicKeyHandle, 0, len(candidates))
	for _, c := range candidates {
		if b.lookup(id, c) != nil {
			supported = append(supported, c)
		}
	}
	return supported, nil
}

// Keys returns every key held under id, grouped by scheme.
func (b *Backend) Keys(id types.KeyTypeID) ([]types.PublicKeyHandle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []types.PublicKeyHandle
	for _, scheme := range types.Schemes() {
		for _, p := range b.pairs[id][scheme] {
			keys = append(keys, types.NewHandle(scheme, p.Public()))
		}
	}
	if keys == nil {
		keys = []types.PublicKeyHandle{}
	}
	return keys, nil
}

// HasKeys is true for an empty list.
func (b *Backend) HasKeys(refs []types.PublicKeyRef) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ref := range refs {
		if !b.holds(ref.KeyType, ref.Public) {
			return false, nil
		}
	}
	return true, nil
}

// SignWith signs msg with the pair for key held under id.
func (b *Backend) SignWith(id types.KeyTypeID, key types.PublicKeyHandle, msg []byte) ([]byte, error) {
	if err := b.check(key.Scheme, id); err != nil {
		return nil, err
	}

	b.mu.RLock()
	pair := b.lookup(id, key)
	b.mu.RUnlock()
	if pair == nil {
		return nil, keystore.ErrPairNotFound
	}

	sig, err := pair.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keystore.ErrValidation, err)
	}
	return sig, nil
}

// SignWithAny signs with the first candidate held under id.
func (b *Backend) SignWithAny(id types.KeyTypeID, candidates []types.PublicKeyHandle, msg []byte) (types.PublicKeyHandle, []byte, error) {
	return keystore.SignWithAny(b, id, candidates, msg)
}

// SignWithAll signs with every candidate and reports a result per key.
func (b *Backend) SignWithAll(id types.KeyTypeID, candidates []types.PublicKeyHandle, msg []byte) ([]types.SignResult, error) {
	return keystore.SignWithAll(b, id, candidates, msg), nil
}

// VRFSign evaluates the sr25519 VRF over transcript with the pair for
// public held under id.
func (b *Backend) VRFSign(id types.KeyTypeID, public []byte, transcript types.VRFTranscript) (*types.VRFSignature, error) {
	if err := b.check(types.Sr25519, id); err != nil {
		return nil, err
	}

	b.mu.RLock()
	pair := b.lookup(id, types.NewHandle(types.Sr25519, public))
	b.mu.RUnlock()
	if pair == nil {
		return nil, keystore.ErrPairNotFound
	}
	vrf, ok := pair.(crypto.VRFPair)
	if !ok {
		return nil, keystore.ErrKeyNotSupported
	}

	sig, err := vrf.VRFSign(transcript)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keystore.ErrValidation, err)
	}
	return sig, nil
}

func (b *Backend) check(scheme types.Scheme, id types.KeyTypeID) error {
	if !scheme.Valid() {
		return fmt.Errorf("%w: scheme %s", keystore.ErrKeyNotSupported, scheme)
	}
	if !b.config.allows(id) {
		return fmt.Errorf("%w: %s", keystore.ErrKeyNotSupported, id)
	}
	return nil
}

// insert stores pair unless its public key is already held. It reports
// whether the pair was added.
func (b *Backend) insert(id types.KeyTypeID, pair crypto.Pair) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lookup(id, types.NewHandle(pair.Scheme(), pair.Public())) != nil {
		return false
	}
	schemes, ok := b.pairs[id]
	if !ok {
		schemes = make(map[types.Scheme][]crypto.Pair)
		b.pairs[id] = schemes
	}
	schemes[pair.Scheme()] = append(schemes[pair.Scheme()], pair)
	b.count++
	return true
}

// lookup expects b.mu to be held.
func (b *Backend) lookup(id types.KeyTypeID, key types.PublicKeyHandle) crypto.Pair {
	for _, p := range b.pairs[id][key.Scheme] {
		if bytes.Equal(p.Public(), key.Public) {
			return p
		}
	}
	return nil
}

// holds expects b.mu to be held.
func (b *Backend) holds(id types.KeyTypeID, public []byte) bool {
	for _, group := range b.pairs[id] {
		for _, p := range group {
			if bytes.Equal(p.Public(), public) {
				return true
			}
		}
	}
	return false
}

func mapCryptoError(err error) error {
	switch {
	case errors.Is(err, crypto.ErrInvalidSeed):
		return fmt.Errorf("%w: %v", keystore.ErrInvalidSeed, err)
	case errors.Is(err, crypto.ErrUnsupportedScheme):
		return fmt.Errorf("%w: %v", keystore.ErrKeyNotSupported, err)
	default:
		return err
	}
}
