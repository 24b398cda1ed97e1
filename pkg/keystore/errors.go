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

package keystore

import "errors"

var (
	// ErrKeyNotSupported is returned when the key type (or scheme) is not
	// accepted by the backend.
	ErrKeyNotSupported = errors.New("keystore: key type not supported")

	// ErrPairNotFound is returned when no key pair matches the request.
	ErrPairNotFound = errors.New("keystore: key pair not found")

	// ErrInvalidSeed is returned when a seed or secret URI cannot be parsed.
	ErrInvalidSeed = errors.New("keystore: invalid seed")

	// ErrPublicKeyMismatch is returned when secret material does not derive to
	// the supplied public key.
	ErrPublicKeyMismatch = errors.New("keystore: public key mismatch")

	// ErrValidation is returned when signing fails for a key that exists.
	ErrValidation = errors.New("keystore: validation error")

	// ErrUnavailable is returned when the keystore cannot be reached or the
	// operation is not offered by this backend.
	ErrUnavailable = errors.New("keystore: unavailable")

	// ErrProtocolViolation is returned when a peer answers with a message
	// that does not pair with the request. It always accompanies
	// ErrUnavailable so callers checking for unavailability still match.
	ErrProtocolViolation = errors.New("keystore: protocol violation")

	// ErrOther covers remote failures with no local equivalent.
	ErrOther = errors.New("keystore: remote failure")
)

// IsUnavailable reports whether err means the keystore could not serve the
// request at all, as opposed to a domain answer.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
