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
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
)

var (
	// ErrUnknownOperation is returned when a frame names an undefined op.
	ErrUnknownOperation = errors.New("protocol: unknown operation")

	// ErrMalformedMessage is returned when a frame cannot be decoded as the
	// variant its op names.
	ErrMalformedMessage = errors.New("protocol: malformed message")
)

// ErrorCode classifies a domain error on the wire.
type ErrorCode uint8

const (
	CodeOther ErrorCode = iota
	CodeKeyNotSupported
	CodePairNotFound
	CodeInvalidSeed
	CodePublicKeyMismatch
	CodeValidation
	CodeUnavailable
)

var codeSentinels = []struct {
	code ErrorCode
	err  error
}{
	{CodeKeyNotSupported, keystore.ErrKeyNotSupported},
	{CodePairNotFound, keystore.ErrPairNotFound},
	{CodeInvalidSeed, keystore.ErrInvalidSeed},
	{CodePublicKeyMismatch, keystore.ErrPublicKeyMismatch},
	{CodeValidation, keystore.ErrValidation},
	{CodeUnavailable, keystore.ErrUnavailable},
}

// Sentinel returns the keystore error the code stands for.
func (c ErrorCode) Sentinel() error {
	for _, s := range codeSentinels {
		if s.code == c {
			return s.err
		}
	}
	return keystore.ErrOther
}

// WireError is the encoded form of a domain error.
type WireError struct {
	Code    ErrorCode `cbor:"1,keyasint"`
	Message string    `cbor:"2,keyasint"`
}

// NewWireError encodes err, or returns nil for a nil error.
func NewWireError(err error) *WireError {
	if err == nil {
		return nil
	}
	code := CodeOther
	for _, s := range codeSentinels {
		if errors.Is(err, s.err) {
			code = s.code
			break
		}
	}
	return &WireError{Code: code, Message: err.Error()}
}

// Err decodes the wire error. A nil receiver yields nil.
func (w *WireError) Err() error {
	if w == nil {
		return nil
	}
	return &RemoteError{Code: w.Code, Message: w.Message}
}

// RemoteError is a domain error reported by the peer. It matches the
// keystore sentinel for its code under errors.Is.
type RemoteError struct {
	Code    ErrorCode
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Code.Sentinel().Error()
	}
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Code.Sentinel()
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedMessage, fmt.Sprintf(format, args...))
}
