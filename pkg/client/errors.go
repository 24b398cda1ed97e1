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

package client

import (
	"fmt"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/protocol"
)

// TransportError reports that a call could not complete because the
// connection failed. It matches keystore.ErrUnavailable.
type TransportError struct {
	// Op is the operation in flight, or zero while dialing.
	Op  protocol.Op
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == 0 {
		return fmt.Sprintf("keystore client: dial: %v", e.Err)
	}
	return fmt.Sprintf("keystore client: %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{keystore.ErrUnavailable, e.Err}
}

// ProtocolError reports a response that does not pair with its request. It
// matches both keystore.ErrProtocolViolation and keystore.ErrUnavailable.
type ProtocolError struct {
	Op  protocol.Op
	Got protocol.Op
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keystore client: %s: protocol violation: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("keystore client: %s: protocol violation: got %s response", e.Op, e.Got)
}

func (e *ProtocolError) Unwrap() []error {
	errs := []error{keystore.ErrProtocolViolation, keystore.ErrUnavailable}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
