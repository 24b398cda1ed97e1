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

// Package protocol defines the request and response messages exchanged
// between a keystore client and server, their CBOR wire encoding, and the
// dispatcher that executes a request against a local keystore.
//
// Each request variant pairs with exactly one response variant sharing the
// same Op code.
package protocol

import "fmt"

// Op identifies an operation on the wire. Values are stable.
type Op uint8

// Operation codes, one per request and response pair.
const (
	OpPublicKeys    Op = iota + 1 // list public keys of a scheme
	OpGenerateNew                 // generate or derive a key pair
	OpInsertUnknown               // insert a pair from a secret URI
	OpSupportedKeys               // filter candidates to held keys
	OpKeys                        // list every held key of a key type
	OpHasKeys                     // check that keys are held
	OpSignWith                    // sign with one key
	OpSignWithAny                 // sign with the first held candidate
	OpSignWithAll                 // sign with every candidate
	OpVRFSign                     // sr25519 VRF signature
)

var opNames = map[Op]string{
	OpPublicKeys:    "public_keys",
	OpGenerateNew:   "generate_new",
	OpInsertUnknown: "insert_unknown",
	OpSupportedKeys: "supported_keys",
	OpKeys:          "keys",
	OpHasKeys:       "has_keys",
	OpSignWith:      "sign_with",
	OpSignWithAny:   "sign_with_any",
	OpSignWithAll:   "sign_with_all",
	OpVRFSign:       "vrf_sign",
}

// Ops returns every defined operation in code order.
func Ops() []Op {
	ops := make([]Op, 0, len(opNames))
	for op := OpPublicKeys; op <= OpVRFSign; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Valid reports whether o is a defined operation.
func (o Op) Valid() bool {
	_, ok := opNames[o]
	return ok
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Request is one of the *Request message types in this package.
type Request interface {
	Op() Op
	isRequest()
}

// Response is one of the *Response message types in this package.
type Response interface {
	Op() Op
	// Err returns the domain error the operation produced, if any.
	Err() error
	isResponse()
}
