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
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

// PublicKeysRequest lists the public keys of one scheme under a key type.
type PublicKeysRequest struct {
	Scheme  types.Scheme    `cbor:"1,keyasint"`
	KeyType types.KeyTypeID `cbor:"2,keyasint"`
}

// GenerateNewRequest carries an optional secret URI; empty means random.
type GenerateNewRequest struct {
	Scheme  types.Scheme    `cbor:"1,keyasint"`
	KeyType types.KeyTypeID `cbor:"2,keyasint"`
	Seed    string          `cbor:"3,keyasint,omitempty"`
}

// InsertUnknownRequest stores the pair a secret URI derives to, provided it
// matches Public.
type InsertUnknownRequest struct {
	KeyType types.KeyTypeID `cbor:"1,keyasint"`
	SURI    string          `cbor:"2,keyasint"`
	Public  []byte          `cbor:"3,keyasint"`
}

// SupportedKeysRequest filters Keys down to those held under KeyType.
type SupportedKeysRequest struct {
	KeyType types.KeyTypeID         `cbor:"1,keyasint"`
	Keys    []types.PublicKeyHandle `cbor:"2,keyasint"`
}

// KeysRequest lists every key held under KeyType.
type KeysRequest struct {
	KeyType types.KeyTypeID `cbor:"1,keyasint"`
}

// HasKeysRequest asks whether every listed key is held.
type HasKeysRequest struct {
	Keys []types.PublicKeyRef `cbor:"1,keyasint"`
}

// SignWithRequest signs Msg with one key.
type SignWithRequest struct {
	KeyType types.KeyTypeID       `cbor:"1,keyasint"`
	Key     types.PublicKeyHandle `cbor:"2,keyasint"`
	Msg     []byte                `cbor:"3,keyasint"`
}

// SignWithAnyRequest signs Msg with the first held key of Keys.
type SignWithAnyRequest struct {
	KeyType types.KeyTypeID         `cbor:"1,keyasint"`
	Keys    []types.PublicKeyHandle `cbor:"2,keyasint"`
	Msg     []byte                  `cbor:"3,keyasint"`
}

// SignWithAllRequest signs Msg with every key of Keys.
type SignWithAllRequest struct {
	KeyType types.KeyTypeID         `cbor:"1,keyasint"`
	Keys    []types.PublicKeyHandle `cbor:"2,keyasint"`
	Msg     []byte                  `cbor:"3,keyasint"`
}

// VRFSignRequest evaluates the VRF of the sr25519 key Public over Transcript.
type VRFSignRequest struct {
	KeyType    types.KeyTypeID     `cbor:"1,keyasint"`
	Public     []byte              `cbor:"2,keyasint"`
	Transcript types.VRFTranscript `cbor:"3,keyasint"`
}

func (PublicKeysRequest) Op() Op    { return OpPublicKeys }
func (GenerateNewRequest) Op() Op   { return OpGenerateNew }
func (InsertUnknownRequest) Op() Op { return OpInsertUnknown }
func (SupportedKeysRequest) Op() Op { return OpSupportedKeys }
func (KeysRequest) Op() Op          { return OpKeys }
func (HasKeysRequest) Op() Op       { return OpHasKeys }
func (SignWithRequest) Op() Op      { return OpSignWith }
func (SignWithAnyRequest) Op() Op   { return OpSignWithAny }
func (SignWithAllRequest) Op() Op   { return OpSignWithAll }
func (VRFSignRequest) Op() Op       { return OpVRFSign }

func (PublicKeysRequest) isRequest()    {}
func (GenerateNewRequest) isRequest()   {}
func (InsertUnknownRequest) isRequest() {}
func (SupportedKeysRequest) isRequest() {}
func (KeysRequest) isRequest()          {}
func (HasKeysRequest) isRequest()       {}
func (SignWithRequest) isRequest()      {}
func (SignWithAnyRequest) isRequest()   {}
func (SignWithAllRequest) isRequest()   {}
func (VRFSignRequest) isRequest()       {}

// Responses carry their result fields and, on failure, a WireError under
// key 15.

type PublicKeysResponse struct {
	Keys  [][]byte   `cbor:"1,keyasint"`
	Error *WireError `cbor:"15,keyasint,omitempty"`
}

type GenerateNewResponse struct {
	Public []byte     `cbor:"1,keyasint"`
	Error  *WireError `cbor:"15,keyasint,omitempty"`
}

type InsertUnknownResponse struct {
	Error *WireError `cbor:"15,keyasint,omitempty"`
}

type SupportedKeysResponse struct {
	Keys  []types.PublicKeyHandle `cbor:"1,keyasint"`
	Error *WireError              `cbor:"15,keyasint,omitempty"`
}

type KeysResponse struct {
	Keys  []types.PublicKeyHandle `cbor:"1,keyasint"`
	Error *WireError              `cbor:"15,keyasint,omitempty"`
}

type HasKeysResponse struct {
	Has   bool       `cbor:"1,keyasint"`
	Error *WireError `cbor:"15,keyasint,omitempty"`
}

type SignWithResponse struct {
	Signature []byte     `cbor:"1,keyasint"`
	Error     *WireError `cbor:"15,keyasint,omitempty"`
}

// SignWithAnyResponse names the key that signed; Key is nil on failure.
type SignWithAnyResponse struct {
	Key       *types.PublicKeyHandle `cbor:"1,keyasint,omitempty"`
	Signature []byte                 `cbor:"2,keyasint"`
	Error     *WireError             `cbor:"15,keyasint,omitempty"`
}

// SignOutcome is one entry of a SignWithAllResponse.
type SignOutcome struct {
	Key       types.PublicKeyHandle `cbor:"1,keyasint"`
	Signature []byte                `cbor:"2,keyasint"`
	Error     *WireError            `cbor:"15,keyasint,omitempty"`
}

type SignWithAllResponse struct {
	Results []SignOutcome `cbor:"1,keyasint"`
	Error   *WireError    `cbor:"15,keyasint,omitempty"`
}

type VRFSignResponse struct {
	Signature *types.VRFSignature `cbor:"1,keyasint,omitempty"`
	Error     *WireError          `cbor:"15,keyasint,omitempty"`
}

func (PublicKeysResponse) Op() Op    { return OpPublicKeys }
func (GenerateNewResponse) Op() Op   { return OpGenerateNew }
func (InsertUnknownResponse) Op() Op { return OpInsertUnknown }
func (SupportedKeysResponse) Op() Op { return OpSupportedKeys }
func (KeysResponse) Op() Op          { return OpKeys }
func (HasKeysResponse) Op() Op       { return OpHasKeys }
func (SignWithResponse) Op() Op      { return OpSignWith }
func (SignWithAnyResponse) Op() Op   { return OpSignWithAny }
func (SignWithAllResponse) Op() Op   { return OpSignWithAll }
func (VRFSignResponse) Op() Op       { return OpVRFSign }

func (r PublicKeysResponse) Err() error    { return r.Error.Err() }
func (r GenerateNewResponse) Err() error   { return r.Error.Err() }
func (r InsertUnknownResponse) Err() error { return r.Error.Err() }
func (r SupportedKeysResponse) Err() error { return r.Error.Err() }
func (r KeysResponse) Err() error          { return r.Error.Err() }
func (r HasKeysResponse) Err() error       { return r.Error.Err() }
func (r SignWithResponse) Err() error      { return r.Error.Err() }
func (r SignWithAnyResponse) Err() error   { return r.Error.Err() }
func (r SignWithAllResponse) Err() error   { return r.Error.Err() }
func (r VRFSignResponse) Err() error       { return r.Error.Err() }

func (PublicKeysResponse) isResponse()    {}
func (GenerateNewResponse) isResponse()   {}
func (InsertUnknownResponse) isResponse() {}
func (SupportedKeysResponse) isResponse() {}
func (KeysResponse) isResponse()          {}
func (HasKeysResponse) isResponse()       {}
func (SignWithResponse) isResponse()      {}
func (SignWithAnyResponse) isResponse()   {}
func (SignWithAllResponse) isResponse()   {}
func (VRFSignResponse) isResponse()       {}

// ToSignResults converts wire outcomes into per-key results.
func (r SignWithAllResponse) ToSignResults() []types.SignResult {
	results := make([]types.SignResult, 0, len(r.Results))
	for _, o := range r.Results {
		results = append(results, types.SignResult{Key: o.Key, Signature: o.Signature, Err: o.Error.Err()})
	}
	return results
}

// FromSignResults converts per-key results into wire outcomes.
func FromSignResults(results []types.SignResult) []SignOutcome {
	out := make([]SignOutcome, 0, len(results))
	for _, r := range results {
		out = append(out, SignOutcome{Key: r.Key, Signature: r.Signature, Error: NewWireError(r.Err)})
	}
	return out
}
