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
	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
)

// Dispatch executes req against ks and wraps the result in the matching
// response variant. Value and pointer forms of a request are equivalent.
// Domain errors travel inside the response; the error result is only set
// for nil requests and request types this package does not define.
func Dispatch(ks keystore.KeyStore, req Request) (Response, error) {
	req, err := NormalizeRequest(req)
	if err != nil {
		return nil, err
	}
	switch r := req.(type) {
	case PublicKeysRequest:
		keys, err := ks.PublicKeys(r.Scheme, r.KeyType)
		return PublicKeysResponse{Keys: keys, Error: NewWireError(err)}, nil

	case GenerateNewRequest:
		pub, err := ks.GenerateNew(r.Scheme, r.KeyType, r.Seed)
		return GenerateNewResponse{Public: pub, Error: NewWireError(err)}, nil

	case InsertUnknownRequest:
		err := ks.InsertUnknown(r.KeyType, r.SURI, r.Public)
		return InsertUnknownResponse{Error: NewWireError(err)}, nil

	case SupportedKeysRequest:
		keys, err := ks.SupportedKeys(r.KeyType, r.Keys)
		return SupportedKeysResponse{Keys: keys, Error: NewWireError(err)}, nil

	case KeysRequest:
		keys, err := ks.Keys(r.KeyType)
		return KeysResponse{Keys: keys, Error: NewWireError(err)}, nil

	case HasKeysRequest:
		has, err := ks.HasKeys(r.Keys)
		return HasKeysResponse{Has: has, Error: NewWireError(err)}, nil

	case SignWithRequest:
		sig, err := ks.SignWith(r.KeyType, r.Key, r.Msg)
		return SignWithResponse{Signature: sig, Error: NewWireError(err)}, nil

	case SignWithAnyRequest:
		key, sig, err := ks.SignWithAny(r.KeyType, r.Keys, r.Msg)
		if err != nil {
			return SignWithAnyResponse{Error: NewWireError(err)}, nil
		}
		return SignWithAnyResponse{Key: &key, Signature: sig}, nil

	case SignWithAllRequest:
		results, err := ks.SignWithAll(r.KeyType, r.Keys, r.Msg)
		var outcomes []SignOutcome
		if results != nil {
			outcomes = FromSignResults(results)
		}
		return SignWithAllResponse{Results: outcomes, Error: NewWireError(err)}, nil

	case VRFSignRequest:
		sig, err := ks.VRFSign(r.KeyType, r.Public, r.Transcript)
		return VRFSignResponse{Signature: sig, Error: NewWireError(err)}, nil

	default:
		return nil, unknownOp(req.Op())
	}
}
