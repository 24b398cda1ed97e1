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

// NormalizeRequest returns the value form of req. Pointer variants satisfy
// Request through their value methods; they are dereferenced so callers
// only ever switch on values. A nil pointer is malformed.
func NormalizeRequest(req Request) (Request, error) {
	switch r := req.(type) {
	case nil:
		return nil, malformed("nil request")
	case *PublicKeysRequest:
		return deref[PublicKeysRequest, Request](r)
	case *GenerateNewRequest:
		return deref[GenerateNewRequest, Request](r)
	case *InsertUnknownRequest:
		return deref[InsertUnknownRequest, Request](r)
	case *SupportedKeysRequest:
		return deref[SupportedKeysRequest, Request](r)
	case *KeysRequest:
		return deref[KeysRequest, Request](r)
	case *HasKeysRequest:
		return deref[HasKeysRequest, Request](r)
	case *SignWithRequest:
		return deref[SignWithRequest, Request](r)
	case *SignWithAnyRequest:
		return deref[SignWithAnyRequest, Request](r)
	case *SignWithAllRequest:
		return deref[SignWithAllRequest, Request](r)
	case *VRFSignRequest:
		return deref[VRFSignRequest, Request](r)
	default:
		return req, nil
	}
}

// NormalizeResponse returns the value form of resp.
func NormalizeResponse(resp Response) (Response, error) {
	switch r := resp.(type) {
	case nil:
		return nil, malformed("nil response")
	case *PublicKeysResponse:
		return deref[PublicKeysResponse, Response](r)
	case *GenerateNewResponse:
		return deref[GenerateNewResponse, Response](r)
	case *InsertUnknownResponse:
		return deref[InsertUnknownResponse, Response](r)
	case *SupportedKeysResponse:
		return deref[SupportedKeysResponse, Response](r)
	case *KeysResponse:
		return deref[KeysResponse, Response](r)
	case *HasKeysResponse:
		return deref[HasKeysResponse, Response](r)
	case *SignWithResponse:
		return deref[SignWithResponse, Response](r)
	case *SignWithAnyResponse:
		return deref[SignWithAnyResponse, Response](r)
	case *SignWithAllResponse:
		return deref[SignWithAllResponse, Response](r)
	case *VRFSignResponse:
		return deref[VRFSignResponse, Response](r)
	default:
		return resp, nil
	}
}

func deref[T any, I any](p *T) (I, error) {
	var zero I
	if p == nil {
		return zero, malformed("nil %T", p)
	}
	return any(*p).(I), nil
}
