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
	"github.com/fxamacker/cbor/v2"
)

// envelope is the outer frame shared by requests and responses.
type envelope struct {
	Op   Op     `cbor:"1,keyasint"`
	Body []byte `cbor:"2,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// EncodeRequest serializes a request into a single frame.
func EncodeRequest(req Request) ([]byte, error) {
	req, err := NormalizeRequest(req)
	if err != nil {
		return nil, err
	}
	return encode(req.Op(), req)
}

// EncodeResponse serializes a response into a single frame.
func EncodeResponse(resp Response) ([]byte, error) {
	resp, err := NormalizeResponse(resp)
	if err != nil {
		return nil, err
	}
	return encode(resp.Op(), resp)
}

// DecodeRequest parses a frame produced by EncodeRequest.
func DecodeRequest(data []byte) (Request, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch env.Op {
	case OpPublicKeys:
		return decodeBody[PublicKeysRequest, Request](env)
	case OpGenerateNew:
		return decodeBody[GenerateNewRequest, Request](env)
	case OpInsertUnknown:
		return decodeBody[InsertUnknownRequest, Request](env)
	case OpSupportedKeys:
		return decodeBody[SupportedKeysRequest, Request](env)
	case OpKeys:
		return decodeBody[KeysRequest, Request](env)
	case OpHasKeys:
		return decodeBody[HasKeysRequest, Request](env)
	case OpSignWith:
		return decodeBody[SignWithRequest, Request](env)
	case OpSignWithAny:
		return decodeBody[SignWithAnyRequest, Request](env)
	case OpSignWithAll:
		return decodeBody[SignWithAllRequest, Request](env)
	case OpVRFSign:
		return decodeBody[VRFSignRequest, Request](env)
	default:
		return nil, unknownOp(env.Op)
	}
}

// DecodeResponse parses a frame produced by EncodeResponse.
func DecodeResponse(data []byte) (Response, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch env.Op {
	case OpPublicKeys:
		return decodeBody[PublicKeysResponse, Response](env)
	case OpGenerateNew:
		return decodeBody[GenerateNewResponse, Response](env)
	case OpInsertUnknown:
		return decodeBody[InsertUnknownResponse, Response](env)
	case OpSupportedKeys:
		return decodeBody[SupportedKeysResponse, Response](env)
	case OpKeys:
		return decodeBody[KeysResponse, Response](env)
	case OpHasKeys:
		return decodeBody[HasKeysResponse, Response](env)
	case OpSignWith:
		return decodeBody[SignWithResponse, Response](env)
	case OpSignWithAny:
		return decodeBody[SignWithAnyResponse, Response](env)
	case OpSignWithAll:
		return decodeBody[SignWithAllResponse, Response](env)
	case OpVRFSign:
		return decodeBody[VRFSignResponse, Response](env)
	default:
		return nil, unknownOp(env.Op)
	}
}

func encode(op Op, body any) ([]byte, error) {
	if !op.Valid() {
		return nil, unknownOp(op)
	}
	raw, err := encMode.Marshal(body)
	if err != nil {
		return nil, malformed("encode %s body: %v", op, err)
	}
	frame, err := encMode.Marshal(envelope{Op: op, Body: raw})
	if err != nil {
		return nil, malformed("encode %s envelope: %v", op, err)
	}
	return frame, nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if len(data) == 0 {
		return env, malformed("empty frame")
	}
	if err := decMode.Unmarshal(data, &env); err != nil {
		return env, malformed("envelope: %v", err)
	}
	return env, nil
}

// decodeBody unmarshals the envelope body as T and returns it as I.
func decodeBody[T any, I any](env envelope) (I, error) {
	var zero I
	var v T
	if len(env.Body) == 0 {
		return zero, malformed("%s: empty body", env.Op)
	}
	if err := decMode.Unmarshal(env.Body, &v); err != nil {
		return zero, malformed("%s: %v", env.Op, err)
	}
	return any(v).(I), nil
}

func unknownOp(op Op) error {
	return &UnknownOperationError{Op: op}
}

// UnknownOperationError reports the undefined op code that was seen.
type UnknownOperationError struct {
	Op Op
}

func (e *UnknownOperationError) Error() string {
	return ErrUnknownOperation.Error() + ": " + e.Op.String()
}

func (e *UnknownOperationError) Is(target error) bool {
	return target == ErrUnknownOperation
}
