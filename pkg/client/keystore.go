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
	"github.com/jeremyhahn/go-tcp-keystore/pkg/protocol"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

// The methods below return the conservative default (nil, false or the
// zero handle) together with any error, so callers that only look at the
// value see an empty answer when the server cannot be reached.

func (c *Client) PublicKeys(scheme types.Scheme, id types.KeyTypeID) ([][]byte, error) {
	resp, err := call[protocol.PublicKeysResponse](c, protocol.PublicKeysRequest{Scheme: scheme, KeyType: id})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

func (c *Client) GenerateNew(scheme types.Scheme, id types.KeyTypeID, seed string) ([]byte, error) {
	resp, err := call[protocol.GenerateNewResponse](c, protocol.GenerateNewRequest{Scheme: scheme, KeyType: id, Seed: seed})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Public, nil
}

func (c *Client) InsertUnknown(id types.KeyTypeID, suri string, public []byte) error {
	resp, err := call[protocol.InsertUnknownResponse](c, protocol.InsertUnknownRequest{KeyType: id, SURI: suri, Public: public})
	if err != nil {
		return err
	}
	return resp.Err()
}

func (c *Client) SupportedKeys(id types.KeyTypeID, candidates []types.PublicKeyHandle) ([]types.PublicKeyHandle, error) {
	resp, err := call[protocol.SupportedKeysResponse](c, protocol.SupportedKeysRequest{KeyType: id, Keys: candidates})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

func (c *Client) Keys(id types.KeyTypeID) ([]types.PublicKeyHandle, error) {
	resp, err := call[protocol.KeysResponse](c, protocol.KeysRequest{KeyType: id})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

func (c *Client) HasKeys(refs []types.PublicKeyRef) (bool, error) {
	resp, err := call[protocol.HasKeysResponse](c, protocol.HasKeysRequest{Keys: refs})
	if err != nil {
		return false, err
	}
	if err := resp.Err(); err != nil {
		return false, err
	}
	return resp.Has, nil
}

func (c *Client) SignWith(id types.KeyTypeID, key types.PublicKeyHandle, msg []byte) ([]byte, error) {
	resp, err := call[protocol.SignWithResponse](c, protocol.SignWithRequest{KeyType: id, Key: key, Msg: msg})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Signature, nil
}

func (c *Client) SignWithAny(id types.KeyTypeID, candidates []types.PublicKeyHandle, msg []byte) (types.PublicKeyHandle, []byte, error) {
	resp, err := call[protocol.SignWithAnyResponse](c, protocol.SignWithAnyRequest{KeyType: id, Keys: candidates, Msg: msg})
	if err != nil {
		return types.PublicKeyHandle{}, nil, err
	}
	if err := resp.Err(); err != nil {
		return types.PublicKeyHandle{}, nil, err
	}
	if resp.Key == nil {
		return types.PublicKeyHandle{}, nil, &ProtocolError{Op: protocol.OpSignWithAny, Err: errIncomplete}
	}
	return *resp.Key, resp.Signature, nil
}

func (c *Client) SignWithAll(id types.KeyTypeID, candidates []types.PublicKeyHandle, msg []byte) ([]types.SignResult, error) {
	resp, err := call[protocol.SignWithAllResponse](c, protocol.SignWithAllRequest{KeyType: id, Keys: candidates, Msg: msg})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.ToSignResults(), nil
}

func (c *Client) VRFSign(id types.KeyTypeID, public []byte, transcript types.VRFTranscript) (*types.VRFSignature, error) {
	resp, err := call[protocol.VRFSignResponse](c, protocol.VRFSignRequest{KeyType: id, Public: public, Transcript: transcript})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if resp.Signature == nil {
		return nil, &ProtocolError{Op: protocol.OpVRFSign, Err: errIncomplete}
	}
	return resp.Signature, nil
}
