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

package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

var errBadArgument = errors.New("invalid argument")

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: hex %q: %v", errBadArgument, s, err)
	}
	return b, nil
}

func parseKeyType(s string) (types.KeyTypeID, error) {
	id, err := types.ParseKeyTypeID(s)
	if err != nil {
		return id, fmt.Errorf("%w: key type %q: %v", errBadArgument, s, err)
	}
	return id, nil
}

func parseScheme(s string) (types.Scheme, error) {
	scheme, err := types.ParseScheme(s)
	if err != nil {
		return scheme, fmt.Errorf("%w: %v", errBadArgument, err)
	}
	return scheme, nil
}

// parseHandle parses "<scheme>:<hex public key>".
func parseHandle(s string) (types.PublicKeyHandle, error) {
	name, pub, ok := strings.Cut(s, ":")
	if !ok {
		return types.PublicKeyHandle{}, fmt.Errorf("%w: key %q must be <scheme>:<hex>", errBadArgument, s)
	}
	scheme, err := parseScheme(name)
	if err != nil {
		return types.PublicKeyHandle{}, err
	}
	public, err := parseHex(pub)
	if err != nil {
		return types.PublicKeyHandle{}, err
	}
	return types.NewHandle(scheme, public), nil
}

func parseHandles(args []string) ([]types.PublicKeyHandle, error) {
	handles := make([]types.PublicKeyHandle, 0, len(args))
	for _, a := range args {
		h, err := parseHandle(a)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// parseRef parses "<key type>:<hex public key>".
func parseRef(s string) (types.PublicKeyRef, error) {
	kt, pub, ok := strings.Cut(s, ":")
	if !ok {
		return types.PublicKeyRef{}, fmt.Errorf("%w: %q must be <key type>:<hex>", errBadArgument, s)
	}
	id, err := parseKeyType(kt)
	if err != nil {
		return types.PublicKeyRef{}, err
	}
	public, err := parseHex(pub)
	if err != nil {
		return types.PublicKeyRef{}, err
	}
	return types.PublicKeyRef{Public: public, KeyType: id}, nil
}

// parseItem parses a transcript item: "<label>=<hex>" or "<label>=u64:<n>".
func parseItem(s string) (types.VRFTranscriptItem, error) {
	label, value, ok := strings.Cut(s, "=")
	if !ok || label == "" {
		return types.VRFTranscriptItem{}, fmt.Errorf("%w: item %q must be <label>=<value>", errBadArgument, s)
	}
	if n, isU64 := strings.CutPrefix(value, "u64:"); isU64 {
		v, err := strconv.ParseUint(n, 10, 64)
		if err != nil {
			return types.VRFTranscriptItem{}, fmt.Errorf("%w: item %q: %v", errBadArgument, s, err)
		}
		return types.U64Item(label, v), nil
	}
	b, err := parseHex(value)
	if err != nil {
		return types.VRFTranscriptItem{}, err
	}
	return types.BytesItem(label, b), nil
}

func messageBytes(msg string, isHex bool) ([]byte, error) {
	if isHex {
		return parseHex(msg)
	}
	return []byte(msg), nil
}
