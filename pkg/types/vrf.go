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

package types

import "encoding/binary"

// VRFOutputSize is the size of an sr25519 VRF output.
const VRFOutputSize = 32

// VRFProofSize is the size of an sr25519 VRF proof.
const VRFProofSize = 64

// VRFItemKind distinguishes transcript item payloads.
type VRFItemKind uint8

const (
	// VRFItemBytes carries raw bytes.
	VRFItemBytes VRFItemKind = iota
	// VRFItemU64 carries a little-endian u64.
	VRFItemU64
)

// VRFTranscriptItem is one labelled message appended to a VRF transcript.
type VRFTranscriptItem struct {
	Label string      `cbor:"1,keyasint" json:"label"`
	Kind  VRFItemKind `cbor:"2,keyasint" json:"kind"`
	Bytes []byte      `cbor:"3,keyasint,omitempty" json:"bytes,omitempty"`
	U64   uint64      `cbor:"4,keyasint,omitempty" json:"u64,omitempty"`
}

// Message returns the bytes appended to the transcript for this item.
func (i VRFTranscriptItem) Message() []byte {
	if i.Kind == VRFItemU64 {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], i.U64)
		return buf[:]
	}
	return i.Bytes
}

// VRFTranscript describes the transcript a VRF signature is computed over.
type VRFTranscript struct {
	Label string              `cbor:"1,keyasint" json:"label"`
	Items []VRFTranscriptItem `cbor:"2,keyasint" json:"items"`
}

// BytesItem builds a raw bytes transcript item.
func BytesItem(label string, b []byte) VRFTranscriptItem {
	return VRFTranscriptItem{Label: label, Kind: VRFItemBytes, Bytes: b}
}

// U64Item builds a u64 transcript item.
func U64Item(label string, v uint64) VRFTranscriptItem {
	return VRFTranscriptItem{Label: label, Kind: VRFItemU64, U64: v}
}

// VRFSignature is a VRF output together with its proof.
type VRFSignature struct {
	Output [VRFOutputSize]byte `cbor:"1,keyasint" json:"output"`
	Proof  [VRFProofSize]byte  `cbor:"2,keyasint" json:"proof"`
}
