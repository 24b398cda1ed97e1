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
	"encoding/json"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

type keyJSON struct {
	Scheme string `json:"scheme"`
	Public string `json:"public"`
}

func toKeyJSON(h types.PublicKeyHandle) keyJSON {
	return keyJSON{Scheme: h.Scheme.Name(), Public: encodeHex(h.Public)}
}

// PrintKeys prints key handles, one per line in text mode
func (p *Printer) PrintKeys(keys []types.PublicKeyHandle) error {
	if p.format == OutputFormatJSON {
		list := make([]keyJSON, len(keys))
		for i, k := range keys {
			list[i] = toKeyJSON(k)
		}
		return p.printJSON(map[string]any{"keys": list})
	}
	if len(keys) == 0 {
		fmt.Fprintln(p.writer, "No keys found")
		return nil
	}
	for _, k := range keys {
		fmt.Fprintf(p.writer, "%s:%s\n", k.Scheme.Name(), encodeHex(k.Public))
	}
	return nil
}

// PrintPublicKeys prints raw public keys of one scheme
func (p *Printer) PrintPublicKeys(scheme types.Scheme, keys [][]byte) error {
	handles := make([]types.PublicKeyHandle, len(keys))
	for i, k := range keys {
		handles[i] = types.NewHandle(scheme, k)
	}
	return p.PrintKeys(handles)
}

// PrintKey prints a single key handle
func (p *Printer) PrintKey(key types.PublicKeyHandle) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(toKeyJSON(key))
	}
	fmt.Fprintf(p.writer, "%s:%s\n", key.Scheme.Name(), encodeHex(key.Public))
	return nil
}

// PrintBool prints a named boolean result
func (p *Printer) PrintBool(name string, value bool) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{name: value})
	}
	fmt.Fprintln(p.writer, value)
	return nil
}

// PrintSignature prints a signature and the key that produced it
func (p *Printer) PrintSignature(key types.PublicKeyHandle, sig []byte) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{
			"key":       toKeyJSON(key),
			"signature": encodeHex(sig),
		})
	}
	fmt.Fprintf(p.writer, "Key:       %s:%s\n", key.Scheme.Name(), encodeHex(key.Public))
	fmt.Fprintf(p.writer, "Signature: %s\n", encodeHex(sig))
	return nil
}

// PrintSignResults prints the outcome of every candidate
func (p *Printer) PrintSignResults(results []types.SignResult) error {
	if p.format == OutputFormatJSON {
		type resultJSON struct {
			Key       keyJSON `json:"key"`
			Signature string  `json:"signature,omitempty"`
			Error     string  `json:"error,omitempty"`
		}
		list := make([]resultJSON, len(results))
		for i, r := range results {
			list[i].Key = toKeyJSON(r.Key)
			if r.OK() {
				list[i].Signature = encodeHex(r.Signature)
			} else {
				list[i].Error = r.Err.Error()
			}
		}
		return p.printJSON(map[string]any{"results": list})
	}
	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(p.writer, "%s:%s %s\n", r.Key.Scheme.Name(), encodeHex(r.Key.Public), encodeHex(r.Signature))
		} else {
			fmt.Fprintf(p.writer, "%s:%s error: %v\n", r.Key.Scheme.Name(), encodeHex(r.Key.Public), r.Err)
		}
	}
	return nil
}

// PrintVRF prints a VRF output and proof
func (p *Printer) PrintVRF(sig *types.VRFSignature) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{
			"output": encodeHex(sig.Output[:]),
			"proof":  encodeHex(sig.Proof[:]),
		})
	}
	fmt.Fprintf(p.writer, "Output: %s\n", encodeHex(sig.Output[:]))
	fmt.Fprintf(p.writer, "Proof:  %s\n", encodeHex(sig.Proof[:]))
	return nil
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{
			"status":  "success",
			"message": message,
		})
	}
	fmt.Fprintln(p.writer, message)
	return nil
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{
			"status": "error",
			"error":  err.Error(),
		})
	}
	_, werr := fmt.Fprintf(p.writer, "Error: %v\n", err)
	return werr
}

func (p *Printer) printJSON(v any) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func encodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
