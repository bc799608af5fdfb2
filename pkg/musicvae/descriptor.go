// Package musicvae describes MusicVAE architectures, data converters and
// note-sequence augmenters as plain values. The descriptors carry no model
// code; they are encoded to JSON and handed to the inference backend.
package musicvae

import (
	"encoding/json"
	"fmt"
)

// Descriptor is implemented by every architecture, converter and augmenter
// value. Clone returns a copy sharing no slices with the receiver.
type Descriptor interface {
	Kind() string
	Clone() Descriptor
}

// Clone copies d, keeping nil as nil.
func Clone(d Descriptor) Descriptor {
	if d == nil {
		return nil
	}
	return d.Clone()
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	return append([]int(nil), in...)
}

type encoded struct {
	Kind   string `json:"kind"`
	Params any    `json:"params,omitempty"`
}

func marshalKind(kind string, params any) ([]byte, error) {
	return json.Marshal(encoded{Kind: kind, Params: params})
}

// Encode renders a descriptor tree as {"kind": ..., "params": {...}}. A nil
// descriptor encodes as JSON null.
func Encode(d Descriptor) (json.RawMessage, error) {
	if d == nil {
		return json.RawMessage("null"), nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", d.Kind(), err)
	}
	return data, nil
}
