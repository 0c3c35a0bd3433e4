// Package canon serializes values to canonical JSON: object keys sorted at
// every level, two-space indentation, arrays in their given order, and no
// HTML escaping. Equal values always produce equal bytes.
package canon

import (
	"bytes"
	"encoding/json"
	"io"

	"gitlab.com/tozd/go/errors"
)

// Marshal returns the canonical encoding of v followed by a newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes v canonically to w.
func Write(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Errorf("canonicalize: %w", err)
	}

	// Decoding into interface values turns every object into a map, which
	// encoding/json writes with sorted keys. UseNumber keeps numbers verbatim.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return errors.Errorf("canonicalize: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return errors.Errorf("write canonical json: %w", err)
	}
	return nil
}
