// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes v on a single line with ", " between elements and
// ": " after object keys. HTML characters are not escaped and non-ASCII
// text is kept as UTF-8.
func MarshalJSON(v any) (string, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return "", fmt.Errorf("encoding artifact JSON: %w", err)
	}
	compact := bytes.TrimSuffix(buffer.Bytes(), []byte("\n"))
	return string(spaceSeparators(compact)), nil
}

// spaceSeparators inserts a space after every ',' and ':' that sits
// outside a string literal of compact JSON.
func spaceSeparators(compact []byte) []byte {
	out := make([]byte, 0, len(compact)+len(compact)/8)
	inString := false
	escaped := false
	for _, c := range compact {
		out = append(out, c)
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && (c == ',' || c == ':'):
			out = append(out, ' ')
		}
	}
	return out
}
