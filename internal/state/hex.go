package state

import (
	"bytes"
	"encoding/hex"
)

// Hex renders an encoded state as the lowercase hexadecimal line format
// state.log uses (spec.md section 4.1): one record per line, no
// separators, terminated by the caller with a newline.
func Hex(encoded []byte) string {
	return hex.EncodeToString(encoded)
}

// FromHex parses a single state.log record back into its encoded bytes.
func FromHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// Compare gives the total byte-lexicographic order spec.md section 3
// requires states to admit; it also doubles as the "sort encoded-state
// bytes ascending" step the deterministic parallel explorer performs
// (spec.md section 4.4).
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}
