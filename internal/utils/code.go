package utils

import (
	"strings"

	"github.com/google/uuid"
)

// ScanCodeLength is the number of characters a ticket scanner emits.
const ScanCodeLength = 16

// NewScanCode returns a random upper-case hex ticket code of
// ScanCodeLength characters, taken from a version 4 UUID.
func NewScanCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:ScanCodeLength])
}

// NewScanCodes returns n distinct scan codes.
func NewScanCodes(n int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		c := NewScanCode()
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
