// Package checksum computes the content digests used for optimistic
// concurrency and index change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether want (an If-Match value, quoted or bare) names
// the digest of data. An empty want always matches.
func Matches(data []byte, want string) bool {
	want = strings.Trim(strings.TrimSpace(want), `"`)
	if want == "" || want == "*" {
		return true
	}
	return want == Sum(data)
}
