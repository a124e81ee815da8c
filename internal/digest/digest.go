// Package digest is the content hash oracle. Every trust comparison in
// the system reduces to equality of the values produced here, so the
// algorithm is fixed: SHA-256, rendered as lowercase hex. Changing it
// invalidates every previously trusted entry and is a breaking
// configuration change.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Entry is one authorized content digest: lowercase hex, no metadata.
// Equality is exact string equality.
type Entry string

// Sum returns the digest of the given script source text.
// Deterministic: byte-identical input yields byte-identical output.
func Sum(source string) Entry {
	h := sha256.Sum256([]byte(source))
	return Entry(hex.EncodeToString(h[:]))
}

// Normalize case-normalizes a digest value read from configuration or
// a trust-list line. No shape validation: a value of the wrong length
// simply never matches anything.
func Normalize(s string) Entry {
	return Entry(strings.ToLower(strings.TrimSpace(s)))
}

// Short returns an abbreviated form for log lines and placeholders.
func (e Entry) Short() string {
	if len(e) <= 12 {
		return string(e)
	}
	return string(e[:12])
}
