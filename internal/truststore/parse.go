package truststore

import (
	"strings"

	"github.com/fencegate/fencegate/internal/digest"
)

// commentMarker starts an ignored line in a trust-list body.
const commentMarker = "#"

// ParseEntries extracts digest values from a line-oriented trust-list
// body: one digest per line, blank lines and comment lines skipped,
// everything else trimmed and case-normalized. Values are not shape
// validated; a malformed one never matches a real digest.
func ParseEntries(body string) []digest.Entry {
	var entries []digest.Entry
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, commentMarker) {
			continue
		}
		entries = append(entries, digest.Normalize(line))
	}
	return entries
}
