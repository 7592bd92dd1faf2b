// Package sanitize normalizes identifiers and validates untrusted input
// before it reaches storage keys or the filesystem.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// MaxIdentifierLength is the longest collection name chromem and Qdrant accept.
	MaxIdentifierLength = 64

	// hashSuffixLength is len("_") plus eight hex characters.
	hashSuffixLength = 9

	// DefaultIdentifier is returned when nothing valid is left.
	DefaultIdentifier = "default"
)

// Identifier lowercases s, maps everything outside [a-z0-9_] to an
// underscore, collapses and trims underscores, and truncates with a hash
// suffix past MaxIdentifierLength.
//
//	"DART-Documents" -> "dart_documents"
//	"공시 2024"        -> "2024"
//	"" or "!!!"       -> "default"
func Identifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	out = strings.Trim(out, "_")

	if out == "" {
		return DefaultIdentifier
	}
	if len(out) > MaxIdentifierLength {
		out = truncateWithHash(out)
	}
	return out
}

// truncateWithHash keeps distinct long names distinct after truncation.
func truncateWithHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	base := strings.TrimRight(s[:MaxIdentifierLength-hashSuffixLength], "_")
	return base + "_" + hex.EncodeToString(sum[:])[:8]
}
