package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanName normalizes a name coming out of an exported file so that
// lookups by name (bones, animation channels, meshes) compare equal even
// when two tools emitted different unicode forms of the same string.
func CleanName(s string) string {
	s = strings.TrimRight(s, "\x00")
	s = strings.TrimSpace(s)
	return norm.NFC.String(s)
}
