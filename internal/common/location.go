package common

import (
	"regexp"
	"strings"
)

var (
	// 5 digits (78701) or ZIP+4 (78701-1234).
	zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

	// Letters incl. Latin-1 accents, spaces, dots, hyphens, apostrophes; at least 2 chars.
	cityPattern = regexp.MustCompile(`^[a-zA-Z\x{00C0}-\x{00FF}\s.'-]{2,}$`)
)

// IsZip reports whether s is a US ZIP or ZIP+4 code.
func IsZip(s string) bool {
	return zipPattern.MatchString(s)
}

// IsCityName reports whether s looks like a city name.
func IsCityName(s string) bool {
	return cityPattern.MatchString(s)
}

// ValidLocation reports whether the trimmed term is a city name or a ZIP code.
func ValidLocation(term string) bool {
	term = strings.TrimSpace(term)
	return IsZip(term) || IsCityName(term)
}
