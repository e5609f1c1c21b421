package valueobjects

import (
	"errors"
	"strings"
)

// ErrInvalidKennitala rejects identifiers that do not normalise to ten
// decimal digits.
var ErrInvalidKennitala = errors.New("kennitala must normalise to 10 digits")

// NormalizeKennitala strips separators and whitespace from an Icelandic
// national id and validates the 10-digit decimal form. The normalised form
// is stored only on user-scoped token rows, never on ballots.
func NormalizeKennitala(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ' ':
			// separators are dropped
		default:
			return "", ErrInvalidKennitala
		}
	}
	normalized := b.String()
	if len(normalized) != 10 {
		return "", ErrInvalidKennitala
	}
	return normalized, nil
}
