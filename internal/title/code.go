package title

import "strings"

// LooksLikeCode reports whether a candidate title is a short alphanumeric
// placeholder code (e.g. "53BA", "1S2Q") rather than a real title. Purely
// numeric titles are never codes; the upstream catalog has movies literally
// named "96".
func LooksLikeCode(raw string) bool {
	value := strings.TrimSpace(raw)
	if value == "" {
		return false
	}
	if IsDigits(value) {
		return false
	}
	if len(strings.Fields(value)) != 1 {
		return false
	}

	hasDigit := false
	letters := make([]rune, 0, len(value))
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			letters = append(letters, r)
		default:
			return false
		}
	}
	if len(value) < 2 || len(value) > 8 {
		return false
	}

	noVowel := len(letters) > 0
	for _, r := range letters {
		switch r {
		case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
			noVowel = false
		}
	}
	return hasDigit || noVowel
}

// IsDigits reports whether the string is non-empty and all decimal digits.
func IsDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
