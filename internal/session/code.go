package session

import (
	"math/rand/v2"
	"strings"
)

const codeLength = 4
const maxRetries = 100

// I and O are left out so codes read unambiguously next to 1 and 0.
var letters = []rune("ABCDEFGHJKLMNPQRSTUVWXYZ")

// GenerateCode creates a random 4-letter join code not present in existing.
func GenerateCode(existing map[string]bool) string {
	for range maxRetries {
		code := randomCode()
		if !existing[code] {
			return code
		}
	}
	return randomCode()
}

// NormalizeCode canonicalizes user-typed codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code could have been produced by GenerateCode.
func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(string(letters), r) {
			return false
		}
	}
	return true
}

func randomCode() string {
	b := make([]rune, codeLength)
	for i := range b {
		b[i] = letters[rand.IntN(len(letters))]
	}
	return string(b)
}
