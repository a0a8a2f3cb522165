// utils/shortcode.go
package utils

import (
	"crypto/rand"
	"fmt"
)

// shortCodeAlphabet is the 36-symbol space shared by referral codes and
// shared-cart links
const shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ShortCodeLength is the fixed length of generated codes
const ShortCodeLength = 6

// GenerateShortCode returns a random 6-character alphanumeric code.
// Uniqueness is not guaranteed here; callers must check-and-retry against
// storage on collision.
func GenerateShortCode() (string, error) {
	b := make([]byte, ShortCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i := range b {
		b[i] = shortCodeAlphabet[int(b[i])%len(shortCodeAlphabet)]
	}
	return string(b), nil
}
