package models

import (
	"strings"

	"chat-sync-service/internal/apperrors"
)

// PairKeySeparator joins the two usernames of a pair key. Usernames containing
// it are rejected at the edge, so the key always splits unambiguously.
const PairKeySeparator = "~"

// PairKey derives the canonical identity of the unordered pair {a, b}: the
// lexicographically smaller username first. PairKey(a, b) == PairKey(b, a) and
// every component that looks up or creates a Connection must go through it.
func PairKey(a, b string) (string, error) {
	if err := ValidateUsername(a); err != nil {
		return "", err
	}
	if err := ValidateUsername(b); err != nil {
		return "", err
	}
	if a == b {
		return "", apperrors.Invalid("cannot pair a user with themselves")
	}
	if a > b {
		a, b = b, a
	}
	return a + PairKeySeparator + b, nil
}

// ValidateUsername rejects names that would produce a malformed pair key.
func ValidateUsername(name string) error {
	if name == "" {
		return apperrors.Invalid("username is empty")
	}
	if strings.Contains(name, PairKeySeparator) {
		return apperrors.Invalid("username contains reserved separator " + PairKeySeparator)
	}
	return nil
}
