// Copyright (c) 2026 Folio Works. All rights reserved.

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a cryptographically random hex string of
// byteLength random bytes (so the string is 2*byteLength characters long).
//
// It backs opaque refresh tokens, password-reset tokens, and OAuth state.
func GenerateSecureToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// Opaque tokens are stored hashed so a database leak does not expose live
// credentials. SHA-256 (not bcrypt) is sufficient here because the input is
// already high-entropy random data, not a human password.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
