package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const resetTokenSize = 32

// NewResetToken returns 256 random bits encoded as unpadded base64url.
func NewResetToken() (string, error) {
	var raw [resetTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// DigestResetToken returns the hex SHA-256 of token. The digest is unsalted so it
// can be used as a lookup key; the token's entropy makes salting unnecessary.
func DigestResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
