package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the entropy of every opaque token the platform issues:
// confirmation tokens, session tokens, verification and reset tokens.
// 32 bytes encode to 64 hex characters.
const TokenBytes = 32

// NewToken returns an unguessable opaque token in lowercase hex.
func NewToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
