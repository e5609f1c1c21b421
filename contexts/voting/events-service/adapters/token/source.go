// Package tokenadapter provides the production token source: 32 bytes of
// crypto/rand entropy rendered as hex, hashed with SHA-256 for lookups.
package tokenadapter

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"kosning/contexts/voting/events-service/ports"
)

type RandomSource struct{}

func (RandomSource) NewToken() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("read token entropy: %w", err)
	}
	plaintext := hex.EncodeToString(raw)
	return plaintext, HashToken(plaintext), nil
}

// HashToken computes the 64-hex lookup digest of a plaintext token. The
// legacy ballot path uses the same digest to find the Elections-side row.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

var _ ports.TokenSource = RandomSource{}
