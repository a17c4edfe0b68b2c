package registry

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// apiKeyLen matches the relay wire contract: 32 chars of mixed-case alphanumerics
const apiKeyLen = 32

// newAPIKey draws key material from crypto/rand
func newAPIKey() string {
	buf := make([]byte, apiKeyLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; nothing sane to return
		panic(err)
	}
	out := make([]byte, apiKeyLen)
	for i, b := range buf {
		out[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return string(out)
}

// newSecretToken builds the longer reserved token from two UUIDs (64 hex chars)
func newSecretToken() string {
	raw := uuid.NewString() + uuid.NewString()
	return strings.ReplaceAll(raw, "-", "")
}
