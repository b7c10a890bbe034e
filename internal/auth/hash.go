package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// LegacySecret is the hashing secret every existing deployment was built with.
// Stored password hashes only verify against the secret they were created with.
const LegacySecret = "NODE-DEMO-REST-API"

const saltBytes = 128

// GenerateSalt returns 128 random bytes encoded as standard base64.
// It is used both as a password salt and as session token entropy.
func GenerateSalt() string {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		panic("auth: entropy source failed: " + err.Error())
	}
	return base64.StdEncoding.EncodeToString(b)
}

// Hasher derives salted HMAC-SHA256 digests bound to a process-wide secret.
type Hasher struct {
	secret []byte
}

// NewHasher creates a Hasher. An empty secret falls back to LegacySecret.
func NewHasher(secret string) *Hasher {
	if secret == "" {
		secret = LegacySecret
	}
	return &Hasher{secret: []byte(secret)}
}

// Hash returns the lowercase hex digest for (salt, secret).
// The key is "salt/secret" and the message is the hasher secret, which keeps
// digests compatible with previously stored hashes.
func (h *Hasher) Hash(salt, secret string) string {
	mac := hmac.New(sha256.New, []byte(salt+"/"+secret))
	mac.Write(h.secret)
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal compares two digests in constant time.
func Equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
