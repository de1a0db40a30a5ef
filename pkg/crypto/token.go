package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const fingerprintLength = 8

// HashToken returns the hex sha256 of a token
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Fingerprint identifies a token in logs without revealing it
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	return HashToken(token)[:fingerprintLength]
}

// SameToken compares two tokens in constant time
func SameToken(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(a)), []byte(HashToken(b))) == 1
}

// TokenExpired reports whether token is a JWT whose exp claim is not after now.
//
// The signature is not checked: the client cannot verify it and only uses the
// claim to skip a pointless identity check. Opaque tokens and JWTs without
// exp are never considered expired.
func TokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}
