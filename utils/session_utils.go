package utils

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	minSessionTokenLen = 8
	maxSessionTokenLen = 128
)

// GenerateSessionToken issues a token for clients that did not bring one.
func GenerateSessionToken() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		log.WithError(err).Warn("Failed to read random bytes for session token, using uuid")
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// IsValidSessionToken accepts client generated tokens: uuids, base64url and
// "sess_<timestamp>_<random>" style ids.
func IsValidSessionToken(token string) bool {
	if len(token) < minSessionTokenLen || len(token) > maxSessionTokenLen {
		return false
	}
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
