package logger

import (
	"encoding/hex"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a short stable digest of a secret so log lines can be
// correlated without ever carrying the secret itself.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:6])
}

// Secret is a zap field holding the fingerprint of value.
func Secret(key, value string) zap.Field {
	return zap.String(key+"_fp", Fingerprint(value))
}
