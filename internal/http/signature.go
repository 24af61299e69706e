package httpx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// verifySignature checks the hex-encoded HMAC-SHA256 of the body against
// the configured upstream webhook secret.
func (r *Router) verifySignature(payload []byte, provided string) error {
	if r.webhookSecret == "" {
		return errors.New("webhook secret not configured")
	}
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return errors.New("missing webhook signature")
	}
	hasher := hmac.New(sha256.New, []byte(r.webhookSecret))
	hasher.Write(payload)
	expected := hex.EncodeToString(hasher.Sum(nil))
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return errors.New("invalid webhook signature")
	}
	return nil
}
