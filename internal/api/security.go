package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"

	"github.com/malove/promo-service/internal/domain/auth"
)

// ErrUnauthorized is returned for any API key failure. The cause is never
// detailed to the client.
var ErrUnauthorized = errors.New("unauthorized")

// APIKeyVerifier authenticates requests via HMAC-SHA256 hashed API keys.
type APIKeyVerifier struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewAPIKeyVerifier creates an APIKeyVerifier with the given API key
// repository and HMAC pepper.
func NewAPIKeyVerifier(apikeys auth.Repository, pepper []byte) *APIKeyVerifier {
	return &APIKeyVerifier{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Verify authenticates the presented API key by computing its HMAC-SHA256,
// looking up the hash, and performing a constant-time comparison to prevent
// timing side-channels.
func (v *APIKeyVerifier) Verify(ctx context.Context, key string) error {
	if key == "" {
		return ErrUnauthorized
	}

	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := v.apikeys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return ErrUnauthorized
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return ErrUnauthorized
	}

	return nil
}
