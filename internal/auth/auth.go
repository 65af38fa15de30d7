// internal/auth/auth.go
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidToken is returned for malformed or tampered tokens
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned once ExpiresAt has passed
	ErrTokenExpired = errors.New("token has expired")
)

// TokenConfig holds the configuration for token generation
type TokenConfig struct {
	Secret     []byte
	Expiration time.Duration
}

// Token represents an authentication token
type Token struct {
	UserID    string            `json:"user_id"`
	ExpiresAt int64             `json:"expires_at"`
	IssuedAt  int64             `json:"issued_at"`
	Claims    map[string]string `json:"claims,omitempty"`
}

// NewTokenConfig derives a 32-byte signing key from secret. An empty secret
// gets a random key, which invalidates issued tokens on restart.
func NewTokenConfig(secret string, expiration time.Duration) (*TokenConfig, error) {
	var key []byte
	if secret == "" {
		generated, err := GenerateSecureKey(32)
		if err != nil {
			return nil, err
		}
		key = generated
	} else {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &TokenConfig{Secret: key, Expiration: expiration}, nil
}

// GenerateToken creates a new authentication token
func GenerateToken(userID string, claims map[string]string, config *TokenConfig) (string, *Token, error) {
	if len(config.Secret) == 0 {
		return "", nil, fmt.Errorf("secret key is required")
	}
	if userID == "" {
		return "", nil, fmt.Errorf("user id is required")
	}

	now := time.Now()
	token := &Token{
		UserID:    userID,
		ExpiresAt: now.Add(config.Expiration).Unix(),
		IssuedAt:  now.Unix(),
		Claims:    claims,
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return "", nil, fmt.Errorf("encode token payload: %w", err)
	}

	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	encodedSignature := base64.RawURLEncoding.EncodeToString(sign(payload, config.Secret))

	return encodedPayload + "." + encodedSignature, token, nil
}

func sign(payload, secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return h.Sum(nil)
}

// ParseToken parses and validates a token
func ParseToken(tokenString string, config *TokenConfig) (*Token, error) {
	if len(config.Secret) == 0 {
		return nil, fmt.Errorf("secret key is required")
	}

	parts := strings.Split(tokenString, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: bad format", ErrInvalidToken)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalidToken, err)
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrInvalidToken, err)
	}

	if !hmac.Equal(signature, sign(payload, config.Secret)) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	var token Token
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if token.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidToken)
	}

	if time.Now().Unix() > token.ExpiresAt {
		return nil, ErrTokenExpired
	}

	return &token, nil
}

// GenerateSecureKey generates a secure random key for token signing
func GenerateSecureKey(length int) ([]byte, error) {
	if length <= 0 {
		length = 32 // Default to 256 bits
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
