package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	cfg, err := NewTokenConfig("secret", time.Hour)
	require.NoError(t, err)

	raw, issued, err := GenerateToken("alice", map[string]string{"role": "architect"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "alice", issued.UserID)

	parsed, err := ParseToken(raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, "alice", parsed.UserID)
	assert.Equal(t, "architect", parsed.Claims["role"])
}

func TestTokenRejectsTampering(t *testing.T) {
	cfg, err := NewTokenConfig("secret", time.Hour)
	require.NoError(t, err)
	raw, _, err := GenerateToken("alice", nil, cfg)
	require.NoError(t, err)

	other, err := NewTokenConfig("other-secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(raw, other)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = ParseToken(strings.Replace(raw, ".", "", 1), cfg)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenExpired(t *testing.T) {
	cfg := &TokenConfig{Secret: []byte("0123456789abcdef0123456789abcdef"), Expiration: -time.Minute}
	raw, _, err := GenerateToken("alice", nil, cfg)
	require.NoError(t, err)

	_, err = ParseToken(raw, cfg)
	assert.True(t, errors.Is(err, ErrTokenExpired))
}

func TestGenerateTokenRequiresUser(t *testing.T) {
	cfg, err := NewTokenConfig("", 0)
	require.NoError(t, err)
	assert.Len(t, cfg.Secret, 32)
	assert.Equal(t, 24*time.Hour, cfg.Expiration)

	_, _, err = GenerateToken("", nil, cfg)
	assert.Error(t, err)
}
