package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(42, "staff")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "staff", claims.Role)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBlacklistedTokenIsRejected(t *testing.T) {
	token, err := GenerateToken(7, "customer")
	require.NoError(t, err)

	BlacklistToken(token, time.Now().Add(time.Hour))

	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenBlacklisted)
}
