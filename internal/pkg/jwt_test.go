package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManagerRoundTrip(t *testing.T) {
	m := NewJWTManager("a-secret", "r-secret", time.Minute, time.Hour)

	pair, err := m.GeneratePair(42)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := m.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)

	next, refreshed, err := m.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), refreshed.UserID)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
}

func TestJWTManagerRejectsSwappedTokens(t *testing.T) {
	m := NewJWTManager("a-secret", "r-secret", time.Minute, time.Hour)
	pair, err := m.GeneratePair(7)
	require.NoError(t, err)

	_, err = m.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = m.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestJWTManagerExpired(t *testing.T) {
	m := NewJWTManager("a-secret", "r-secret", time.Minute, time.Hour)
	m.accessTTL = -time.Minute

	pair, err := m.GeneratePair(7)
	require.NoError(t, err)
	_, err = m.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRandDigits(t *testing.T) {
	code, err := RandDigits(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
}
