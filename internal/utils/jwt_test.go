package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "2", "STAFF", 5)
	require.NoError(t, err)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, Claims{Subject: "2", Role: "STAFF"}, claims)

	_, err = ParseAccessToken("other", tok.Token)
	assert.Error(t, err)
}

func TestExpiredAccessToken(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "2", "STAFF", -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", tok.Token)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("chef123", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "chef123"))
	assert.False(t, VerifyPassword(hash, "chef124"))
	assert.False(t, VerifyPassword("", "chef123"))
}
