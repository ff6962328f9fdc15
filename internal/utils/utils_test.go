package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParseJWT(t *testing.T) {
	tok, err := SignJWT("s3cret", "user-1", "seller", 5)
	require.NoError(t, err)

	claims, err := ParseJWT("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "seller", claims.Role)

	_, err = ParseJWT("other", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestActionTokenPurpose(t *testing.T) {
	tok, err := SignActionToken("s3cret", "user-1", "a@b.io", PurposeVerifyEmail, time.Hour)
	require.NoError(t, err)

	claims, err := ParseActionToken("s3cret", tok, PurposeVerifyEmail)
	require.NoError(t, err)
	assert.Equal(t, "a@b.io", claims.Email)

	_, err = ParseActionToken("s3cret", tok, PurposeResetPassword)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := SignActionToken("s3cret", "user-1", "a@b.io", PurposeVerifyEmail, -time.Minute)
	require.NoError(t, err)
	_, err = ParseActionToken("s3cret", expired, PurposeVerifyEmail)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetTokenCarriesPasswordStamp(t *testing.T) {
	tok, err := SignResetToken("s3cret", "user-1", "a@b.io", "$2a$10$old", time.Hour)
	require.NoError(t, err)

	claims, err := ParseActionToken("s3cret", tok, PurposeResetPassword)
	require.NoError(t, err)
	assert.Equal(t, PasswordStamp("$2a$10$old"), claims.Stamp)
	assert.NotEqual(t, PasswordStamp("$2a$10$new"), claims.Stamp)
	assert.NotContains(t, claims.Stamp, "old")
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "graphics-design", Slugify("Graphics & Design"))
	assert.Equal(t, "logo-design", Slugify("  Logo   Design!! "))
	assert.Equal(t, "web3", Slugify("Web3"))
}

func TestIsHTTPURL(t *testing.T) {
	assert.True(t, IsHTTPURL("https://example.com/work"))
	assert.True(t, IsHTTPURL("http://localhost:3000"))
	assert.False(t, IsHTTPURL("ftp://example.com"))
	assert.False(t, IsHTTPURL("example.com"))
	assert.False(t, IsHTTPURL(""))
}
