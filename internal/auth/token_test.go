package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/warden/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:    "user-1",
		Email: "alice@example.com",
		Role:  models.RoleUser,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-32-characters!!", time.Hour)

	token, expiresAt, err := tm.GenerateToken(testUser())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-32-characters!!", time.Hour)
	other := NewTokenManager("a-different-secret-32-characters!!!!", time.Hour)

	token, _, err := tm.GenerateToken(testUser())
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-32-characters!!", -time.Minute)

	token, _, err := tm.GenerateToken(testUser())
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-32-characters!!", time.Hour)
	_, err := tm.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("some-token")

	// One-way, hex-encoded SHA-256, stable per input.
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint("some-token"))
	assert.NotEqual(t, fp, Fingerprint("another-token"))
	assert.NotContains(t, fp, "some-token")
}
