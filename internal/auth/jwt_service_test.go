package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestJWT(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTServiceWithConfig(TokenConfig{
		Secret:           []byte(testSecret),
		ExpiresIn:        15 * time.Minute,
		RefreshExpiresIn: 24 * time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestNewJWTService_SecretTooShort(t *testing.T) {
	_, err := NewJWTServiceWithConfig(TokenConfig{
		Secret:           []byte("short"),
		ExpiresIn:        time.Minute,
		RefreshExpiresIn: time.Hour,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32")
}

func TestNewJWTService_InvalidTTL(t *testing.T) {
	_, err := NewJWTServiceWithConfig(TokenConfig{Secret: []byte(testSecret), RefreshExpiresIn: time.Hour})
	assert.Error(t, err)

	_, err = NewJWTServiceWithConfig(TokenConfig{Secret: []byte(testSecret), ExpiresIn: time.Hour})
	assert.Error(t, err)
}

func TestJWTService_GenerateAndExtract(t *testing.T) {
	svc := newTestJWT(t)

	pair, err := svc.GenerateTokens("a@example.com", 42, "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.RefreshTokenExpiry.After(pair.AccessTokenExpiry))

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, pair.AccessTokenExpiry.Unix(), claims.Exp)
}

func TestJWTService_RejectsTampered(t *testing.T) {
	svc := newTestJWT(t)
	token, _, err := svc.GenerateAccessToken("a@example.com", 1, "user")
	require.NoError(t, err)

	_, err = svc.ParseToken(token + "x")
	assert.Error(t, err)

	other, err := NewJWTServiceWithConfig(TokenConfig{
		Secret:           []byte(strings.Repeat("z", 32)),
		ExpiresIn:        time.Minute,
		RefreshExpiresIn: time.Hour,
	})
	require.NoError(t, err)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	svc := newTestJWT(t)
	past := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return past }

	token, _, err := svc.GenerateAccessToken("a@example.com", 1, "user")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTService_RejectsNonAccessToken(t *testing.T) {
	svc := newTestJWT(t)
	claims := jwt.MapClaims{
		"user_id": 1,
		"type":    "refresh",
		"exp":     time.Now().Add(time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestJWT(t)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1, "type": "access"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ParseToken(signed)
	assert.Error(t, err)
}
