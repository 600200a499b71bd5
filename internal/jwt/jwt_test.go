package jwt

import (
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	j := NewJWT("test-secret")
	userID := uuid.New()

	token, err := j.GenerateAccessToken(userID, RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := j.ParseAccessToken(token)
	require.NoError(t, err)
	parsed, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestJWT_RejectsExpired(t *testing.T) {
	j := NewJWT("test-secret")
	token, err := j.GenerateAccessToken(uuid.New(), "", -time.Minute)
	require.NoError(t, err)

	_, err = j.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestJWT_RejectsWrongSecret(t *testing.T) {
	token, err := NewJWT("one").GenerateAccessToken(uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = NewJWT("two").ParseAccessToken(token)
	assert.Error(t, err)
}

func TestJWT_RejectsTamperedPayload(t *testing.T) {
	j := NewJWT("test-secret")
	token, err := j.GenerateAccessToken(uuid.New(), "", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	_, err = j.ParseAccessToken(parts[0] + ".dGFtcGVyZWQ." + parts[2])
	assert.Error(t, err)
}

func TestJWT_RejectsNonUUIDSubject(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewJWT("test-secret").ParseAccessToken(token)
	assert.Error(t, err)
}
