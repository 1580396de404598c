package auth

import (
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestUserIDFromSessionToken(t *testing.T) {
	token := signed(t, "secret", jwt.MapClaims{"sub": "user_42"})

	uid, err := UserIDFromSessionToken(token, "secret")
	require.NoError(t, err)
	require.Equal(t, "user_42", uid)
}

func TestUserIDFromSessionToken_WrongSecret(t *testing.T) {
	token := signed(t, "secret", jwt.MapClaims{"sub": "user_42"})

	_, err := UserIDFromSessionToken(token, "other")
	require.Error(t, err)
}

func TestUserIDFromSessionToken_MissingSubject(t *testing.T) {
	token := signed(t, "secret", jwt.MapClaims{"role": "member"})

	_, err := UserIDFromSessionToken(token, "secret")
	require.Error(t, err)
}

func TestUserIDFromSessionToken_Empty(t *testing.T) {
	_, err := UserIDFromSessionToken("", "secret")
	require.Error(t, err)
}
