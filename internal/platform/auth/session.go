package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt"
)

// UserIDFromSessionToken extracts the marketplace user id from a session JWT.
// The redirect page forwards the user's session token when one exists; the
// subject claim carries the user id. Tokens are HS256-signed with the shared
// session secret.
func UserIDFromSessionToken(tokenString, secret string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("empty session token")
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid session token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("session token has no subject")
	}
	return sub, nil
}
