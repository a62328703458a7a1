// internal/auth/auth.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenConfig holds session token settings. The secret must be non-empty;
// Expiration defaults to 24h when zero.
type TokenConfig struct {
	Secret     []byte
	Expiration time.Duration
}

// Claims is the session token payload for owner-scoped routes. Share-link
// routes never use these: the link id itself is the capability.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueToken creates a signed session token for userID.
func IssueToken(userID string, config *TokenConfig) (string, error) {
	if len(config.Secret) == 0 {
		return "", errors.New("session secret is required")
	}
	expiration := config.Expiration
	if expiration == 0 {
		expiration = 24 * time.Hour
	}

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(config.Secret)
}

// ParseToken validates a session token and returns its claims.
func ParseToken(tokenString string, config *TokenConfig) (*Claims, error) {
	if len(config.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return config.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
