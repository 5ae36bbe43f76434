// Package auth issues and verifies the HS256 access tokens of the
// development server.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the registered claims plus the user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	return GenerateTokenAt(userID, secretKey, validityDuration, time.Now())
}

// GenerateTokenAt issues a token as if the current time were now.
func GenerateTokenAt(userID string, secretKey []byte, validityDuration time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserIDFromToken verifies tokenString and returns its user id.
// Expired tokens yield common.ErrTokenExpired, anything else unusable
// common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	return GetUserIDFromTokenAt(tokenString, secretKey, time.Now())
}

// GetUserIDFromTokenAt checks expiry against now instead of the wall clock.
func GetUserIDFromTokenAt(tokenString string, secretKey []byte, now time.Time) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
