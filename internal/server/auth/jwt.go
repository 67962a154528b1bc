// Package auth creates and verifies the two token kinds used by the service:
// signed, time-bound access tokens (HS256 JWTs carrying subject and expiry)
// and opaque random refresh-token values that act purely as lookup keys.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// GenerateToken mints an HS256 JWT whose subject is the given identity and
// whose expiry is now+validity.
func GenerateToken(subject string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature and expiry and returns the embedded subject.
// It returns common.ErrTokenExpired for expired tokens and
// common.ErrInvalidToken for every other failure (bad signature, malformed
// input, unexpected signing method, missing subject).
func ParseToken(tokenString string, secretKey []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// SubjectFromToken resolves the subject for boundary use. Every decode
// failure collapses to common.ErrorUnauthorized so callers cannot tell
// expired from tampered from malformed.
func SubjectFromToken(tokenString string, secretKey []byte) (string, error) {
	subject, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", common.ErrorUnauthorized
	}
	return subject, nil
}

// NewRefreshToken returns an opaque random refresh-token value. It carries
// no claims; identity is resolved through the store row it is compared
// against.
func NewRefreshToken() string {
	return uuid.NewString()
}
