// Package jwttoken issues and validates the bearer tokens the boundary
// uses to convey caller identity. The ledger itself only ever sees the
// address extracted here.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fundledger/pkg/apperr"
	"fundledger/pkg/identity"
)

const issuer = "fundledger"

// Service signs and validates HMAC access tokens whose subject is the
// caller address.
type Service struct {
	signingKey []byte
}

func New(signingKey string) *Service {
	return &Service{signingKey: []byte(signingKey)}
}

// Issue creates a token for the given caller address.
func (s *Service) Issue(caller identity.Address, expiresIn time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   caller.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
		ID:        uuid.NewString(),
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken implements middleware.TokenValidator.
func (s *Service) ValidateToken(tokenString string) (identity.Address, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return identity.Zero, apperr.New(apperr.CodeUnauthorized, "token has expired")
		}
		return identity.Zero, apperr.New(apperr.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return identity.Zero, apperr.New(apperr.CodeUnauthorized, "invalid token claims")
	}
	caller, err := identity.Parse(claims.Subject)
	if err != nil {
		return identity.Zero, apperr.New(apperr.CodeUnauthorized, "token has no subject")
	}
	return caller, nil
}
