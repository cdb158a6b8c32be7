package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/finadmin/expense-authorization/internal"
)

// Claims mirrors the token payload issued by the identity service. This
// service only verifies; it never signs.
type Claims struct {
	PersonID    string   `json:"person_id"`
	Name        string   `json:"name"`
	CompanyID   int64    `json:"company_id"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Service resolves session tokens into typed Users.
type Service struct {
	validator TokenValidator
}

func NewService(validator TokenValidator) *Service {
	return &Service{validator: validator}
}

// ResolveUser validates the token and maps its claims to a User. Tokens
// without a person id or company context are rejected: every operation in
// this service is company-scoped.
func (s *Service) ResolveUser(tokenString string) (*User, error) {
	claims, err := s.validator.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.PersonID == "" || claims.CompanyID == 0 {
		return nil, internal.ErrInvalidToken
	}

	return &User{
		ID:          claims.Subject,
		PersonID:    claims.PersonID,
		Name:        claims.Name,
		CompanyID:   claims.CompanyID,
		Permissions: claims.Permissions,
	}, nil
}

// RSATokenValidator verifies RS256 tokens against the identity service's
// public key.
type RSATokenValidator struct {
	publicKey *rsa.PublicKey
	issuer    string
}

func NewRSATokenValidator(publicKey *rsa.PublicKey, issuer string) *RSATokenValidator {
	return &RSATokenValidator{
		publicKey: publicKey,
		issuer:    issuer,
	}
}

func (v *RSATokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.publicKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, internal.ErrInvalidToken
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, internal.ErrInvalidToken
	}

	return claims, nil
}
