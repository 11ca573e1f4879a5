package api

import (
	"github.com/golang-jwt/jwt/v5"
)

type JWTServiceI interface {
	GenerateToken(subject *TokenSubject) (string, error)
	ParseToken(tokenString string) (*JWTClaims, error)
}

// TokenSubject identifies who a token is minted for. Parents carry
// their account email; kids carry the reserved-domain email plus their
// registry username.
type TokenSubject struct {
	Email    string
	Name     string
	Username string
}

type JWTClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
}
