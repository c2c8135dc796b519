package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin  = "ADMIN"
	RoleClient = "CLIENT"

	TokenAccess = "ACCESS"
	issuer      = "storefront"
)

type Claims struct {
	UserID    int    `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	key []byte
}

// NewVerifier validates the signing secret loaded from configuration.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set")
	}
	return &Verifier{key: []byte(secret)}, nil
}

// GenerateAccessToken creates a short-lived access token.
func (v *Verifier) GenerateAccessToken(userID int, role string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:    userID,
		Role:      role,
		TokenType: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.key)
}

// ValidateToken parses and verifies JWT claims and signature integrity.
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
