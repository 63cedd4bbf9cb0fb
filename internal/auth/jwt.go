package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

const issuer = "parley"

// Claims is the JWT payload: the user ID travels in the registered Subject
// claim, the display name in a custom claim.
type Claims struct {
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// JWTService issues and verifies HMAC-signed tokens.
type JWTService struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewJWTService creates a token service signing with the given secret.
func NewJWTService(secret []byte) *JWTService {
	return &JWTService{secret: secret, tokenTTL: DefaultTokenTTL}
}

// Issue creates a signed token carrying the identity.
func (s *JWTService) Issue(id Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		DisplayName: id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates the token's signature and expiry and returns
// the identity it carries. Any failure maps to ErrInvalidToken.
func (s *JWTService) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		UserID:      claims.Subject,
		DisplayName: claims.DisplayName,
	}, nil
}
