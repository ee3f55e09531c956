package web

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidPin is returned when the owner PIN does not match
	ErrInvalidPin = errors.New("invalid pin")
	// ErrInvalidToken is returned when an owner token fails validation
	ErrInvalidToken = errors.New("invalid token")
)

// HashOwnerPin hashes the owner PIN with bcrypt for storage in settings.
func HashOwnerPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// OwnerAuth validates the owner PIN and issues short-lived tokens for the
// dashboard endpoints.
type OwnerAuth struct {
	secret []byte
}

type ownerClaims struct {
	Owner bool `json:"owner"`
	jwt.RegisteredClaims
}

// NewOwnerAuth creates an OwnerAuth signing with the given secret
func NewOwnerAuth(secret string) *OwnerAuth {
	return &OwnerAuth{secret: []byte(secret)}
}

// CheckPin compares a PIN against the stored bcrypt hash.
func (a *OwnerAuth) CheckPin(pin, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return ErrInvalidPin
	}
	return nil
}

// GenerateToken issues a signed owner token valid for 24 hours.
func (a *OwnerAuth) GenerateToken() (string, error) {
	claims := &ownerClaims{
		Owner: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken checks an owner token and returns ErrInvalidToken when it
// is missing, expired or tampered with.
func (a *OwnerAuth) ValidateToken(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &ownerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return ErrInvalidToken
	}
	claims, ok := token.Claims.(*ownerClaims)
	if !ok || !token.Valid || !claims.Owner {
		return ErrInvalidToken
	}
	return nil
}
