package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
)

type claims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.now()
	c := claims{
		Email:   id.Email,
		Name:    id.Name,
		Surname: id.Surname,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// Verify parses a raw token. A "Bearer " prefix is tolerated.
func (t *Tokens) Verify(raw string) (Identity, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return Identity{}, apperr.Unauthenticated("missing token")
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.Wrap(apperr.KindUnauthenticated, err, "token expired")
		}
		return Identity{}, apperr.Wrap(apperr.KindUnauthenticated, err, "invalid token")
	}
	if c.Subject == "" {
		return Identity{}, apperr.Unauthenticated("invalid token")
	}
	return Identity{UserID: c.Subject, Email: c.Email, Name: c.Name, Surname: c.Surname}, nil
}
