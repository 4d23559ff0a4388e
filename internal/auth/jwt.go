package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Leganyst/docwatch/internal/clock"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewTokens(secret string, ttl time.Duration, clk clock.Clock) *Tokens {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, clock: clk}
}

func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

func (t *Tokens) Issue(userID uuid.UUID, email string) (string, error) {
	now := t.clock.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies signature and expiry and returns the user id in the subject.
func (t *Tokens) Parse(tokenStr string) (uuid.UUID, *Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil {
		return uuid.Nil, nil, errors.Join(ErrInvalidToken, err)
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return uuid.Nil, nil, ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, nil, errors.Join(ErrInvalidToken, err)
	}
	return id, c, nil
}
