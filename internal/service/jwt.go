package service

import (
	"errors"
	"time"

	"sbr_farm/internal/clock"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin marks tokens allowed on the admin API.
const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	clock  clock.Clock
}

func NewTokens(secret string, clk clock.Clock) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return &Tokens{secret: []byte(secret), clock: clk}, nil
}

func (t *Tokens) Generate(userID int64, role string, ttl time.Duration) (string, error) {
	now := t.clock.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies signature and time claims and returns the claims.
func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return nil, errors.New("user_id not found")
	}
	return claims, nil
}
