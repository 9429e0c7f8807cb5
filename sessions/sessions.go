// Package sessions issues and verifies the signed bearer tokens that stand in
// for server-side sessions. Tokens are integrity protected, not encrypted:
// they carry nothing but the user id and token metadata.
package sessions

import (
	"errors"
	"fmt"
	"time"
	"trendsetter/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

type Claims struct {
	UserId    string
	TokenId   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  utils.Clock
}

func NewIssuer(secret string, ttl time.Duration, clock utils.Clock) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clock,
	}
}

func (i *Issuer) Issue(userId string) (string, Claims, error) {
	now := i.clock.Now()
	claims := Claims{
		UserId:    userId,
		TokenId:   uuid.NewString(),
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: now.Add(i.ttl).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.UserId,
		ID:        claims.TokenId,
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature first and only then the expiration, so claims
// of an unsigned or tampered token are never trusted.
func (i *Issuer) Verify(tokenString string) (Claims, error) {
	var registered jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(
		tokenString,
		&registered,
		func(token *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if registered.Subject == "" || registered.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing subject or id", ErrTokenInvalid)
	}

	claims := Claims{
		UserId:    registered.Subject,
		TokenId:   registered.ID,
		ExpiresAt: registered.ExpiresAt.Time,
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	return claims, nil
}
