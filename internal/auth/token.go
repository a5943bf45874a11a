package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// defaultTokenTTL is used when the configured TTL is missing or invalid.
const defaultTokenTTL = 24 * time.Hour

// Claims extends JWT registered claims with the LockerRoom identity fields.
// The subject carries the user id; nickname and email travel alongside so
// handlers never need a user lookup just to identify the caller.
type Claims struct {
	jwt.RegisteredClaims
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

// GenerateToken creates a signed HS512 identity token for a user.
// Tokens carry issued-at and expiry claims; an expired token fails
// verification deterministically (there is no revocation store).
func GenerateToken(user *User, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Nickname: user.Nickname,
		Email:    user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token string and returns its claims.
//
// Only HS512 signatures are accepted; a token signed with any other
// algorithm is rejected even if the signature would verify. All failure
// modes wrap ErrTokenInvalid so the boundary exposes a single outcome;
// the wrapped cause is for internal logs only.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrTokenInvalid)
	}

	return claims, nil
}
