package jwt_parse

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const staffTokenType = "staff"

var ErrInvalidToken = errors.New("invalid staff token")

// StaffClaims are carried by staff console tokens.
type StaffClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// IssueStaffToken signs an HS256 token for username valid for ttl from now.
func IssueStaffToken(secret []byte, username string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expires := now.Add(ttl)
	claims := StaffClaims{
		Type: staffTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign staff token: %w", err)
	}
	return signed, expires, nil
}

// ParseStaffToken validates tokenString against the wall clock and returns
// the staff username.
func ParseStaffToken(secret []byte, tokenString string) (string, error) {
	return ParseStaffTokenAt(secret, tokenString, time.Now)
}

// ParseStaffTokenAt is ParseStaffToken with expiry checked against now.
func ParseStaffTokenAt(secret []byte, tokenString string, now func() time.Time) (string, error) {
	var claims StaffClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(now))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != staffTokenType || claims.Subject == "" {
		return "", fmt.Errorf("%w: not a staff token", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(authHeader string) (string, bool) {
	if len(authHeader) > 7 && strings.ToLower(authHeader[:7]) == "bearer " {
		return strings.TrimSpace(authHeader[7:]), true
	}
	return "", false
}
