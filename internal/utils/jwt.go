package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ActionClaims back single-purpose tokens mailed to users.
type ActionClaims struct {
	UserID  string `json:"uid"`
	Purpose string `json:"purpose"`
	Email   string `json:"email"`
	Stamp   string `json:"stamp,omitempty"`
	jwt.RegisteredClaims
}

const (
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"
)

var ErrInvalidToken = errors.New("invalid or expired token")

func SignJWT(secret string, userID string, role string, expiresMin int) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expiresMin) * time.Minute)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

func ParseJWT(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc(secret))
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignActionToken binds the token to the email it was issued for, so an
// email change invalidates outstanding verification links.
func SignActionToken(secret, userID, email, purpose string, ttl time.Duration) (string, error) {
	return signAction(secret, ActionClaims{UserID: userID, Purpose: purpose, Email: email}, ttl)
}

// SignResetToken also carries the stamp of the current password hash; the
// link stops working once the password changes.
func SignResetToken(secret, userID, email, passwordHash string, ttl time.Duration) (string, error) {
	return signAction(secret, ActionClaims{
		UserID:  userID,
		Purpose: PurposeResetPassword,
		Email:   email,
		Stamp:   PasswordStamp(passwordHash),
	}, ttl)
}

func signAction(secret string, claims ActionClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseActionToken(secret, tokenStr, purpose string) (*ActionClaims, error) {
	claims := &ActionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc(secret))
	if err != nil || !token.Valid || claims.Purpose != purpose || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}
}
