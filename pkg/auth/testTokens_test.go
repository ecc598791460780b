package auth

import (
	"github.com/dgrijalva/jwt-go"
	"testing"
	"time"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func tokenFor(t *testing.T, subject string, email string) string {
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	if subject != "" {
		claims["sub"] = subject
	}
	if email != "" {
		claims["email"] = email
	}
	return mintToken(t, claims)
}
