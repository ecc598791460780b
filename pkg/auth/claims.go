package auth

import (
	"github.com/dgrijalva/jwt-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"time"
)

type TokenClaims struct {
	Subject   string
	Email     string
	ExpiresAt int64
}

var tokenParser = new(jwt.Parser)

// DecodeTokenClaims reads the token payload without verifying the signature.
func DecodeTokenClaims(token string) (*TokenClaims, error) {
	const stage = "Decoding token claims error."

	claims := jwt.MapClaims{}
	if _, _, err := tokenParser.ParseUnverified(token, claims); err != nil {
		log.Debugf("Token payload can't be decoded: %v", err)
		return nil, newErr(stage, err)
	}

	expiresAt, err := cast.ToInt64E(claims["exp"])
	if err != nil {
		log.Debugf("Token 'exp' claim is not a number: %v", claims["exp"])
		expiresAt = 0
	}
	return &TokenClaims{
		Subject:   cast.ToString(claims["sub"]),
		Email:     cast.ToString(claims["email"]),
		ExpiresAt: expiresAt,
	}, nil
}

func IsTokenExpired(token string, now time.Time) bool {
	claims, err := DecodeTokenClaims(token)
	if err != nil || claims.ExpiresAt == 0 {
		return true
	}
	return claims.ExpiresAt < now.Unix()
}
