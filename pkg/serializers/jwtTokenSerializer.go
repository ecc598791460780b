package serializers

import (
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/dgrijalva/jwt-go"
	"time"
)

type jwtTokenSerializer struct {
	hmacSampleSecret string
	ttl              time.Duration
	now              func() time.Time
}

func NewJwtTokenSerializer(hmacSampleSecret string, ttl time.Duration) *jwtTokenSerializer {
	return &jwtTokenSerializer{
		hmacSampleSecret: hmacSampleSecret,
		ttl:              ttl,
		now:              time.Now,
	}
}

func (serializer *jwtTokenSerializer) Serialize(user *common.UserProfile) (string, time.Time, error) {
	issuedAt := serializer.now()
	expires := issuedAt.Add(serializer.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.Id,
		"email": user.Email,
		"name":  user.Name,
		"iat":   issuedAt.Unix(),
		"exp":   expires.Unix(),
	})
	signed, err := token.SignedString([]byte(serializer.hmacSampleSecret))
	return signed, expires, err
}

// Verify checks the signature and expiry and returns the subject.
func (serializer *jwtTokenSerializer) Verify(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(serializer.hmacSampleSecret), nil
	})
	if err != nil {
		return "", err
	}
	subject, _ := claims["sub"].(string)
	return subject, nil
}
