package serializers

import (
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestSerializeClaims(t *testing.T) {
	serializer := NewJwtTokenSerializer("stub-secret", time.Hour)
	serializer.now = func() time.Time {
		return time.Unix(1715162400, 0)
	}

	token, expires, err := serializer.Serialize(&common.UserProfile{Id: "u1", Email: "ana@fit.life", Name: "Ana Lopez"})
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1715166000, 0), expires)

	claims := jwt.MapClaims{}
	_, _, err = new(jwt.Parser).ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "ana@fit.life", claims["email"])
	assert.Equal(t, "Ana Lopez", claims["name"])
	assert.Equal(t, float64(1715162400), claims["iat"])
	assert.Equal(t, float64(1715166000), claims["exp"])
}

func TestVerify(t *testing.T) {
	serializer := NewJwtTokenSerializer("stub-secret", time.Hour)
	token, _, err := serializer.Serialize(&common.UserProfile{Id: "u1", Email: "ana@fit.life"})
	require.NoError(t, err)

	subject, err := serializer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)

	_, err = NewJwtTokenSerializer("other-secret", time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestVerifyExpired(t *testing.T) {
	serializer := NewJwtTokenSerializer("stub-secret", time.Minute)
	serializer.now = func() time.Time {
		return time.Now().Add(-time.Hour)
	}
	token, _, err := serializer.Serialize(&common.UserProfile{Id: "u1"})
	require.NoError(t, err)

	_, err = serializer.Verify(token)

	assert.Error(t, err)
}
