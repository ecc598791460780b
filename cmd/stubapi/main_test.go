package main

import (
	"github.com/Alcereo/fitlife/pkg/stubapi"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDefaultsWithoutFlagsOrEnvironment(t *testing.T) {
	// Given
	command := &cobra.Command{}
	config := bindConfig(command)

	// When
	require.NoError(t, command.ParseFlags([]string{}))
	options := serverOptions(config)

	// Then
	defaults := stubapi.DefaultOptions()
	assert.Equal(t, 5188, config.GetInt("port"))
	assert.False(t, options.RequireOTP)
	assert.Equal(t, defaults.Secret, options.Secret)
	assert.Equal(t, defaults.AllowedOrigins, options.AllowedOrigins)
}

func TestEnvironmentConfiguresServer(t *testing.T) {
	// Given
	t.Setenv("STUBAPI_PORT", "6001")
	t.Setenv("STUBAPI_OTP", "true")
	t.Setenv("STUBAPI_SEED", "demo@fitlife.test:secret")
	t.Setenv("STUBAPI_TOKEN_SECRET", "env-secret")
	t.Setenv("STUBAPI_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	command := &cobra.Command{}
	config := bindConfig(command)

	// When
	require.NoError(t, command.ParseFlags([]string{}))
	options := serverOptions(config)

	// Then
	assert.Equal(t, 6001, config.GetInt("port"))
	assert.Equal(t, "demo@fitlife.test:secret", config.GetString("seed"))
	assert.True(t, options.RequireOTP)
	assert.Equal(t, "env-secret", options.Secret)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, options.AllowedOrigins)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	// Given
	t.Setenv("STUBAPI_PORT", "6001")
	t.Setenv("STUBAPI_TOKEN_SECRET", "env-secret")
	command := &cobra.Command{}
	config := bindConfig(command)

	// When
	require.NoError(t, command.ParseFlags([]string{"--port", "7002", "--token-secret", "flag-secret", "--otp"}))
	options := serverOptions(config)

	// Then
	assert.Equal(t, 7002, config.GetInt("port"))
	assert.Equal(t, "flag-secret", options.Secret)
	assert.True(t, options.RequireOTP)
}

func TestSeedUser(t *testing.T) {
	server := stubapi.NewServer(stubapi.DefaultOptions())

	assert.NoError(t, seedUser(server, ""))
	assert.Error(t, seedUser(server, "no-password"))
	assert.Error(t, seedUser(server, ":secret"))

	require.NoError(t, seedUser(server, "demo@fitlife.test:secret"))
	assert.ErrorIs(t, seedUser(server, "demo@fitlife.test:other"), stubapi.ErrEmailTaken)
}
