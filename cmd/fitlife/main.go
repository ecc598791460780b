package main

import (
	"fmt"
	"github.com/Alcereo/fitlife/pkg/api"
	ctx "github.com/Alcereo/fitlife/pkg/context"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Tracef("No .env file loaded: %v", err)
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(logLevel ctx.LogLevel) {
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})

	switch logLevel {
	case ctx.Info:
		log.SetLevel(log.InfoLevel)
	case ctx.Debug:
		log.SetLevel(log.DebugLevel)
	case ctx.Trace:
		log.SetLevel(log.TraceLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

func loadConfig() *ctx.ClientConfiguration {
	var config ctx.ClientConfiguration
	err := viper.Unmarshal(&config)
	if err != nil {
		panic(fmt.Errorf("Fatal error config file: %s \n", err))
	}

	_ = viper.BindEnv("token-secret", "FITLIFE_TOKEN_SECRET")
	config.TokenSecret = viper.GetString("token-secret")
	return &config
}

func configInit(configFile string) {
	viper.SetEnvPrefix("fitlife")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("api-base-url", "http://localhost:5188")
	viper.SetDefault("request-timeout-seconds", 15)
	viper.SetDefault("fallback-statuses", []int{400, 403, 404, 500})
	viper.SetDefault("storage.type", string(ctx.Sqlite))
	viper.SetDefault("storage.path", defaultStoragePath())
	viper.SetDefault("storage.expiration-time-hours", 24)
	viper.SetDefault("storage.evict-schedule-time-hours", 1)

	endpoints := api.DefaultEndpoints()
	viper.SetDefault("endpoints.login", endpoints.Login)
	viper.SetDefault("endpoints.verify-otp", endpoints.VerifyOtp)
	viper.SetDefault("endpoints.register", endpoints.Register)
	viper.SetDefault("endpoints.refresh", endpoints.Refresh)
	viper.SetDefault("endpoints.current-user", endpoints.CurrentUser)
	viper.SetDefault("endpoints.exercise-plans", endpoints.ExercisePlans)
	viper.SetDefault("endpoints.exercises", endpoints.Exercises)

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./cmd/fitlife")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".fitlife"))
		}
	}

	err := viper.ReadInConfig()
	if err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound && configFile == "" {
			log.Debug("No config file found. Using defaults")
			return
		}
		panic(fmt.Errorf("Fatal error config file: %s \n", err))
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "fitlife-storage.db"
	}
	return filepath.Join(home, ".fitlife", "storage.db")
}

func dumpConfig(config *ctx.ClientConfiguration) string {
	masked := *config
	if masked.TokenSecret != "" {
		masked.TokenSecret = "******"
	}
	bytes, _ := yaml.Marshal(masked)
	return string(bytes)
}
