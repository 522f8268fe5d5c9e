/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the topup-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	InternalAPIKey       string `mapstructure:"INTERNAL_API_KEY"`
	FCMServerKey         string `mapstructure:"FCM_SERVER_KEY"`
	FCMEndpoint          string `mapstructure:"FCM_ENDPOINT"`
	SessionTTLHours      int    `mapstructure:"SESSION_TTL_HOURS"`
	PINAttemptLimit      int    `mapstructure:"PIN_ATTEMPT_LIMIT"`
	PINAttemptWindowSec  int    `mapstructure:"PIN_ATTEMPT_WINDOW_SECONDS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "otransous:rate_limit")
	viper.SetDefault("SESSION_TTL_HOURS", 24)
	viper.SetDefault("PIN_ATTEMPT_LIMIT", 10)
	viper.SetDefault("PIN_ATTEMPT_WINDOW_SECONDS", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("FCM_SERVER_KEY")
	_ = viper.BindEnv("FCM_ENDPOINT")
	_ = viper.BindEnv("SESSION_TTL_HOURS")
	_ = viper.BindEnv("PIN_ATTEMPT_LIMIT")
	_ = viper.BindEnv("PIN_ATTEMPT_WINDOW_SECONDS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Hosting platforms inject PORT; it wins over SERVER_PORT when set.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "otransous:rate_limit"
	}

	if config.SessionTTLHours <= 0 {
		config.SessionTTLHours = 24
	}
	if config.PINAttemptLimit <= 0 {
		config.PINAttemptLimit = 10
	}
	if config.PINAttemptWindowSec <= 0 {
		config.PINAttemptWindowSec = 60
	}

	return
}
