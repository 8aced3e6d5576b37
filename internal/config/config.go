package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds environment-based settings shared by the server and the
// queue worker.
type Config struct {
	Environment    string
	ServerAddress  string
	JWTSecret      string
	DatabaseURL    string
	MigrationsPath string

	RedisAddress  string
	RedisUsername string
	RedisPassword string

	MQTTBrokerURL string

	MediaAPIKey    string
	MediaAPISecret string
	MediaAdminURL  string
	MediaClientURL string

	ChatCipherKey string

	ArchiveDir      string
	UseSpaces       bool
	SpacesEndpoint  string
	SpacesRegion    string
	SpacesBucket    string
	SpacesCDNURL    string
	SpacesAccessKey string
	SpacesSecretKey string
}

// Load reads configuration from the environment. A .env file is honoured in
// development but never required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    os.Getenv("APP_ENV"),
		ServerAddress:  getenv("SERVER_ADDRESS", ":8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: getenv("MIGRATIONS_PATH", "./migrations"),

		RedisAddress:  getenv("REDIS_ADDRESS", "localhost:6379"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MQTTBrokerURL: getenv("MQTT_BROKER_URL", "tcp://localhost:1883"),

		MediaAPIKey:    os.Getenv("MEDIA_API_KEY"),
		MediaAPISecret: os.Getenv("MEDIA_API_SECRET"),
		MediaAdminURL:  getenv("MEDIA_ADMIN_URL", "http://localhost:7880"),
		MediaClientURL: getenv("MEDIA_CLIENT_URL", "ws://localhost:7880"),

		ChatCipherKey: os.Getenv("CHAT_CIPHER_KEY"),

		ArchiveDir:      getenv("RECORDING_ARCHIVE_DIR", "./recordings"),
		UseSpaces:       os.Getenv("USE_SPACES") == "true",
		SpacesEndpoint:  os.Getenv("SPACES_ENDPOINT"),
		SpacesRegion:    os.Getenv("SPACES_REGION"),
		SpacesBucket:    os.Getenv("SPACES_BUCKET"),
		SpacesCDNURL:    os.Getenv("SPACES_CDN_URL"),
		SpacesAccessKey: os.Getenv("SPACES_ACCESS_KEY"),
		SpacesSecretKey: os.Getenv("SPACES_SECRET_KEY"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.MediaAPIKey == "" || cfg.MediaAPISecret == "" {
		return nil, fmt.Errorf("MEDIA_API_KEY and MEDIA_API_SECRET are required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
