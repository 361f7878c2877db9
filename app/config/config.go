package config

import (
	"errors"
	"os"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	DB          PostgresConfig
	Auth        AuthConfig
	Stripe      StripeConfig
	Gemini      GeminiConfig
	UploadDir   string
	CORSOrigins string
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
	Database string
}

type AuthConfig struct {
	JWTSecret string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type GeminiConfig struct {
	ProjectID string
	Region    string
	Model     string
}

func LoadConfig() (*Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	cfg := &Config{
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     os.Getenv("POSTGRES_PORT"),
			Database: os.Getenv("POSTGRES_DB"),
		},
		Auth: AuthConfig{
			JWTSecret: secret,
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
		Gemini: GeminiConfig{
			ProjectID: os.Getenv("GCP_PROJECT_ID"),
			Region:    getEnv("VERTEX_AI_REGION", "europe-west1"),
			Model:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
