package config

import (
	"fmt"
	"os"
)

// Config holds application configuration
type Config struct {
	Port           string
	DBConn         string
	LogLevel       string
	JWTSecret      string
	ClearingURL    string
	ScoringEnabled bool
	ScoringURL     string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SenderEmail    string
	ReminderSpec   string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBConn:         getEnv("DB_CONN", "host=localhost port=5432 user=wallet password=wallet dbname=wallet sslmode=disable"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		ClearingURL:    getEnv("CLEARING_URL", "http://localhost:9090/clearing"),
		ScoringEnabled: getEnv("SCORING_ENABLED", "false") == "true",
		ScoringURL:     getEnv("SCORING_URL", "http://localhost:9091/score"),
		SMTPHost:       getEnv("SMTP_HOST", "localhost"),
		SMTPPort:       getEnv("SMTP_PORT", "1025"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", "no-reply@wallet.local"),
		ReminderSpec:   getEnv("REMINDER_SPEC", "0 9 * * *"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.ClearingURL == "" {
		return nil, fmt.Errorf("CLEARING_URL is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
