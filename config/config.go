package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Dosada05/arcade-tournaments/db"
	"github.com/Dosada05/arcade-tournaments/services"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all application settings.
type Config struct {
	DatabaseDriver string
	DatabaseURL    string
	JWTSecretKey   string
	ServerPort     int
	LogLevel       string
	CORSOrigins    []string
	DrawPolicy     services.DrawPolicy
	WinnerRule     services.WinnerRule
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", db.DriverPostgres)
	if driver != db.DriverPostgres && driver != db.DriverSQLite {
		return nil, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", db.DriverPostgres, db.DriverSQLite, driver)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	logLevel := getEnv("LOG_LEVEL", "info")
	if _, err := zerolog.ParseLevel(logLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	drawPolicy := services.DrawPolicy(getEnv("TOURNAMENT_DRAW_POLICY", string(services.DrawPolicyReject)))
	if !drawPolicy.Valid() {
		return nil, fmt.Errorf("TOURNAMENT_DRAW_POLICY must be %q or %q, got %q", services.DrawPolicyReject, services.DrawPolicyEliminatePlayer1, drawPolicy)
	}

	winnerRule := services.WinnerRule(getEnv("TOURNAMENT_WINNER_RULE", string(services.WinnerRuleSoleSurvivor)))
	if !winnerRule.Valid() {
		return nil, fmt.Errorf("TOURNAMENT_WINNER_RULE must be %q or %q, got %q", services.WinnerRuleSoleSurvivor, services.WinnerRuleFinalReached, winnerRule)
	}

	cfg := &Config{
		DatabaseDriver: driver,
		DatabaseURL:    dbURL,
		JWTSecretKey:   jwtKey,
		ServerPort:     port,
		LogLevel:       logLevel,
		CORSOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		DrawPolicy:     drawPolicy,
		WinnerRule:     winnerRule,
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
