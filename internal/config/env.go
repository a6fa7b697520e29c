package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// envFiles are tried in order; existing process environment always wins.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads the first readable .env file so ${VAR} references in the
// configuration can resolve. A missing file is not an error.
func loadEnvFiles() {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			slog.Debug("Loaded environment variables", slog.String("path", path))
			return
		}
	}
}
