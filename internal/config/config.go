// Package config resolves where the database, photos and logs live.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvDB       = "INSTRUMENTI_DB"
	EnvPhotoDir = "INSTRUMENTI_PHOTO_DIR"
	EnvAddr     = "INSTRUMENTI_ADDR"
	EnvLog      = "INSTRUMENTI_LOG"
	EnvAdmin    = "INSTRUMENTI_ADMIN"
)

// Config holds the process settings. Command-line flags override it.
type Config struct {
	DBPath    string
	PhotoDir  string
	Addr      string
	LogPath   string
	AdminUser string
}

// Load reads an optional .env file from the working directory, then the
// environment. Missing values fall back to defaults.
func Load() *Config {
	// A missing .env is normal.
	_ = godotenv.Load()

	return &Config{
		DBPath:    getEnv(EnvDB, "instrumentos.db"),
		PhotoDir:  getEnv(EnvPhotoDir, "instrument_photos"),
		Addr:      getEnv(EnvAddr, ":8080"),
		LogPath:   getEnv(EnvLog, ""),
		AdminUser: getEnv(EnvAdmin, "admin"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
