package config

import "os"

// Storage driver names accepted in STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config carries the process configuration, sourced from the environment.
type Config struct {
	Addr          string
	StorageDriver string
	SQLitePath    string
	DatabaseURL   string
}

// FromEnv reads the configuration with development-friendly defaults: an
// in-process sqlite file on :8080.
func FromEnv() Config {
	return Config{
		Addr:          getenv("ADDR", ":8080"),
		StorageDriver: getenv("STORAGE_DRIVER", DriverSQLite),
		SQLitePath:    getenv("SQLITE_PATH", "patients.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
