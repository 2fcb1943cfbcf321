// Package config loads server configuration from the environment, with an
// optional .env file for local development. Flags in cmd/server override
// these values.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// ServerConfig holds everything the server binary needs at startup.
type ServerConfig struct {
	Port     int
	DBPath   string
	LogLevel string
}

// Load reads the optional .env file and the environment. A missing .env is
// not an error; containers pass real environment variables instead.
func Load() *ServerConfig {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not read .env file")
	}

	return &ServerConfig{
		Port:     getEnvAsInt("PORT", 8080),
		DBPath:   getEnv("DB_PATH", "payroll.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) int {
	if val, err := strconv.Atoi(getEnv(name, "")); err == nil {
		return val
	}
	return defaultVal
}
