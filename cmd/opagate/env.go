package main

import "os"

// Environment variables read as flag defaults.
const (
	envConfigPath = "OPAGATE_CONFIG_PATH"
	envLogLevel   = "OPAGATE_LOG_LEVEL"
	envLogFormat  = "OPAGATE_LOG_FORMAT"
)

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
