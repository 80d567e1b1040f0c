// Package config provides configuration for the visual IVR server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort     int // External port, receives signals from the session service
	InternalPort int // Voice gateway WebSocket and call ledger API

	// PublicURL is how the session service reaches the external port.
	PublicURL string

	// Database
	DatabaseURL string

	// ChoiceView session API
	ChoiceViewURL      string
	ChoiceViewUsername string
	ChoiceViewPassword string
	ContentURL         string
	EndButton          string
	PolicyFile         string

	// Timeouts
	RequestTimeout  time.Duration
	AskGrace        time.Duration
	ShutdownTimeout time.Duration

	// Prompts
	PromptsFile string

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables.
func Load() *Config {
	httpPort := getEnvInt("HTTP_PORT", 8080)
	return &Config{
		HTTPPort:           httpPort,
		InternalPort:       getEnvInt("INTERNAL_PORT", 8081),
		PublicURL:          getEnv("PUBLIC_URL", fmt.Sprintf("http://localhost:%d", httpPort)),
		DatabaseURL:        getEnv("DATABASE_URL", "file:visualivr.db?cache=shared&mode=rwc"),
		ChoiceViewURL:      getEnv("CHOICEVIEW_API_URL", "https://cvnet2.radishsystems.com/ivr/api"),
		ChoiceViewUsername: getEnv("CHOICEVIEW_USERNAME", ""),
		ChoiceViewPassword: getEnv("CHOICEVIEW_PASSWORD", ""),
		ContentURL:         getEnv("CONTENT_URL", "https://cvnet2.radishsystems.com/Choiceview/ivr/api_button_demo.html"),
		EndButton:          getEnv("END_BUTTON", "2"),
		PolicyFile:         getEnv("POLICY_FILE", ""),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_MS", 15000)) * time.Millisecond,
		AskGrace:           time.Duration(getEnvInt("ASK_GRACE_MS", 5000)) * time.Millisecond,
		ShutdownTimeout:    time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_MS", 10000)) * time.Millisecond,
		PromptsFile:        getEnv("PROMPTS_FILE", ""),
		PingInterval:       time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:       time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:        time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:     int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}
}

// SignalBaseURI returns the notification address prefix for a call session.
// The session service appends the signal tag.
func (c *Config) SignalBaseURI(callSessionID string) string {
	return strings.TrimSuffix(c.PublicURL, "/") + "/v1/calls/" + callSessionID + "/signals?action=signal&value="
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
