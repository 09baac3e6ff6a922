// Package config loads the server's runtime configuration (spec §6)
// from environment variables and an optional YAML file, grounded in the
// teacher's viper-free env/YAML layering style.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full set of recognized options: spec §6's A2A tunables
// plus the ambient HTTP/logging concerns §6 doesn't name.
type Config struct {
	MaxHistoryLength        int      `yaml:"max_history_length"`
	WebhookTimeoutSeconds   float64  `yaml:"webhook_timeout_seconds"`
	MaxWebhookAttempts      int      `yaml:"max_webhook_attempts"`
	RetryBaseSeconds        float64  `yaml:"retry_base_seconds"`
	RetryMaxSeconds         float64  `yaml:"retry_max_seconds"`
	EventQueueCapacity      int      `yaml:"event_queue_capacity"`
	SyncSendTimeoutSeconds  float64  `yaml:"sync_send_timeout_seconds"`
	DefaultInputModes       []string `yaml:"default_input_modes"`
	DefaultOutputModes      []string `yaml:"default_output_modes"`
	StreamingEnabled        bool     `yaml:"streaming_enabled"`
	PushNotificationsEnabled bool    `yaml:"push_notifications_enabled"`
	ProtocolVersion         string   `yaml:"protocol_version"`

	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	MountPrefix        string   `yaml:"mount_prefix"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	LogLevel           string   `yaml:"log_level"`
}

// Default returns the documented defaults (spec §6).
func Default() Config {
	return Config{
		MaxHistoryLength:          100,
		WebhookTimeoutSeconds:     30,
		MaxWebhookAttempts:        5,
		RetryBaseSeconds:          1.0,
		RetryMaxSeconds:           60.0,
		EventQueueCapacity:        256,
		SyncSendTimeoutSeconds:    30,
		DefaultInputModes:         []string{"text"},
		DefaultOutputModes:        []string{"text"},
		StreamingEnabled:          true,
		PushNotificationsEnabled:  true,
		ProtocolVersion:           "0.2",
		Host:                      "0.0.0.0",
		Port:                      8080,
		MountPrefix:               "",
		LogLevel:                  "info",
	}
}

// Load builds a Config starting from Default(), overlaying an optional
// YAML file (yamlPath may be empty), then A2A_-prefixed environment
// variables, which take final precedence.
func Load(yamlPath string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", yamlPath, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := lookupEnv("MAX_HISTORY_LENGTH"); ok {
		cfg.MaxHistoryLength = atoiOr(v, cfg.MaxHistoryLength)
	}
	if v, ok := lookupEnv("WEBHOOK_TIMEOUT_SECONDS"); ok {
		cfg.WebhookTimeoutSeconds = atofOr(v, cfg.WebhookTimeoutSeconds)
	}
	if v, ok := lookupEnv("MAX_WEBHOOK_ATTEMPTS"); ok {
		cfg.MaxWebhookAttempts = atoiOr(v, cfg.MaxWebhookAttempts)
	}
	if v, ok := lookupEnv("RETRY_BASE_SECONDS"); ok {
		cfg.RetryBaseSeconds = atofOr(v, cfg.RetryBaseSeconds)
	}
	if v, ok := lookupEnv("RETRY_MAX_SECONDS"); ok {
		cfg.RetryMaxSeconds = atofOr(v, cfg.RetryMaxSeconds)
	}
	if v, ok := lookupEnv("EVENT_QUEUE_CAPACITY"); ok {
		cfg.EventQueueCapacity = atoiOr(v, cfg.EventQueueCapacity)
	}
	if v, ok := lookupEnv("SYNC_SEND_TIMEOUT_SECONDS"); ok {
		cfg.SyncSendTimeoutSeconds = atofOr(v, cfg.SyncSendTimeoutSeconds)
	}
	if v, ok := lookupEnv("DEFAULT_INPUT_MODES"); ok {
		cfg.DefaultInputModes = splitCSV(v)
	}
	if v, ok := lookupEnv("DEFAULT_OUTPUT_MODES"); ok {
		cfg.DefaultOutputModes = splitCSV(v)
	}
	if v, ok := lookupEnv("STREAMING_ENABLED"); ok {
		cfg.StreamingEnabled = atobOr(v, cfg.StreamingEnabled)
	}
	if v, ok := lookupEnv("PUSH_NOTIFICATIONS_ENABLED"); ok {
		cfg.PushNotificationsEnabled = atobOr(v, cfg.PushNotificationsEnabled)
	}
	if v, ok := lookupEnv("PROTOCOL_VERSION"); ok {
		cfg.ProtocolVersion = v
	}
	if v, ok := lookupEnv("HOST"); ok {
		cfg.Host = v
	}
	if v, ok := lookupEnv("PORT"); ok {
		cfg.Port = atoiOr(v, cfg.Port)
	}
	if v, ok := lookupEnv("MOUNT_PREFIX"); ok {
		cfg.MountPrefix = v
	}
	if v, ok := lookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
}

func lookupEnv(suffix string) (string, bool) {
	return os.LookupEnv("A2A_" + suffix)
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func atofOr(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return f
}

func atobOr(s string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return b
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
