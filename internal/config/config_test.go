package config

import "testing"

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	if cfg.MaxHistoryLength != 100 {
		t.Fatalf("expected max_history_length 100, got %d", cfg.MaxHistoryLength)
	}
	if cfg.MaxWebhookAttempts != 5 {
		t.Fatalf("expected max_webhook_attempts 5, got %d", cfg.MaxWebhookAttempts)
	}
	if cfg.EventQueueCapacity != 256 {
		t.Fatalf("expected event_queue_capacity 256, got %d", cfg.EventQueueCapacity)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("A2A_MAX_HISTORY_LENGTH", "50")
	t.Setenv("A2A_STREAMING_ENABLED", "false")
	t.Setenv("A2A_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxHistoryLength != 50 {
		t.Fatalf("expected overridden max_history_length 50, got %d", cfg.MaxHistoryLength)
	}
	if cfg.StreamingEnabled {
		t.Fatalf("expected streaming disabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://a.example" {
		t.Fatalf("unexpected cors origins: %+v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadMissingYAMLFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/a2a-server.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
