package pushnotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
	"github.com/agent-protocol/a2a-server/pkg/store"
)

// protocolVersion stamps the User-Agent header of outbound webhook
// requests (spec §6 "User-Agent: A2A/<version>").
const protocolVersion = "0.2"

// WebhookConfig holds the tunables of spec §6's webhook delivery
// parameters (max_webhook_attempts, retry_base_seconds, retry_max_seconds,
// webhook_timeout_seconds).
type WebhookConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultWebhookConfig matches spec.md §6's documented defaults.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Timeout:     30 * time.Second,
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
	}
}

type retryItem struct {
	taskID      string
	configID    string
	event       *a2a.Event
	attempt     int
	nextAttempt time.Time
	backoff     *backoff.ExponentialBackOff
}

// webhookDelivery owns outbound HTTP delivery to registered push-
// notification targets, including the background retry queue (spec
// §4.6 "Webhook delivery").
type webhookDelivery struct {
	cfg    WebhookConfig
	store  store.TaskStore
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	queue []*retryItem

	stop chan struct{}
	once sync.Once
}

func newWebhookDelivery(cfg WebhookConfig, taskStore store.TaskStore, logger *slog.Logger) *webhookDelivery {
	w := &webhookDelivery{
		cfg:    cfg,
		store:  taskStore,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		stop:   make(chan struct{}),
	}
	go w.scanLoop()
	return w
}

func (w *webhookDelivery) Close() {
	w.once.Do(func() { close(w.stop) })
}

func (w *webhookDelivery) scanLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case now := <-ticker.C:
			w.scan(now)
		}
	}
}

func (w *webhookDelivery) scan(now time.Time) {
	w.mu.Lock()
	due := make([]*retryItem, 0)
	remaining := w.queue[:0]
	for _, item := range w.queue {
		if !now.Before(item.nextAttempt) {
			due = append(due, item)
		} else {
			remaining = append(remaining, item)
		}
	}
	w.queue = remaining
	w.mu.Unlock()

	for _, item := range due {
		go w.attempt(context.Background(), item)
	}
}

// Deliver starts (or schedules) delivery of event to config for taskID,
// attempt 1.
func (w *webhookDelivery) Deliver(ctx context.Context, taskID string, config a2a.PushNotificationConfig, event *a2a.Event) {
	item := &retryItem{taskID: taskID, configID: config.ID, event: event, attempt: 1}
	go w.attempt(ctx, item)
}

func (w *webhookDelivery) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.BaseDelay
	b.MaxInterval = w.cfg.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.1
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (w *webhookDelivery) attempt(ctx context.Context, item *retryItem) {
	config, err := w.store.GetPushConfig(ctx, item.taskID, &item.configID)
	if err != nil {
		return // config was deleted since this attempt was scheduled
	}
	if !config.Active {
		return
	}

	err = w.post(ctx, item.taskID, config, item.event, item.attempt)
	now := time.Now().UTC()

	if err == nil {
		config.Active = true
		config.RetryCount = 0
		config.LastError = ""
		config.LastSuccessAt = &now
		if _, saveErr := w.store.SavePushConfig(ctx, item.taskID, config); saveErr != nil {
			w.logger.Warn("failed to persist push config success", "task_id", item.taskID, "config_id", config.ID, "error", saveErr)
		}
		return
	}

	config.RetryCount = item.attempt
	config.LastError = err.Error()
	config.LastFailureAt = &now

	if item.attempt >= w.cfg.MaxAttempts {
		config.Active = false
		if _, saveErr := w.store.SavePushConfig(ctx, item.taskID, config); saveErr != nil {
			w.logger.Warn("failed to persist push config exhaustion", "task_id", item.taskID, "config_id", config.ID, "error", saveErr)
		}
		w.logger.Warn("webhook delivery exhausted retries", "task_id", item.taskID, "config_id", config.ID, "attempts", item.attempt)
		return
	}

	if _, saveErr := w.store.SavePushConfig(ctx, item.taskID, config); saveErr != nil {
		w.logger.Warn("failed to persist push config retry state", "task_id", item.taskID, "config_id", config.ID, "error", saveErr)
	}

	if item.backoff == nil {
		item.backoff = w.newBackoff()
	}
	delay := item.backoff.NextBackOff()
	// NextBackOff computes its own jitter via RandomizationFactor; add a
	// small extra jitter term matching spec.md's uniform(0, 0.1*delay)
	// scheduling-time smear on top of the library's per-attempt jitter.
	delay += time.Duration(rand.Int63n(int64(delay)/10 + 1))

	item.attempt++
	item.nextAttempt = time.Now().Add(delay)

	w.mu.Lock()
	w.queue = append(w.queue, item)
	w.mu.Unlock()
}

// webhookPayload is the wire body of a push-notification delivery (spec
// §6 "Webhook POST body").
type webhookPayload struct {
	EventType string    `json:"event_type"`
	EventData *a2a.Event `json:"event_data"`
	Timestamp time.Time `json:"timestamp"`
	Attempt   int       `json:"attempt"`
}

func (w *webhookDelivery) post(ctx context.Context, taskID string, config a2a.PushNotificationConfig, event *a2a.Event, attempt int) error {
	body, err := json.Marshal(webhookPayload{
		EventType: string(event.Type),
		EventData: event,
		Timestamp: time.Now().UTC(),
		Attempt:   attempt,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "A2A/"+protocolVersion)
	req.Header.Set("X-A2A-Task-ID", taskID)
	req.Header.Set("X-A2A-Config-ID", config.ID)
	applyAuth(req, config)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

// applyAuth sets the webhook request's authentication header (spec §4.6:
// "Bearer token from token, or from authentication.type"). A plain
// token takes precedence and is sent as a bearer token; authentication
// is only consulted when no token is set.
func applyAuth(req *http.Request, config a2a.PushNotificationConfig) {
	if config.Token != nil && *config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+*config.Token)
		return
	}
	if config.Authentication == nil {
		return
	}
	switch config.Authentication.Type {
	case a2a.AuthSchemeBearer:
		if token, ok := config.Authentication.Credentials["token"].(string); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	case a2a.AuthSchemeBasic:
		user, _ := config.Authentication.Credentials["username"].(string)
		pass, _ := config.Authentication.Credentials["password"].(string)
		req.SetBasicAuth(user, pass)
	case a2a.AuthSchemeAPIKey:
		if key, ok := config.Authentication.Credentials["key"].(string); ok {
			headerName, _ := config.Authentication.Credentials["header"].(string)
			if headerName == "" {
				headerName = "X-API-Key"
			}
			req.Header.Set(headerName, key)
		}
	}
}
