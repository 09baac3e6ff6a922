// Package pushnotify implements the push-notification manager (spec
// §4.6, C7): CRUD for webhook configs, webhook delivery with
// exponential-backoff retry, and the SSE client registry used by
// tasks/resubscribe.
package pushnotify

import (
	"context"
	"log/slog"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
	"github.com/agent-protocol/a2a-server/pkg/store"
)

// Manager is the push-notification manager. It implements
// taskmanager.Notifier.
type Manager struct {
	store    store.TaskStore
	sse      *sseRegistry
	webhooks *webhookDelivery
	logger   *slog.Logger
}

// New builds a Manager backed by taskStore for config persistence.
func New(taskStore store.TaskStore, cfg WebhookConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    taskStore,
		sse:      newSSERegistry(),
		webhooks: newWebhookDelivery(cfg, taskStore, logger),
		logger:   logger,
	}
}

// Close stops the background retry scanner.
func (m *Manager) Close() { m.webhooks.Close() }

// Notify fans event out to SSE subscribers and kicks off webhook
// delivery to every active config registered for its task. Status and
// artifact events are delivered to webhooks; plain task/message events
// are SSE-only (spec §4.3 "every status and artifact event is
// forwarded").
func (m *Manager) Notify(ctx context.Context, event *a2a.Event) {
	m.sse.Broadcast(event)

	switch event.Type {
	case a2a.EventTypeStatusUpdate, a2a.EventTypeArtifactUpdate:
	default:
		return
	}

	configs, err := m.store.ListPushConfigs(ctx, event.TaskID)
	if err != nil {
		return
	}
	for _, config := range configs {
		if !config.Active {
			continue
		}
		m.webhooks.Deliver(ctx, event.TaskID, config, event)
	}
}

// SubscribeSSE registers a new SSE connection for taskID, returning its
// event channel and an unregister function the caller must invoke when
// the connection ends (client disconnect, request cancellation).
func (m *Manager) SubscribeSSE(taskID, connID string) (<-chan *a2a.Event, func()) {
	return m.sse.Register(taskID, connID)
}

// SetPushConfig creates or updates a push-notification config for taskID.
func (m *Manager) SetPushConfig(ctx context.Context, taskID string, config a2a.PushNotificationConfig) (a2a.PushNotificationConfig, error) {
	return m.store.SavePushConfig(ctx, taskID, config)
}

// GetPushConfig fetches a specific config, or the first registered one
// when configID is nil.
func (m *Manager) GetPushConfig(ctx context.Context, taskID string, configID *string) (a2a.PushNotificationConfig, error) {
	return m.store.GetPushConfig(ctx, taskID, configID)
}

// ListPushConfigs returns every config registered for taskID.
func (m *Manager) ListPushConfigs(ctx context.Context, taskID string) ([]a2a.PushNotificationConfig, error) {
	return m.store.ListPushConfigs(ctx, taskID)
}

// DeletePushConfig removes a config, reporting whether it existed.
func (m *Manager) DeletePushConfig(ctx context.Context, taskID, configID string) (bool, error) {
	return m.store.DeletePushConfig(ctx, taskID, configID)
}
