package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

// InMemoryTaskStore is the reference TaskStore: a map of task id to task,
// guarded by a single lock, per spec §4.2. It is meant for tests, demos,
// and single-process deployments; concurrent backends only need to
// preserve per-task-id linearizability.
type InMemoryTaskStore struct {
	mu          sync.Mutex
	tasks       map[string]*a2a.Task
	pushConfigs map[string][]a2a.PushNotificationConfig // taskID -> configs, registration order
}

// NewInMemoryTaskStore creates an empty store.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks:       make(map[string]*a2a.Task),
		pushConfigs: make(map[string][]a2a.PushNotificationConfig),
	}
}

func cloneTask(t *a2a.Task) *a2a.Task {
	if t == nil {
		return nil
	}
	clone := *t
	clone.History = append([]a2a.Message(nil), t.History...)
	clone.Artifacts = append([]a2a.Artifact(nil), t.Artifacts...)
	if t.Metadata != nil {
		clone.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

func (s *InMemoryTaskStore) SaveTask(ctx context.Context, task *a2a.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (s *InMemoryTaskStore) GetTask(ctx context.Context, id string, historyLimit *int) (*a2a.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	task := cloneTask(stored)
	if historyLimit != nil {
		task.History = truncateHistory(task.History, *historyLimit)
	}
	return task, nil
}

// truncateHistory returns at most limit of the most recent messages.
// limit <= 0 yields an empty history; a limit larger than len(history)
// yields the whole history unchanged (truncate-to-available).
func truncateHistory(history []a2a.Message, limit int) []a2a.Message {
	if limit <= 0 {
		return []a2a.Message{}
	}
	if limit >= len(history) {
		return history
	}
	return history[len(history)-limit:]
}

func (s *InMemoryTaskStore) UpdateTaskStatus(ctx context.Context, id string, status a2a.TaskStatus) (*a2a.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}

	if stored.Status.State.Terminal() {
		if stored.Status.State != status.State {
			return nil, ErrTerminalTransition
		}
		// Idempotent reassertion of the same terminal state: keep the
		// original UpdatedAt (spec §8 round-trip/idempotence property).
		return cloneTask(stored), nil
	}

	stored.Status = status
	return cloneTask(stored), nil
}

func (s *InMemoryTaskStore) AppendArtifact(ctx context.Context, taskID string, artifact a2a.Artifact, mode a2a.ArtifactAppendMode) (*a2a.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}

	idx := -1
	for i, existing := range stored.Artifacts {
		if existing.ArtifactID == artifact.ArtifactID {
			idx = i
			break
		}
	}

	switch {
	case idx < 0:
		stored.Artifacts = append(stored.Artifacts, artifact)
	case mode == a2a.ArtifactModeAppendParts:
		stored.Artifacts[idx].Parts = append(stored.Artifacts[idx].Parts, artifact.Parts...)
	default: // replace
		stored.Artifacts[idx] = artifact
	}

	return cloneTask(stored), nil
}

func (s *InMemoryTaskStore) AppendMessage(ctx context.Context, taskID string, message a2a.Message, maxHistory int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}

	stored.History = append(stored.History, message)
	if maxHistory > 0 && len(stored.History) > maxHistory {
		stored.History = stored.History[len(stored.History)-maxHistory:]
	}
	return nil
}

func (s *InMemoryTaskStore) SavePushConfig(ctx context.Context, taskID string, config a2a.PushNotificationConfig) (a2a.PushNotificationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	if config.LastSuccessAt == nil && config.LastFailureAt == nil && config.RetryCount == 0 {
		config.Active = true
	}

	configs := s.pushConfigs[taskID]
	for i, existing := range configs {
		if existing.ID == config.ID {
			configs[i] = config
			s.pushConfigs[taskID] = configs
			return config, nil
		}
	}
	s.pushConfigs[taskID] = append(configs, config)
	return config, nil
}

func (s *InMemoryTaskStore) GetPushConfig(ctx context.Context, taskID string, configID *string) (a2a.PushNotificationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs := s.pushConfigs[taskID]
	if configID == nil {
		if len(configs) == 0 {
			return a2a.PushNotificationConfig{}, ErrNotFound
		}
		return configs[0], nil
	}
	for _, c := range configs {
		if c.ID == *configID {
			return c, nil
		}
	}
	return a2a.PushNotificationConfig{}, ErrNotFound
}

func (s *InMemoryTaskStore) ListPushConfigs(ctx context.Context, taskID string) ([]a2a.PushNotificationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]a2a.PushNotificationConfig(nil), s.pushConfigs[taskID]...), nil
}

func (s *InMemoryTaskStore) DeletePushConfig(ctx context.Context, taskID, configID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs := s.pushConfigs[taskID]
	for i, c := range configs {
		if c.ID == configID {
			s.pushConfigs[taskID] = append(configs[:i], configs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
