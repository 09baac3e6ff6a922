// Package store defines the task-persistence interface (spec §4.2, C3)
// and an in-memory reference implementation. Real backends (SQL,
// key-value) implement the same interface; only linearizability per task
// id is required of them.
package store

import (
	"context"
	"errors"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

// ErrNotFound is returned when a task or push config lookup misses.
var ErrNotFound = errors.New("store: not found")

// ErrStorageUnavailable wraps any backend I/O failure; callers propagate
// it as an internal-error per spec §4.2.
var ErrStorageUnavailable = errors.New("store: storage unavailable")

// ErrTerminalTransition is returned by UpdateTaskStatus when the stored
// task is already in a different terminal state than the one requested.
var ErrTerminalTransition = errors.New("store: task already in a terminal state")

// TaskStore is the persistence contract required by the rest of the
// engine (spec §4.2).
type TaskStore interface {
	SaveTask(ctx context.Context, task *a2a.Task) error

	// GetTask returns ErrNotFound if id is unknown. When historyLimit is
	// non-nil, History is truncated to at most that many of the most
	// recent messages (truncate-to-available, per SPEC_FULL.md §3).
	GetTask(ctx context.Context, id string, historyLimit *int) (*a2a.Task, error)

	// UpdateTaskStatus atomically applies status to the task identified
	// by id. A transition away from a terminal state fails with
	// ErrTerminalTransition, except idempotent reassertion of the same
	// terminal state, which succeeds without changing UpdatedAt.
	UpdateTaskStatus(ctx context.Context, id string, status a2a.TaskStatus) (*a2a.Task, error)

	// AppendArtifact inserts or merges an artifact into the task's
	// artifact list per mode.
	AppendArtifact(ctx context.Context, taskID string, artifact a2a.Artifact, mode a2a.ArtifactAppendMode) (*a2a.Task, error)

	// AppendMessage appends message to the task's history, truncating
	// from the front when it exceeds maxHistory.
	AppendMessage(ctx context.Context, taskID string, message a2a.Message, maxHistory int) error

	SavePushConfig(ctx context.Context, taskID string, config a2a.PushNotificationConfig) (a2a.PushNotificationConfig, error)

	// GetPushConfig returns ErrNotFound if no config matches. If
	// configID is nil, the first registered config for the task (in
	// registration order) is returned.
	GetPushConfig(ctx context.Context, taskID string, configID *string) (a2a.PushNotificationConfig, error)

	ListPushConfigs(ctx context.Context, taskID string) ([]a2a.PushNotificationConfig, error)

	// DeletePushConfig reports whether a config existed and was removed.
	DeletePushConfig(ctx context.Context, taskID, configID string) (bool, error)
}
