// Package a2a defines the wire and domain types of the Agent-to-Agent
// (A2A) protocol: tasks, messages, parts, artifacts, agent cards, and the
// events that flow between an agent executor and its subscribers.
//
// Wire representation is camelCase JSON; Go field names are the idiomatic
// exported form. Unknown input fields are tolerated (encoding/json already
// does this) and dropped on output (we simply never populate them).
package a2a

import "time"

// Role identifies the author of a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// TaskState is the lifecycle state of a Task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateRejected      TaskState = "rejected"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateUnknown       TaskState = "unknown"
)

// Terminal reports whether s has no outgoing transitions.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected:
		return true
	default:
		return false
	}
}

// Cancelable reports whether a task in state s can be canceled.
func (s TaskState) Cancelable() bool {
	switch s {
	case TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired:
		return true
	default:
		return false
	}
}

// TaskStatus is the current status of a Task.
type TaskStatus struct {
	State     TaskState    `json:"state"`
	Message   *Message     `json:"message,omitempty"`
	Progress  *float64     `json:"progress,omitempty"`
	Result    any          `json:"result,omitempty"`
	Error     *TaskError   `json:"error,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// TaskError carries a structured execution failure.
type TaskError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Task is a unit of agent work with lifecycle state, history, and artifacts.
type Task struct {
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Kind      string         `json:"kind"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	History   []Message      `json:"history,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewTask builds a freshly submitted Task with kind populated.
func NewTask(id, contextID string) *Task {
	return &Task{
		ID:        id,
		ContextID: contextID,
		Kind:      "task",
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			UpdatedAt: time.Now().UTC(),
		},
	}
}

// Message is a single turn of conversation attached to a task or sent standalone.
type Message struct {
	MessageID        string         `json:"messageId"`
	Kind             string         `json:"kind"`
	Role             Role           `json:"role"`
	Parts            []Part         `json:"parts"`
	ContextID        *string        `json:"contextId,omitempty"`
	TaskID           *string        `json:"taskId,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Extensions       []string       `json:"extensions,omitempty"`
	ReferenceTaskIDs []string       `json:"referenceTaskIds,omitempty"`
}

// PartKind discriminates the Part union.
type PartKind string

const (
	PartKindText PartKind = "text"
	PartKindFile PartKind = "file"
	PartKindData PartKind = "data"
)

// Part is a tagged union over {text, file, data}, keyed by Kind. Data
// carries any JSON value (object, array, string, number, bool, null),
// not just objects.
type Part struct {
	Kind     PartKind       `json:"kind"`
	Text     string         `json:"text,omitempty"`
	File     *FilePart      `json:"file,omitempty"`
	Data     any            `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FilePart carries either inline bytes or a URI reference to a file.
type FilePart struct {
	Name     *string `json:"name,omitempty"`
	MimeType *string `json:"mimeType,omitempty"`
	Bytes    *string `json:"bytes,omitempty"` // base64
	URI      *string `json:"uri,omitempty"`
}

// TextPart is a convenience constructor for a text Part.
func TextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// Artifact is a named output produced during task execution.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Extensions  []string       `json:"extensions,omitempty"`
}

// AuthScheme discriminates push-notification authentication variants.
type AuthScheme string

const (
	AuthSchemeBearer AuthScheme = "bearer"
	AuthSchemeBasic  AuthScheme = "basic"
	AuthSchemeAPIKey AuthScheme = "api_key"
	AuthSchemeCustom AuthScheme = "custom"
)

// PushNotificationAuthentication describes how the server should
// authenticate itself to a webhook target.
type PushNotificationAuthentication struct {
	Type        AuthScheme     `json:"type"`
	Credentials map[string]any `json:"credentials,omitempty"`
}

// PushNotificationConfig is a registered webhook target for task events.
type PushNotificationConfig struct {
	ID             string                           `json:"id"`
	URL            string                           `json:"url" validate:"required,url"`
	Token          *string                           `json:"token,omitempty"`
	Authentication *PushNotificationAuthentication   `json:"authentication,omitempty"`

	// Delivery bookkeeping, not part of the client-facing CRUD payload but
	// serialized for store round-tripping and observability.
	Active        bool       `json:"active"`
	RetryCount    int        `json:"retryCount"`
	LastError     string     `json:"lastError,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
}

// TaskPushNotificationConfig binds a PushNotificationConfig to a task.
type TaskPushNotificationConfig struct {
	TaskID                 string                 `json:"taskId"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}

// EventType discriminates the Event union published on an event queue.
type EventType string

const (
	EventTypeTask            EventType = "task"
	EventTypeMessage         EventType = "message"
	EventTypeStatusUpdate    EventType = "task_status_update"
	EventTypeArtifactUpdate  EventType = "task_artifact_update"
)

// Event is a typed message flowing from an executor to the task manager
// and its subscribers (SSE clients, webhook targets).
type Event struct {
	Type      EventType `json:"type"`
	TaskID    string    `json:"taskId"`
	ContextID string    `json:"contextId"`

	Task            *Task                    `json:"task,omitempty"`
	Message         *Message                 `json:"message,omitempty"`
	StatusUpdate    *TaskStatusUpdateEvent   `json:"statusUpdate,omitempty"`
	ArtifactUpdate  *TaskArtifactUpdateEvent `json:"artifactUpdate,omitempty"`
}

// TaskStatusUpdateEvent signals a task status transition.
type TaskStatusUpdateEvent struct {
	Kind      string         `json:"kind"` // "status-update"
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TaskArtifactUpdateEvent signals a new or updated artifact.
type TaskArtifactUpdateEvent struct {
	Kind      string         `json:"kind"` // "artifact-update"
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Artifact  Artifact       `json:"artifact"`
	Append    bool           `json:"append"`
	LastChunk bool           `json:"lastChunk"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ArtifactAppendMode selects how append_artifact merges into existing state.
type ArtifactAppendMode string

const (
	ArtifactModeReplace     ArtifactAppendMode = "replace"
	ArtifactModeAppendParts ArtifactAppendMode = "append_parts"
)
