package a2a

// MessageSendConfiguration tunes message/send and message/stream behavior.
type MessageSendConfiguration struct {
	AcceptedOutputModes    []string                 `json:"acceptedOutputModes,omitempty"`
	Blocking               *bool                    `json:"blocking,omitempty"`
	HistoryLength          *int                     `json:"historyLength,omitempty"`
	PushNotificationConfig *PushNotificationConfig  `json:"pushNotificationConfig,omitempty"`
}

// MessageSendParams is the params object of message/send and message/stream.
type MessageSendParams struct {
	Message       Message                   `json:"message" validate:"required"`
	ContextID     *string                   `json:"contextId,omitempty"`
	TaskID        *string                   `json:"taskId,omitempty"`
	Configuration *MessageSendConfiguration `json:"configuration,omitempty"`
	Metadata      map[string]any            `json:"metadata,omitempty"`
}

// IsBlocking returns the effective blocking flag, defaulting to true.
func (p *MessageSendParams) IsBlocking() bool {
	if p.Configuration == nil || p.Configuration.Blocking == nil {
		return true
	}
	return *p.Configuration.Blocking
}

// HistoryLimit returns the requested history truncation, if any.
func (p *MessageSendParams) HistoryLimit() *int {
	if p.Configuration == nil {
		return nil
	}
	return p.Configuration.HistoryLength
}

// TaskIDParams identifies a task, used by tasks/cancel and the
// pushNotificationConfig family.
type TaskIDParams struct {
	ID       string         `json:"id" validate:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskQueryParams identifies a task for retrieval with optional history
// truncation.
type TaskQueryParams struct {
	ID            string         `json:"id" validate:"required"`
	HistoryLength *int           `json:"historyLength,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// TaskPushNotificationConfigSetParams is the params object of
// tasks/pushNotificationConfig/set.
type TaskPushNotificationConfigSetParams struct {
	TaskID                 string                 `json:"taskId" validate:"required"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig" validate:"required"`
}

// TaskPushNotificationConfigGetParams is the params object of
// tasks/pushNotificationConfig/get.
type TaskPushNotificationConfigGetParams struct {
	ID       string  `json:"id" validate:"required"`
	ConfigID *string `json:"pushNotificationConfigId,omitempty"`
}

// TaskPushNotificationConfigDeleteParams is the params object of
// tasks/pushNotificationConfig/delete.
type TaskPushNotificationConfigDeleteParams struct {
	ID       string `json:"id" validate:"required"`
	ConfigID string `json:"pushNotificationConfigId" validate:"required"`
}

// TaskPushNotificationConfigListParams is the params object of
// tasks/pushNotificationConfig/list.
type TaskPushNotificationConfigListParams struct {
	ID string `json:"id" validate:"required"`
}
