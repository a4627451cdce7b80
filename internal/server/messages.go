package server

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of a WebSocket broadcast message.
type MessageType string

const (
	// MessageTypeTodoUpdate indicates a todo was created, updated, or deleted.
	MessageTypeTodoUpdate MessageType = "todo_update"

	// MessageTypeStorageMode indicates the active storage mode.
	MessageTypeStorageMode MessageType = "storage_mode"

	// MessageTypeSummarySent indicates a summary was delivered to the webhook.
	MessageTypeSummarySent MessageType = "summary_sent"
)

// Message represents a WebSocket broadcast message.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// TodoUpdateData contains todo change information.
type TodoUpdateData struct {
	TodoID    string `json:"todo_id"`
	Action    string `json:"action"` // created, updated, deleted
	Title     string `json:"title,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

// StorageModeData announces the active storage mode to clients.
type StorageModeData struct {
	Mode    string `json:"mode"`
	Warning string `json:"warning,omitempty"`
}

// SummarySentData contains summary delivery information.
type SummarySentData struct {
	TodoCount int `json:"todo_count"`
}
