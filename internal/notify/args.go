package notify

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NotificationArgs is the river payload for an in-app notification. Enqueued
// with InsertTx inside the financial transaction, delivered after commit.
type NotificationArgs struct {
	UserID   uuid.UUID       `json:"user_id"`
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func (NotificationArgs) Kind() string { return "send_notification" }

// EmailArgs is the river payload for a templated email.
type EmailArgs struct {
	To        string            `json:"to"`
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables"`
}

func (EmailArgs) Kind() string { return "send_email" }
