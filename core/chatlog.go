package core

import (
	"context"
	"time"
)

// Chat history roles accepted by ChatLogStore implementations.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleSystem    = "system"
)

// ChatLogEntry is one append-only row of durable conversation history.
type ChatLogEntry struct {
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ChatLogStore persists conversation history rows. Append is one logical
// write; Recent returns up to limit rows for (user, session) ordered oldest
// to newest.
type ChatLogStore interface {
	Append(ctx context.Context, entry ChatLogEntry) error
	Recent(ctx context.Context, userID, sessionID string, limit int) ([]ChatLogEntry, error)
}
