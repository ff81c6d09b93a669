package domain

import "time"

// Message is one entry in a session's conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionSummary is the list view of a session.
type SessionSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Status       Status    `json:"status"`
	MessageCount int       `json:"message_count"`
	HasPlan      bool      `json:"has_plan"`
}

// SessionSnapshot is the persisted form of a session.
type SessionSnapshot struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Status    Status         `json:"status"`
	Messages  []Message      `json:"messages"`
	State     map[string]any `json:"state"`
}
