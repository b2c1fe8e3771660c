package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DefaultConversationID is the single thread every user currently talks in.
const DefaultConversationID = "default"

type Message struct {
	ID             string
	UserID         string
	ConversationID string
	Role           Role
	Content        string
	Text           string // legacy
	Sender         string // legacy
	Timestamp      time.Time
}

// Body returns Content, falling back to the legacy Text field.
func (m *Message) Body() string {
	if m.Content != "" {
		return m.Content
	}
	return m.Text
}

type Summary struct {
	ID             string
	UserID         string
	ConversationID string
	Content        string
	CreatedAt      time.Time
}
