package domain

import "time"

// ChatState is the authorization state of a chat
type ChatState string

const (
	ChatStateUnregistered ChatState = "unregistered"
	ChatStateOwner        ChatState = "owner"
	ChatStateAllowed      ChatState = "allowed"
	ChatStateUnauthorized ChatState = "unauthorized"
)

// CanInject reports whether messages from a chat in this state reach the session
func (s ChatState) CanInject() bool {
	return s == ChatStateOwner || s == ChatStateAllowed
}

// ChatRecord is the durable authorization record of a chat
type ChatRecord struct {
	ChatID    int64     `json:"chat_id"`
	State     ChatState `json:"state"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewChatRecord creates a record in the given state
func NewChatRecord(chatID int64, name string, state ChatState) *ChatRecord {
	now := time.Now()
	return &ChatRecord{
		ChatID:    chatID,
		State:     state,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Promote moves an unauthorized record to allowed. Owner is never demoted.
func (r *ChatRecord) Promote() bool {
	if r.State.CanInject() {
		return false
	}
	r.State = ChatStateAllowed
	r.UpdatedAt = time.Now()
	return true
}
