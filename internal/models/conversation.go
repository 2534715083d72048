package models

import "time"

const (
	ConversationActive = "active"
	ConversationClosed = "closed"

	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation groups the messages exchanged in one chat.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_conversations_user_chat,priority:1" json:"user_id"`
	ChatID    int64     `gorm:"not null;index:idx_conversations_user_chat,priority:2" json:"chat_id"`
	Title     string    `gorm:"size:255" json:"title,omitempty"`
	Context   JSONMap   `gorm:"type:jsonb" json:"context"`
	Status    string    `gorm:"size:50;not null;default:'active'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User     *User     `json:"-"`
	Messages []Message `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Message is a single turn of a conversation.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	Role           string    `gorm:"size:50;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Metadata       JSONMap   `gorm:"column:message_metadata;type:jsonb" json:"metadata"`
	TokensUsed     int       `gorm:"default:0" json:"tokens_used"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}
