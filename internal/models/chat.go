package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// EmptyJSONList is stored for messages without tool calls.
var EmptyJSONList = datatypes.JSON("[]")

type ChatConversation struct {
	ID        string    `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null"`
	Title     string    `gorm:"not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type ChatMessage struct {
	ID             string         `gorm:"primaryKey"`
	ConversationID string         `gorm:"not null"`
	Seq            int64          `gorm:"not null"`
	Role           string         `gorm:"not null"`
	Content        string         `gorm:"not null;default:''"`
	ToolCalls      datatypes.JSON `gorm:"not null"`
	ToolResults    datatypes.JSON `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"not null"`
}
