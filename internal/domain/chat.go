package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ChatSessionActive = "active"
	ChatSessionClosed = "closed"
)

// ChatSession. SessionID is client-supplied and unique; a message arriving
// for an unknown SessionID creates the session on demand (idempotent
// creation, not an error path).
type ChatSession struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID string    `gorm:"column:session_id;uniqueIndex;not null" json:"session_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Status    string    `gorm:"column:status;not null" json:"status"`
	StartTime time.Time `gorm:"column:start_time;not null" json:"start_time"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`

	Messages []ChatMessage `gorm:"foreignKey:SessionRowID" json:"messages,omitempty"`
}

func (ChatSession) TableName() string { return "chat_session" }

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage rows are append-only. Metadata carries the analysis snapshot
// attached to assistant messages.
type ChatMessage struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionRowID uuid.UUID      `gorm:"type:uuid;column:session_row_id;not null;index" json:"session_row_id"`
	Role         string         `gorm:"column:role;not null" json:"role"`
	Content      string         `gorm:"column:content;not null" json:"content"`
	Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	Timestamp    time.Time      `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (ChatMessage) TableName() string { return "chat_message" }
