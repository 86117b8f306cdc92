package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ChatStatusActive = "active"

	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"

	chatTitleMaxRunes = 50
)

// ChatSession groups the messages exchanged about one repository.
type ChatSession struct {
	ID           string      `gorm:"type:char(36);primaryKey" json:"id"`
	IdentityKey  string      `gorm:"type:varchar(191);not null;index" json:"-"`
	UserID       *uint       `gorm:"index" json:"user_id,omitempty"`
	Title        string      `gorm:"type:varchar(255)" json:"title"`
	Status       string      `gorm:"type:varchar(50);not null;default:'active'" json:"status"`
	ModelID      *string     `gorm:"type:char(36);index" json:"model_id,omitempty"`
	RepositoryID string      `gorm:"type:char(36);not null;index" json:"repository_id"`
	Repository   *Repository `gorm:"foreignKey:RepositoryID" json:"repository,omitempty"`
	CreatedAt    time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// Message is appended to a chat and never mutated afterwards.
type Message struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	ChatID    string    `gorm:"type:char(36);not null;index" json:"chat_id"`
	Role      string    `gorm:"type:varchar(50);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Seq       int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (c *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = ChatStatusActive
	}
	return nil
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// ChatTitle derives a session title from the first user message.
func ChatTitle(firstMessage string) string {
	if utf8.RuneCountInString(firstMessage) <= chatTitleMaxRunes {
		return firstMessage
	}
	runes := []rune(firstMessage)
	return string(runes[:chatTitleMaxRunes])
}

// IsValidMessageRole reports whether role is one of the persisted roles.
func IsValidMessageRole(role string) bool {
	return role == MessageRoleUser || role == MessageRoleAssistant
}
