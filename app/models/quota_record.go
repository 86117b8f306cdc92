package models

import "time"

// QuotaRecord holds the message counter of one identity for the current window.
// The limit is not enforced by storage; admission checks it before incrementing.
type QuotaRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	IdentityKey  string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"identity_key"`
	UserID       *uint     `gorm:"index" json:"user_id,omitempty"`
	MessageCount int       `gorm:"not null;default:0" json:"message_count"`
	WindowStart  time.Time `gorm:"not null" json:"window_start"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
