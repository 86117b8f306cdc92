package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AIModel is a row of the static model catalog. Rows are seeded on startup
// and never overwritten.
type AIModel struct {
	ID                        string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name                      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Provider                  string    `gorm:"type:varchar(100);not null" json:"provider"`
	Version                   string    `gorm:"type:varchar(50)" json:"version"`
	Description               string    `gorm:"type:text" json:"description"`
	MaxTokens                 int       `json:"max_tokens"`
	IsActive                  bool      `gorm:"not null;default:true" json:"is_active"`
	CostInputCentsPerMillion  int       `gorm:"column:cost_per_token_input_in_cents_per_million" json:"cost_input_cents_per_million"`
	CostOutputCentsPerMillion int       `gorm:"column:cost_per_token_output_in_cents_per_million" json:"cost_output_cents_per_million"`
	CreatedAt                 time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AIModel) TableName() string {
	return "ai_models"
}

func (m *AIModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
