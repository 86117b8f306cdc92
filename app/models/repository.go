package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository caches the last-seen metadata of a GitHub repository. It is
// refreshed whenever a chat references the repository; it is not a freshness
// guarantee.
type Repository struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	URL           string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"url"`
	Owner         string    `gorm:"type:varchar(255);not null" json:"owner"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Language      string    `gorm:"type:varchar(100)" json:"language"`
	Stars         int       `gorm:"default:0" json:"stars"`
	Forks         int       `gorm:"default:0" json:"forks"`
	LastFetchedAt time.Time `json:"last_fetched_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Repository) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.LastFetchedAt.IsZero() {
		r.LastFetchedAt = time.Now()
	}
	return nil
}

// GitHubRepositoryURL is the canonical url stored for an owner/name pair.
func GitHubRepositoryURL(owner, name string) string {
	return "https://github.com/" + owner + "/" + name
}
