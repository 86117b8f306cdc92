package models

import "time"

// FavoriteRepo is a repository a user saved for quick access.
type FavoriteRepo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_favorite_repos_user_url,unique,priority:1" json:"user_id"`
	RepoURL   string    `gorm:"type:varchar(255);not null;index:ux_favorite_repos_user_url,unique,priority:2" json:"repo_url" validate:"required,url,max=255"`
	Owner     string    `gorm:"type:varchar(255);not null" json:"owner"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
