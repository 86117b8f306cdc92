package repository

import (
	"time"

	"github.com/makkara/makkara/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	FindOrCreateByProvider(identity ProviderIdentity) (*models.User, error)
	GetStatsByUserID(userID uint) (*UserStats, error)
	DeleteCascade(userID uint) error
}

// RepoMetadataRepository stores the last-seen metadata of GitHub repositories
type RepoMetadataRepository interface {
	Upsert(repo *models.Repository) error
	GetByURL(url string) (*models.Repository, error)
}

// ChatRepository defines the interface for chat sessions and their messages
type ChatRepository interface {
	CreateSession(session *models.ChatSession) error
	GetSession(id string) (*models.ChatSession, error)
	ListSummariesByUser(userID uint, limit int) ([]ChatSummary, error)
	AppendMessages(session *models.ChatSession, messages []models.Message) (int, error)
	ListMessages(chatID string) ([]models.Message, error)
}

// FavoriteRepository defines the interface for saved repositories
type FavoriteRepository interface {
	ListByUser(userID uint) ([]models.FavoriteRepo, error)
	Add(fav *models.FavoriteRepo) (bool, error)
	GetByID(id uint) (*models.FavoriteRepo, error)
	Delete(id uint) error
}

// AIModelRepository defines the interface for the persisted model catalog
type AIModelRepository interface {
	GetByName(name string) (*models.AIModel, error)
	FindOrCreate(row *models.AIModel) (*models.AIModel, error)
	UsageCounts() ([]ModelUsage, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	RepoMetadata RepoMetadataRepository
	Chat         ChatRepository
	Favorite     FavoriteRepository
	AIModel      AIModelRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		RepoMetadata: NewRepoMetadataRepository(db),
		Chat:         NewChatRepository(db),
		Favorite:     NewFavoriteRepository(db),
		AIModel:      NewAIModelRepository(db),
	}
}

// ProviderIdentity is what an OAuth provider tells us about a signed-in user.
type ProviderIdentity struct {
	Provider       string
	ProviderUserID string
	Login          string
	Email          string
	Name           string
	AvatarURL      string
	AccessToken    string
	ExpiresAt      *time.Time
}

// UserStats provides aggregated counts for a single user.
type UserStats struct {
	FavoriteCount int64 `json:"favoriteCount"`
	ChatCount     int64 `json:"chatCount"`
}

// ChatSummary is one entry of the chat history listing.
type ChatSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Repository string    `json:"repository"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ModelUsage counts chat sessions per model.
type ModelUsage struct {
	Model string `json:"model"`
	Count int64  `json:"count"`
}
