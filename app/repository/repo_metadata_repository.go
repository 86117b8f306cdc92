package repository

import (
	"time"

	"github.com/makkara/makkara/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repoMetadataRepository struct {
	db *gorm.DB
}

// NewRepoMetadataRepository creates a new repository metadata instance
func NewRepoMetadataRepository(db *gorm.DB) RepoMetadataRepository {
	return &repoMetadataRepository{db: db}
}

// Upsert inserts or refreshes the row for repo.URL and loads the stored row
// (including its id) back into repo.
func (r *repoMetadataRepository) Upsert(repo *models.Repository) error {
	repo.LastFetchedAt = time.Now()
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner",
			"name",
			"description",
			"language",
			"stars",
			"forks",
			"last_fetched_at",
			"updated_at",
		}),
	}).Create(repo).Error; err != nil {
		return err
	}
	var stored models.Repository
	if err := r.db.Where("url = ?", repo.URL).First(&stored).Error; err != nil {
		return err
	}
	*repo = stored
	return nil
}

func (r *repoMetadataRepository) GetByURL(url string) (*models.Repository, error) {
	var repo models.Repository
	if err := r.db.Where("url = ?", url).First(&repo).Error; err != nil {
		return nil, err
	}
	return &repo, nil
}
