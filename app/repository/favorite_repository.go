package repository

import (
	"github.com/makkara/makkara/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a new favorite repository instance
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) ListByUser(userID uint) ([]models.FavoriteRepo, error) {
	var favs []models.FavoriteRepo
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&favs).Error
	return favs, err
}

// Add inserts fav unless the (user, url) pair exists. fav is filled with the
// stored row either way; the boolean reports whether a row was created.
func (r *favoriteRepository) Add(fav *models.FavoriteRepo) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "repo_url"}},
		DoNothing: true,
	}).Create(fav)
	if tx.Error != nil {
		return false, tx.Error
	}
	created := tx.RowsAffected > 0
	if !created {
		var stored models.FavoriteRepo
		if err := r.db.Where("user_id = ? AND repo_url = ?", fav.UserID, fav.RepoURL).First(&stored).Error; err != nil {
			return false, err
		}
		*fav = stored
	}
	return created, nil
}

func (r *favoriteRepository) GetByID(id uint) (*models.FavoriteRepo, error) {
	var fav models.FavoriteRepo
	if err := r.db.First(&fav, id).Error; err != nil {
		return nil, err
	}
	return &fav, nil
}

func (r *favoriteRepository) Delete(id uint) error {
	return r.db.Delete(&models.FavoriteRepo{}, id).Error
}
