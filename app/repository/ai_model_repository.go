package repository

import (
	"github.com/makkara/makkara/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type aiModelRepository struct {
	db *gorm.DB
}

// NewAIModelRepository creates a new model catalog repository instance
func NewAIModelRepository(db *gorm.DB) AIModelRepository {
	return &aiModelRepository{db: db}
}

func (r *aiModelRepository) GetByName(name string) (*models.AIModel, error) {
	var m models.AIModel
	if err := r.db.Where("name = ?", name).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindOrCreate returns the stored row named like row, inserting row first
// when the name is unknown. Stored rows are never overwritten.
func (r *aiModelRepository) FindOrCreate(row *models.AIModel) (*models.AIModel, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.GetByName(row.Name)
}

// UsageCounts returns how many chat sessions reference each catalog model,
// including models that were never used.
func (r *aiModelRepository) UsageCounts() ([]ModelUsage, error) {
	usage := []ModelUsage{}
	err := r.db.Table("ai_models").
		Select("ai_models.name AS model, COUNT(chat_sessions.id) AS count").
		Joins("LEFT JOIN chat_sessions ON chat_sessions.model_id = ai_models.id").
		Group("ai_models.id, ai_models.name").
		Order("ai_models.name ASC").
		Scan(&usage).Error
	return usage, err
}
