package billing

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/makkara/makkara/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetSubscriptionByUser(userID uint) (*models.Subscription, error)
	EnsureSubscription(userID uint) (*models.Subscription, error)
	ApplySubscriptionState(state SubscriptionState) error
	DeleteSubscriptionByUser(userID uint) error
	UserExists(userID uint) (bool, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetSubscriptionByUser(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// EnsureSubscription creates an inactive row for the user if none exists so
// later webhook events have something to attach to.
func (r *gormRepository) EnsureSubscription(userID uint) (*models.Subscription, error) {
	sub := &models.Subscription{UserID: userID, IsActive: false}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(sub).Error; err != nil {
		return nil, err
	}
	return r.GetSubscriptionByUser(userID)
}

// ApplySubscriptionState upserts the user's row. Empty provider references
// leave the stored ones untouched.
func (r *gormRepository) ApplySubscriptionState(state SubscriptionState) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("user_id = ?", state.UserID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = models.Subscription{UserID: state.UserID}
		} else if err != nil {
			return err
		}

		sub.IsActive = state.IsActive
		if state.CustomerID != "" {
			id := state.CustomerID
			sub.StripeCustomerID = &id
		}
		if state.SubscriptionID != "" {
			id := state.SubscriptionID
			sub.StripeSubscriptionID = &id
		}
		return tx.Save(&sub).Error
	})
}

func (r *gormRepository) DeleteSubscriptionByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Subscription{}).Error
}

func (r *gormRepository) UserExists(userID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
