package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/makkara/makkara/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindOrCreateByProvider resolves an OAuth identity to a local user. A known
// provider account wins; otherwise a user with the same email is linked, and
// only then a new user is created.
func (r *userRepository) FindOrCreateByProvider(identity ProviderIdentity) (*models.User, error) {
	provider := strings.ToLower(strings.TrimSpace(identity.Provider))
	providerUserID := strings.TrimSpace(identity.ProviderUserID)
	if provider == "" || providerUserID == "" {
		return nil, errors.New("provider and provider user id are required")
	}

	var user models.User
	err := r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		var account models.ProviderAccount
		err := tx.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&account).Error
		switch {
		case err == nil:
			if err := tx.First(&user, account.UserID).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			email := strings.ToLower(strings.TrimSpace(identity.Email))
			lookupErr := gorm.ErrRecordNotFound
			if email != "" {
				lookupErr = tx.Where("email = ?", email).First(&user).Error
			}
			if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				if email == "" {
					// GitHub hides private emails; keep the unique column populated.
					email = provider + "-" + providerUserID + "@users.noreply.makkara"
				}
				name := strings.TrimSpace(identity.Name)
				if name == "" {
					name = identity.Login
				}
				user = models.User{
					Name:      name,
					Email:     email,
					AvatarURL: identity.AvatarURL,
					Status:    models.STATUS_ACTIVE,
				}
				if err := tx.Create(&user).Error; err != nil {
					return err
				}
			} else if lookupErr != nil {
				return lookupErr
			}
			account = models.ProviderAccount{
				UserID:         user.ID,
				Provider:       provider,
				ProviderUserID: providerUserID,
			}
		default:
			return err
		}

		account.Login = identity.Login
		account.AccessToken = identity.AccessToken
		account.ExpiresAt = identity.ExpiresAt
		if err := tx.Save(&account).Error; err != nil {
			return err
		}

		user.LastLoginAt = &now
		if identity.AvatarURL != "" {
			user.AvatarURL = identity.AvatarURL
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetStatsByUserID returns aggregate statistics for the given user.
func (r *userRepository) GetStatsByUserID(userID uint) (*UserStats, error) {
	var stats UserStats
	if err := r.db.Model(&models.FavoriteRepo{}).Where("user_id = ?", userID).Count(&stats.FavoriteCount).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.ChatSession{}).Where("user_id = ?", userID).Count(&stats.ChatCount).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// DeleteCascade irreversibly removes the user and every row that references
// them, in one transaction.
func (r *userRepository) DeleteCascade(userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}

		chatIDs := tx.Model(&models.ChatSession{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("chat_id IN (?)", chatIDs).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		steps := []struct {
			model interface{}
			query string
			args  []interface{}
		}{
			{&models.ChatSession{}, "user_id = ?", []interface{}{userID}},
			{&models.FavoriteRepo{}, "user_id = ?", []interface{}{userID}},
			{&models.QuotaRecord{}, "user_id = ? OR identity_key = ?", []interface{}{userID, user.IdentityKey()}},
			{&models.Subscription{}, "user_id = ?", []interface{}{userID}},
			{&models.ProviderAccount{}, "user_id = ?", []interface{}{userID}},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, step.args...).Delete(step.model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
}
