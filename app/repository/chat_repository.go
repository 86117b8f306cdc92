package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/makkara/makkara/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidMessageRole = errors.New("invalid message role")
	ErrSessionNotOwned    = errors.New("chat session belongs to another identity")
)

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository instance
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// CreateSession inserts the session. An existing row with the same id is left
// untouched, since the stream side effect and an explicit save may race.
func (r *chatRepository) CreateSession(session *models.ChatSession) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(session).Error
}

func (r *chatRepository) GetSession(id string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.Preload("Repository").Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSummariesByUser returns the newest sessions of a user with their repository url.
func (r *chatRepository) ListSummariesByUser(userID uint, limit int) ([]ChatSummary, error) {
	summaries := make([]ChatSummary, 0, limit)
	err := r.db.Table("chat_sessions").
		Select("chat_sessions.id AS id, chat_sessions.title AS title, repositories.url AS repository, chat_sessions.created_at AS created_at").
		Joins("INNER JOIN repositories ON repositories.id = chat_sessions.repository_id").
		Where("chat_sessions.user_id = ?", userID).
		Order("chat_sessions.created_at DESC").
		Limit(limit).
		Scan(&summaries).Error
	return summaries, err
}

// AppendMessages stores the exchange of a session in one transaction. The
// session row is created, under its id when one is set, if it does not exist
// yet. Clients resend the whole conversation, so messages already stored for
// the session are skipped by position. It returns how many messages were
// inserted.
func (r *chatRepository) AppendMessages(session *models.ChatSession, messages []models.Message) (int, error) {
	for _, m := range messages {
		if !models.IsValidMessageRole(m.Role) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMessageRole, m.Role)
		}
	}

	inserted := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		owner, err := sessionOwner(tx, session.ID)
		if err != nil {
			return err
		}
		if owner == "" {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(session).Error; err != nil {
				return err
			}
			if owner, err = sessionOwner(tx, session.ID); err != nil {
				return err
			}
		}
		if owner != session.IdentityKey {
			return ErrSessionNotOwned
		}

		var existing int64
		if err := tx.Model(&models.Message{}).Where("chat_id = ?", session.ID).Count(&existing).Error; err != nil {
			return err
		}
		if int(existing) >= len(messages) {
			return nil
		}

		now := time.Now()
		batch := make([]models.Message, 0, len(messages)-int(existing))
		for i, m := range messages[existing:] {
			batch = append(batch, models.Message{
				ChatID:    session.ID,
				Role:      m.Role,
				Content:   m.Content,
				Seq:       int(existing) + i,
				CreatedAt: now,
			})
		}
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}
		inserted = len(batch)
		return nil
	})
	return inserted, err
}

func sessionOwner(tx *gorm.DB, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	var owners []string
	if err := tx.Model(&models.ChatSession{}).Where("id = ?", id).Pluck("identity_key", &owners).Error; err != nil {
		return "", err
	}
	if len(owners) == 0 {
		return "", nil
	}
	return owners[0], nil
}

// ListMessages returns the messages of a chat in creation order.
func (r *chatRepository) ListMessages(chatID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("chat_id = ?", chatID).Order("seq ASC").Order("created_at ASC").Find(&messages).Error
	return messages, err
}
