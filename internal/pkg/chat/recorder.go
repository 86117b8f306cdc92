package chat

import (
	"fmt"

	"github.com/makkara/makkara/app/models"
	"github.com/makkara/makkara/app/repository"
)

// StoreRecorder persists turn bookkeeping through the repository layer.
type StoreRecorder struct {
	repos *repository.Repositories
}

func NewStoreRecorder(repos *repository.Repositories) *StoreRecorder {
	return &StoreRecorder{repos: repos}
}

// OwnsSession reports whether chatID exists and was started by identityKey.
func (r *StoreRecorder) OwnsSession(chatID, identityKey string) bool {
	session, err := r.repos.Chat.GetSession(chatID)
	if err != nil {
		return false
	}
	return session.IdentityKey == identityKey
}

// Record refreshes the repository row and creates the chat session unless an
// existing one is being continued.
func (r *StoreRecorder) Record(rec Record) error {
	repo := &models.Repository{
		URL:         models.GitHubRepositoryURL(rec.Metadata.Owner, rec.Metadata.Name),
		Owner:       rec.Metadata.Owner,
		Name:        rec.Metadata.Name,
		Description: rec.Metadata.Description,
		Language:    rec.Metadata.Language,
		Stars:       rec.Metadata.Stars,
		Forks:       rec.Metadata.Forks,
	}
	if err := r.repos.RepoMetadata.Upsert(repo); err != nil {
		return fmt.Errorf("upsert repository %s: %w", repo.URL, err)
	}
	if rec.Reuse {
		return nil
	}

	var modelID *string
	if rec.Model.Name != "" {
		candidate := rec.Model.Row()
		row, err := r.repos.AIModel.FindOrCreate(&candidate)
		if err != nil {
			return fmt.Errorf("resolve model %s: %w", rec.Model.Name, err)
		}
		modelID = &row.ID
	}

	session := &models.ChatSession{
		ID:           rec.ChatID,
		IdentityKey:  rec.IdentityKey,
		UserID:       rec.UserID,
		Title:        rec.Title,
		ModelID:      modelID,
		RepositoryID: repo.ID,
	}
	if err := r.repos.Chat.CreateSession(session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}
