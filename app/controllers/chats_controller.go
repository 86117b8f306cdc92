package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/makkara/makkara/app/models"
	"github.com/makkara/makkara/app/repository"
	"github.com/makkara/makkara/internal/pkg/repocontext"
	"github.com/makkara/makkara/internal/pkg/usercontext"
)

const chatHistoryLimit = 10

var validate = validator.New()

type chatMessagePayload struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

type saveChatPayload struct {
	Repository string               `json:"repository" validate:"required,max=255"`
	Messages   []chatMessagePayload `json:"messages" validate:"required,min=1,dive"`
	ChatID     string               `json:"chatId" validate:"omitempty,uuid"`
}

// parseRepository accepts "owner/name" or a GitHub URL.
func parseRepository(raw string) (repocontext.Slug, error) {
	if slug, err := repocontext.ParseSlug(raw); err == nil {
		return slug, nil
	}
	return repocontext.ParseRepoURL(raw)
}

// HandleSaveChat persists a finished exchange for the signed-in user.
func HandleSaveChat(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	var payload saveChatPayload
	if err := c.BodyParser(&payload); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if err := validate.Struct(&payload); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid chat payload")
	}
	slug, err := parseRepository(payload.Repository)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid repository")
	}

	repos := repository.GetGlobalRepositories()
	session, claimID, err := ownedSession(repos.Chat, payload.ChatID, userCtx.UserID)
	if err != nil {
		fiberlog.Errorf("[Chat] loading session %s: %v", payload.ChatID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save chat")
	}
	if session == nil {
		repo := &models.Repository{
			URL:   models.GitHubRepositoryURL(slug.Owner, slug.Name),
			Owner: slug.Owner,
			Name:  slug.Name,
		}
		if existing, err := repos.RepoMetadata.GetByURL(repo.URL); err == nil {
			repo = existing
		} else if err := repos.RepoMetadata.Upsert(repo); err != nil {
			fiberlog.Errorf("[Chat] upserting repository %s: %v", repo.URL, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save chat")
		}
		uid := userCtx.UserID
		session = &models.ChatSession{
			ID:           claimID,
			IdentityKey:  models.UserIdentityKey(uid),
			UserID:       &uid,
			RepositoryID: repo.ID,
		}
	}

	messages := make([]models.Message, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		if session.Title == "" && m.Role == models.MessageRoleUser {
			session.Title = models.ChatTitle(m.Content)
		}
		messages = append(messages, models.Message{Role: m.Role, Content: m.Content})
	}

	inserted, err := repos.Chat.AppendMessages(session, messages)
	if errors.Is(err, repository.ErrSessionNotOwned) {
		return jsonError(c, fiber.StatusConflict, "conflict", "Chat belongs to another session")
	}
	if err != nil {
		fiberlog.Errorf("[Chat] saving messages for %s: %v", session.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save chat")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       session.ID,
		"inserted": inserted,
	})
}

// ownedSession returns the session when chatID names one of the user's
// sessions. When no row exists yet, the id is returned for claiming: the
// streaming side effect may not have committed the session it announced.
func ownedSession(chats repository.ChatRepository, chatID string, userID uint) (*models.ChatSession, string, error) {
	if chatID == "" {
		return nil, "", nil
	}
	session, err := chats.GetSession(chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, chatID, nil
	}
	if err != nil {
		return nil, "", err
	}
	if session.IdentityKey != models.UserIdentityKey(userID) {
		return nil, "", nil
	}
	return session, "", nil
}

// HandleListChats returns the newest sessions of the caller. Anonymous
// callers get an empty list.
func HandleListChats(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.JSON([]repository.ChatSummary{})
	}

	summaries, err := repository.GetGlobalRepositories().Chat.ListSummariesByUser(userCtx.UserID, chatHistoryLimit)
	if err != nil {
		fiberlog.Errorf("[Chat] listing chats for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load chats")
	}
	return c.JSON(summaries)
}

// HandleChatMessages returns the messages of one of the caller's sessions.
func HandleChatMessages(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	repos := repository.GetGlobalRepositories()
	session, err := repos.Chat.GetSession(c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Chat not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load chat")
	}
	if session.IdentityKey != models.UserIdentityKey(userCtx.UserID) {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Chat not found")
	}

	messages, err := repos.Chat.ListMessages(session.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load messages")
	}
	return c.JSON(fiber.Map{
		"id":         session.ID,
		"title":      session.Title,
		"repository": session.Repository,
		"messages":   messages,
	})
}
