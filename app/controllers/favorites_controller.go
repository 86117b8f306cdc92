package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/makkara/makkara/app/models"
	"github.com/makkara/makkara/app/repository"
	"github.com/makkara/makkara/internal/pkg/repocontext"
	"github.com/makkara/makkara/internal/pkg/usercontext"
)

type addFavoritePayload struct {
	RepoURL string `json:"repoUrl" validate:"required,max=255"`
}

// HandleListFavorites returns the caller's saved repositories, newest first.
func HandleListFavorites(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	favs, err := repository.GetGlobalRepositories().Favorite.ListByUser(userCtx.UserID)
	if err != nil {
		fiberlog.Errorf("listing favorites for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load favorites")
	}
	return c.JSON(favs)
}

// HandleAddFavorite saves a repository. Saving the same url twice returns the
// existing row.
func HandleAddFavorite(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var payload addFavoritePayload
	if err := c.BodyParser(&payload); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if err := validate.Struct(&payload); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "repoUrl is required")
	}
	slug, err := repocontext.ParseRepoURL(payload.RepoURL)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid GitHub repository URL")
	}

	fav := &models.FavoriteRepo{
		UserID:  userCtx.UserID,
		RepoURL: models.GitHubRepositoryURL(slug.Owner, slug.Name),
		Owner:   slug.Owner,
		Name:    slug.Name,
	}
	created, err := repository.GetGlobalRepositories().Favorite.Add(fav)
	if err != nil {
		fiberlog.Errorf("adding favorite %s for user %d: %v", fav.RepoURL, userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save favorite")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"favorite":      fav,
		"alreadyExists": !created,
	})
}

// HandleDeleteFavorite removes one of the caller's saved repositories.
func HandleDeleteFavorite(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid favorite id")
	}

	repo := repository.GetGlobalRepositories().Favorite
	fav, err := repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Favorite not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load favorite")
	}
	if fav.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Not your favorite")
	}
	if err := repo.Delete(fav.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete favorite")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
