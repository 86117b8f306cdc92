package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/makkara/makkara/app/repository"
	"github.com/makkara/makkara/internal/pkg/billing"
	"github.com/makkara/makkara/internal/pkg/session"
	"github.com/makkara/makkara/internal/pkg/usercontext"
)

// HandleAccountData returns the profile and usage counts of the signed-in user.
func HandleAccountData(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Not authenticated")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	stats, err := repo.GetStatsByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":        account.ID,
			"name":      account.Name,
			"email":     account.Email,
			"avatarUrl": account.AvatarURL,
			"createdAt": account.CreatedAt,
		},
		"favoriteCount": stats.FavoriteCount,
		"chatCount":     stats.ChatCount,
	})
}

// AccountController serves account endpoints that need billing state.
type AccountController struct {
	billing *billing.Service
}

func NewAccountController(service *billing.Service) *AccountController {
	return &AccountController{billing: service}
}

// HandleSubscription returns the caller's subscription row, or null.
func (ac *AccountController) HandleSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	sub, err := ac.billing.GetSubscription(userCtx.UserID)
	if err != nil {
		fiberlog.Errorf("[Billing] loading subscription for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}
	if sub == nil {
		return c.JSON(fiber.Map{"subscription": nil})
	}
	return c.JSON(fiber.Map{
		"subscription": fiber.Map{
			"isActive":         sub.IsActive,
			"stripeCustomerId": sub.CustomerID(),
		},
	})
}

// HandleDeleteAccount erases the user and everything they own, then ends the
// session.
func HandleDeleteAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if err := repository.GetGlobalFactory().GetUserRepository().DeleteCascade(userCtx.UserID); err != nil {
		fiberlog.Errorf("deleting account %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete account")
	}
	if err := session.Destroy(c); err != nil {
		fiberlog.Warnf("destroying session of deleted user %d: %v", userCtx.UserID, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
