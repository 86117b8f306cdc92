package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/makkara/makkara/app/repository"
	"github.com/makkara/makkara/internal/pkg/session"
	"github.com/makkara/makkara/internal/pkg/usercontext"
)

// HandleOAuthCallback completes the provider flow and logs the user in
func HandleOAuthCallback(c *fiber.Ctx) error {
	// Complete OAuth with provider and obtain unified user
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		fiberlog.Warnf("oauth callback failed: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("OAuth failed")
	}

	appUser, err := repository.GetGlobalFactory().GetUserRepository().FindOrCreateByProvider(identityFromGoth(u))
	if err != nil {
		fiberlog.Errorf("linking %s user %s: %v", u.Provider, u.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Sign-in failed")
	}

	// Create app session
	if err := session.SetSessionValues(c, map[string]interface{}{
		usercontext.KeyUserID:   appUser.ID,
		usercontext.KeyUsername: appUser.Name,
		usercontext.KeyEmail:    appUser.Email,
	}); err != nil {
		fiberlog.Errorf("saving session for user %d: %v", appUser.ID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("session save failed")
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleLogout ends both the provider session and ours.
func HandleLogout(c *fiber.Ctx) error {
	if gothfiber.SessionStore != nil {
		if err := gothfiber.Logout(c); err != nil {
			fiberlog.Debugf("goth logout: %v", err)
		}
	}
	if err := session.Destroy(c); err != nil {
		fiberlog.Warnf("destroying session: %v", err)
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func identityFromGoth(u goth.User) repository.ProviderIdentity {
	var exp *time.Time
	if !u.ExpiresAt.IsZero() {
		t := u.ExpiresAt
		exp = &t
	}
	return repository.ProviderIdentity{
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		Login:          u.NickName,
		Email:          u.Email,
		Name:           firstNonEmpty(u.Name, u.NickName, "User"),
		AvatarURL:      u.AvatarURL,
		AccessToken:    u.AccessToken,
		ExpiresAt:      exp,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
