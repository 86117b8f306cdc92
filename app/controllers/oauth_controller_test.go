package controllers

import (
	"testing"
	"time"

	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityFromGoth(t *testing.T) {
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id := identityFromGoth(goth.User{
		Provider:    "github",
		UserID:      "583231",
		NickName:    "octocat",
		Email:       "octo@example.com",
		AvatarURL:   "https://avatars.example/u/583231",
		AccessToken: "gho_token",
		ExpiresAt:   expires,
	})
	assert.Equal(t, "github", id.Provider)
	assert.Equal(t, "583231", id.ProviderUserID)
	assert.Equal(t, "octocat", id.Login)
	assert.Equal(t, "octocat", id.Name)
	require.NotNil(t, id.ExpiresAt)
	assert.True(t, expires.Equal(*id.ExpiresAt))

	anonymous := identityFromGoth(goth.User{Provider: "github", UserID: "1"})
	assert.Equal(t, "User", anonymous.Name)
	assert.Nil(t, anonymous.ExpiresAt)
}
