package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/makkara/makkara/internal/pkg/env"
)

func TestCallbackURL(t *testing.T) {
	env.Env = map[string]string{"PUBLIC_DOMAIN": "https://makkara.example/"}
	t.Cleanup(func() { env.Env = nil })
	assert.Equal(t, "https://makkara.example/auth/github/callback", CallbackURL("github"))

	env.Env = map[string]string{"APP_PORT": "8080"}
	assert.Equal(t, "http://localhost:8080/auth/github/callback", CallbackURL("github"))
}
