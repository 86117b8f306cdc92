package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/makkara/makkara/app/models"
	"github.com/makkara/makkara/app/repository"
	"github.com/makkara/makkara/internal/pkg/database"
	"github.com/makkara/makkara/internal/pkg/middleware"
	"github.com/makkara/makkara/internal/pkg/usercontext"
)

// newTestDB points the global repository factory at a fresh database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	repository.SetGlobalFactory(repository.NewFactory(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "Octo Cat", Email: email, Status: models.STATUS_ACTIVE}
	require.NoError(t, db.Create(u).Error)
	return u
}

func loggedIn(u *models.User) usercontext.UserContext {
	return usercontext.UserContext{UserID: u.ID, Username: u.Name, Email: u.Email, IsLoggedIn: true}
}

// newTestApp returns an app whose requests all carry uc.
func newTestApp(uc usercontext.UserContext) *fiber.App {
	app := fiber.New()
	app.Use(middleware.InjectUserContext(uc))
	return app
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = strings.NewReader(string(raw))
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}
