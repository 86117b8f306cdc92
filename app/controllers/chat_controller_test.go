package controllers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/makkara/makkara/app/models"
	"github.com/makkara/makkara/app/repository"
	"github.com/makkara/makkara/internal/pkg/billing"
	"github.com/makkara/makkara/internal/pkg/chat"
	"github.com/makkara/makkara/internal/pkg/entitlements"
	"github.com/makkara/makkara/internal/pkg/llm"
	"github.com/makkara/makkara/internal/pkg/quota"
	"github.com/makkara/makkara/internal/pkg/repocontext"
	"github.com/makkara/makkara/internal/pkg/usercontext"
)

type staticContexts struct {
	err error
}

func (s staticContexts) Build(_ context.Context, slug repocontext.Slug) (*repocontext.Context, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &repocontext.Context{
		Metadata: repocontext.Metadata{Owner: slug.Owner, Name: slug.Name, URL: "https://github.com/" + slug.String()},
		Files:    []repocontext.File{{Path: "main.go", Content: "package main"}},
	}, nil
}

type echoProvider struct{}

func (echoProvider) Kind() llm.ProviderKind { return llm.ProviderGoogle }

func (echoProvider) Stream(_ context.Context, _ string, _ []llm.Message, onDelta llm.DeltaFunc) error {
	for _, d := range []string{"It is ", "a CLI."} {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return nil
}

func newChatController(t *testing.T, db *gorm.DB, contexts chat.ContextBuilder) (*ChatController, *chat.Gateway) {
	t.Helper()
	catalog, err := llm.DefaultCatalog()
	require.NoError(t, err)
	require.NoError(t, llm.SeedCatalog(db, catalog))
	registry, err := llm.NewRegistry(catalog, []llm.Provider{echoProvider{}}, "")
	require.NoError(t, err)

	ledger := quota.NewLedger(db, billing.NewServiceFromDB(db), "test-secret")
	gateway := chat.NewGateway(ledger, contexts, registry, chat.NewStoreRecorder(repository.NewRepositories(db)))
	return NewChatController(gateway, ledger), gateway
}

func chatBody(repo string) map[string]interface{} {
	return map[string]interface{}{
		"messages":   []map[string]string{{"role": "user", "content": "What is this?"}},
		"repository": repo,
	}
}

func TestHandleChatStreamsAndRecordsSession(t *testing.T) {
	db := newTestDB(t)
	cc, gateway := newChatController(t, db, staticContexts{})
	app := newTestApp(usercontext.UserContext{})
	app.Post("/api/chat", cc.HandleChat)

	resp, err := app.Test(jsonRequest("POST", "/api/chat", chatBody("octocat/hello-world")), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	chatID := resp.Header.Get("X-Chat-Id")
	require.NotEmpty(t, chatID)

	body := readBody(t, resp)
	assert.Equal(t, "0:\"It is \"\n0:\"a CLI.\"\nd:{\"finishReason\":\"stop\"}\n", body)

	gateway.Wait()
	var session models.ChatSession
	require.NoError(t, db.Where("id = ?", chatID).First(&session).Error)
	assert.Equal(t, "What is this?", session.Title)
	assert.Nil(t, session.UserID)
}

func TestHandleChatAnonymousLimit(t *testing.T) {
	db := newTestDB(t)
	cc, gateway := newChatController(t, db, staticContexts{})
	app := newTestApp(usercontext.UserContext{})
	app.Post("/api/chat", cc.HandleChat)

	resp, err := app.Test(jsonRequest("POST", "/api/chat", chatBody("octocat/hello-world")), -1)
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(jsonRequest("POST", "/api/chat", chatBody("octocat/hello-world")), -1)
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
	var denial map[string]interface{}
	decodeBody(t, resp, &denial)
	assert.Contains(t, denial["error"], "sign in")
	assert.EqualValues(t, 0, denial["remaining"])
	assert.EqualValues(t, 1, denial["limit"])
	assert.Equal(t, false, denial["isAuthenticated"])
	gateway.Wait()
}

func TestHandleChatBadRepositoryDoesNotConsumeQuota(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "octo@example.com")
	cc, _ := newChatController(t, db, staticContexts{})
	app := newTestApp(loggedIn(user))
	app.Post("/api/chat", cc.HandleChat)
	app.Get("/api/quota", cc.HandleQuotaStatus)

	resp, err := app.Test(jsonRequest("POST", "/api/chat", chatBody("not a repo")), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "owner/repo")

	resp, err = app.Test(jsonRequest("GET", "/api/quota", nil), -1)
	require.NoError(t, err)
	var status quota.Decision
	decodeBody(t, resp, &status)
	assert.Equal(t, 10, status.Remaining)
	assert.True(t, status.IsAuthenticated)
	assert.Equal(t, entitlements.PlanFree, status.Plan)
}

func TestHandleChatContextFailure(t *testing.T) {
	db := newTestDB(t)
	cc, _ := newChatController(t, db, staticContexts{err: repocontext.ErrRepositoryNotFound})
	app := newTestApp(usercontext.UserContext{})
	app.Post("/api/chat", cc.HandleChat)

	resp, err := app.Test(jsonRequest("POST", "/api/chat", chatBody("octocat/missing")), -1)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "Internal Server Error", readBody(t, resp))
}

func TestHandleChatRejectsMalformedBody(t *testing.T) {
	db := newTestDB(t)
	cc, _ := newChatController(t, db, staticContexts{})
	app := newTestApp(usercontext.UserContext{})
	app.Post("/api/chat", cc.HandleChat)

	resp, err := app.Test(jsonRequest("POST", "/api/chat", map[string]interface{}{"repository": "octocat/hello-world"}), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
