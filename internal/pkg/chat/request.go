package chat

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/makkara/makkara/internal/pkg/llm"
	"github.com/makkara/makkara/internal/pkg/quota"
	"github.com/makkara/makkara/internal/pkg/repocontext"
)

var (
	ErrInvalidRequest    = errors.New("invalid chat request")
	ErrInvalidRepository = errors.New("invalid repository")
	// ErrContextUnavailable covers every failure to build repository context,
	// whether the repository is missing or the upstream fetch failed.
	ErrContextUnavailable = errors.New("repository context unavailable")
)

// Request is the body of POST /api/chat.
type Request struct {
	Messages   []llm.Message `json:"messages" validate:"required,min=1,dive"`
	Repository string        `json:"repository"`
	Model      string        `json:"model" validate:"omitempty,max=100"`
	Harshness  *int          `json:"harshness"`
	ChatID     string        `json:"chatId" validate:"omitempty,uuid"`
}

// RejectedError is returned when the quota ledger denies admission.
type RejectedError struct {
	Decision quota.Decision
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("message limit reached (limit %d)", e.Decision.Limit)
}

// Message is the user-facing explanation of the rejection.
func (e *RejectedError) Message() string {
	if e.Decision.IsAuthenticated {
		return "You have reached your message limit. Upgrade to an unlimited plan to keep chatting."
	}
	return "You have reached the message limit for anonymous users. Please sign in to continue chatting."
}

var validate = validator.New()

func (r *Request) validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// slug accepts "owner/name" and falls back to a GitHub URL.
func (r *Request) slug() (repocontext.Slug, error) {
	if r.Repository == "" {
		return repocontext.Slug{}, fmt.Errorf("%w: missing", ErrInvalidRepository)
	}
	s, err := repocontext.ParseSlug(r.Repository)
	if err == nil {
		return s, nil
	}
	if s, urlErr := repocontext.ParseRepoURL(r.Repository); urlErr == nil {
		return s, nil
	}
	return repocontext.Slug{}, fmt.Errorf("%w: %v", ErrInvalidRepository, err)
}

// firstUserMessage seeds the session title.
func (r *Request) firstUserMessage() string {
	for _, m := range r.Messages {
		if m.Role == llm.RoleUser {
			return m.Content
		}
	}
	return ""
}
