// Package llm wraps the supported model providers behind one streaming
// interface and resolves caller-supplied model names once, at startup.
package llm

import (
	"context"
	"errors"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn sent to a model.
type Message struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// ProviderKind is the closed set of supported model vendors.
type ProviderKind string

const (
	ProviderGoogle ProviderKind = "google"
	ProviderOpenAI ProviderKind = "openai"
)

var (
	ErrUnknownModel    = errors.New("unknown model")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNoMessages      = errors.New("no messages to send")
)

// ParseProviderKind maps a catalog value onto the closed set.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch ProviderKind(s) {
	case ProviderGoogle, ProviderOpenAI:
		return ProviderKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// DeltaFunc receives each text fragment as it arrives. Returning an error
// stops the stream.
type DeltaFunc func(delta string) error

// Provider streams a completion for msgs from the named vendor model.
type Provider interface {
	Kind() ProviderKind
	Stream(ctx context.Context, model string, msgs []Message, onDelta DeltaFunc) error
}
