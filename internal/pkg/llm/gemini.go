package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider streams completions from Google's Generative Language API.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GeminiProvider, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Kind() ProviderKind { return ProviderGoogle }

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Stream(ctx context.Context, model string, msgs []Message, onDelta DeltaFunc) error {
	history, last, err := geminiTurns(msgs)
	if err != nil {
		return err
	}

	cs := p.client.GenerativeModel(model).StartChat()
	cs.History = history

	iter := cs.SendMessageStream(ctx, last...)
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}
		for _, text := range geminiText(resp) {
			if err := onDelta(text); err != nil {
				return err
			}
		}
	}
}

// geminiTurns splits msgs into chat history and the parts of the final turn.
// Gemini names the assistant role "model".
func geminiTurns(msgs []Message) ([]*genai.Content, []genai.Part, error) {
	if len(msgs) == 0 {
		return nil, nil, ErrNoMessages
	}
	history := make([]*genai.Content, 0, len(msgs)-1)
	for _, m := range msgs[:len(msgs)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return history, []genai.Part{genai.Text(msgs[len(msgs)-1].Content)}, nil
}

func geminiText(resp *genai.GenerateContentResponse) []string {
	var out []string
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok && t != "" {
				out = append(out, string(t))
			}
		}
	}
	return out
}
