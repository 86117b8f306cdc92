package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/makkara/makkara/app/models"
	"github.com/makkara/makkara/internal/pkg/llm"
	"github.com/makkara/makkara/internal/pkg/prompt"
	"github.com/makkara/makkara/internal/pkg/quota"
	"github.com/makkara/makkara/internal/pkg/repocontext"
)

// Admitter is the quota ledger as seen by the gateway.
type Admitter interface {
	Admit(ctx context.Context, c quota.Caller) (quota.Decision, error)
	IdentityKey(c quota.Caller) string
}

// ContextBuilder resolves a repository into prompt context.
type ContextBuilder interface {
	Build(ctx context.Context, slug repocontext.Slug) (*repocontext.Context, error)
}

// ModelResolver maps a requested model name onto a streaming binding.
type ModelResolver interface {
	Resolve(name string) (llm.Binding, bool)
}

// Recorder persists the bookkeeping of an admitted turn.
type Recorder interface {
	OwnsSession(chatID, identityKey string) bool
	Record(rec Record) error
}

// Record is what the side-effect goroutine persists for one turn.
type Record struct {
	ChatID      string
	Reuse       bool
	IdentityKey string
	UserID      *uint
	Title       string
	Model       llm.Descriptor
	Metadata    repocontext.Metadata
}

// Gateway runs one chat turn: admission, context, prompt, model stream.
type Gateway struct {
	quota    Admitter
	contexts ContextBuilder
	models   ModelResolver
	recorder Recorder

	sideEffects sync.WaitGroup
}

func NewGateway(q Admitter, contexts ContextBuilder, resolver ModelResolver, recorder Recorder) *Gateway {
	return &Gateway{
		quota:    q,
		contexts: contexts,
		models:   resolver,
		recorder: recorder,
	}
}

// Turn is an admitted, fully prepared request ready to stream.
type Turn struct {
	ChatID   string
	Decision quota.Decision
	Model    llm.Binding
	Messages []llm.Message
}

// Prepare validates the request and runs every step that can still reject it.
// Errors are ErrInvalidRequest, ErrInvalidRepository, *RejectedError,
// quota.ErrStore or ErrContextUnavailable.
func (g *Gateway) Prepare(ctx context.Context, caller quota.Caller, req Request) (*Turn, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	slug, err := req.slug()
	if err != nil {
		return nil, err
	}

	decision, err := g.quota.Admit(ctx, caller)
	if err != nil {
		fiberlog.Errorf("[Chat] quota check failed for %s: %v", slug, err)
		return nil, err
	}
	if !decision.Allowed {
		return nil, &RejectedError{Decision: decision}
	}

	repoCtx, err := g.contexts.Build(ctx, slug)
	if err != nil {
		if errors.Is(err, repocontext.ErrRepositoryNotFound) {
			fiberlog.Warnf("[Chat] repository %s not found", slug)
		} else {
			fiberlog.Errorf("[Chat] building context for %s: %v", slug, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrContextUnavailable, err)
	}

	binding, _ := g.models.Resolve(req.Model)
	system := prompt.Assemble(prompt.Input{
		Harshness: prompt.ClampHarshness(req.Harshness),
		Metadata:  repoCtx.Metadata,
		Files:     repoCtx.Files,
		MaxChars:  prompt.BudgetFor(binding.Descriptor.MaxTokens),
	})

	identity := g.quota.IdentityKey(caller)
	chatID, reuse := g.sessionFor(req.ChatID, identity)
	rec := Record{
		ChatID:      chatID,
		Reuse:       reuse,
		IdentityKey: identity,
		Title:       models.ChatTitle(req.firstUserMessage()),
		Model:       binding.Descriptor,
		Metadata:    repoCtx.Metadata,
	}
	if caller.IsAuthenticated() {
		uid := caller.UserID
		rec.UserID = &uid
	}
	g.record(rec)

	return &Turn{
		ChatID:   chatID,
		Decision: decision,
		Model:    binding,
		Messages: prompt.ComposeFirstMessage(system, req.Messages),
	}, nil
}

func (g *Gateway) sessionFor(requested, identity string) (string, bool) {
	if requested != "" && g.recorder != nil && g.recorder.OwnsSession(requested, identity) {
		return requested, true
	}
	return uuid.New().String(), false
}

// record persists session bookkeeping in the background; failures are logged
// and never affect the response.
func (g *Gateway) record(rec Record) {
	if g.recorder == nil {
		return
	}
	g.sideEffects.Add(1)
	go func() {
		defer g.sideEffects.Done()
		if err := g.recorder.Record(rec); err != nil {
			fiberlog.Warnf("[Chat] recording session %s failed: %v", rec.ChatID, err)
		}
	}()
}

// Wait blocks until every pending side effect has finished.
func (g *Gateway) Wait() {
	g.sideEffects.Wait()
}

// Stream relays the model output to w. Generation stops when ctx is done or
// a write to the client fails. Upstream failures end the stream with an
// error frame instead of an error return.
func (t *Turn) Stream(ctx context.Context, w *bufio.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := frameWriter{w: w}
	var clientErr error
	started := time.Now()
	err := t.Model.Provider.Stream(ctx, t.Model.Descriptor.Version, t.Messages, func(delta string) error {
		if err := frames.delta(delta); err != nil {
			clientErr = err
			cancel()
			return err
		}
		return nil
	})
	if clientErr != nil {
		fiberlog.Infof("[Chat] client went away after %s: %v", time.Since(started).Round(time.Millisecond), clientErr)
		return clientErr
	}
	if err != nil {
		fiberlog.Errorf("[Chat] model %s failed: %v", t.Model.Descriptor.Name, err)
		return frames.fail()
	}
	return frames.finish()
}
