package controllers

import (
	"bufio"
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/makkara/makkara/internal/pkg/chat"
	"github.com/makkara/makkara/internal/pkg/quota"
	"github.com/makkara/makkara/internal/pkg/usercontext"
)

// QuotaStatus is the read-only view of the ledger served by GET /api/quota.
type QuotaStatus interface {
	Status(ctx context.Context, c quota.Caller) (quota.Decision, error)
}

// ChatController streams repository-grounded answers.
type ChatController struct {
	gateway *chat.Gateway
	quota   QuotaStatus
}

func NewChatController(gateway *chat.Gateway, quota QuotaStatus) *ChatController {
	return &ChatController{gateway: gateway, quota: quota}
}

func callerOf(c *fiber.Ctx) quota.Caller {
	userCtx := usercontext.GetUserContext(c)
	caller := quota.Caller{IP: GetClientIP(c)}
	if userCtx.IsLoggedIn {
		caller.UserID = userCtx.UserID
	}
	return caller
}

// HandleChat answers POST /api/chat with a streamed model response.
func (cc *ChatController) HandleChat(c *fiber.Ctx) error {
	var req chat.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid request body")
	}

	turn, err := cc.gateway.Prepare(c.UserContext(), callerOf(c), req)
	if err != nil {
		return cc.handlePrepareError(c, err)
	}

	c.Set("X-Chat-Id", turn.ChatID)
	if !turn.Decision.Unlimited {
		c.Set("X-RateLimit-Limit", strconv.Itoa(turn.Decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(turn.Decision.Remaining))
	}
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")

	// The stream outlives the handler; it gets its own context, cancelled when
	// a write to the client fails.
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		if err := turn.Stream(context.Background(), w); err != nil {
			fiberlog.Debugf("[Chat] stream %s ended early: %v", turn.ChatID, err)
		}
	})
	return nil
}

func (cc *ChatController) handlePrepareError(c *fiber.Ctx, err error) error {
	var rejected *chat.RejectedError
	switch {
	case errors.Is(err, chat.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).SendString("Invalid request: messages are required")
	case errors.Is(err, chat.ErrInvalidRepository):
		return c.Status(fiber.StatusBadRequest).SendString("Invalid repository format. Expected owner/repo")
	case errors.As(err, &rejected):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":           rejected.Message(),
			"remaining":       rejected.Decision.Remaining,
			"limit":           rejected.Decision.Limit,
			"isAuthenticated": rejected.Decision.IsAuthenticated,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}
}

// HandleQuotaStatus reports the caller's remaining messages without
// consuming one.
func (cc *ChatController) HandleQuotaStatus(c *fiber.Ctx) error {
	decision, err := cc.quota.Status(c.UserContext(), callerOf(c))
	if err != nil {
		fiberlog.Errorf("[Quota] status lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load quota")
	}
	return c.JSON(decision)
}
