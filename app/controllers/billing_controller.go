package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/makkara/makkara/internal/pkg/billing"
	"github.com/makkara/makkara/internal/pkg/usercontext"
)

// BillingController connects users to Stripe and applies Stripe's webhooks.
type BillingController struct {
	service       *billing.Service
	gateway       billing.Gateway
	webhookSecret string
	publicURL     string
}

func NewBillingController(service *billing.Service, gateway billing.Gateway, webhookSecret, publicURL string) *BillingController {
	return &BillingController{
		service:       service,
		gateway:       gateway,
		webhookSecret: webhookSecret,
		publicURL:     strings.TrimRight(publicURL, "/"),
	}
}

// HandleStripeWebhook verifies and applies one Stripe delivery.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	duplicate, err := bc.service.HandleWebhook(c.UserContext(), payload, c.Get("Stripe-Signature"), bc.webhookSecret)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			fiberlog.Warnf("[Billing] rejected webhook: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
		}
		fiberlog.Errorf("[Billing] webhook processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}
	return c.JSON(fiber.Map{"received": true, "duplicate": duplicate})
}

// HandleCreateCheckoutSession starts a subscription checkout for the caller.
func (bc *BillingController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Please sign in to subscribe")
	}

	if _, err := bc.service.EnsureSubscription(c.UserContext(), userCtx.UserID); err != nil {
		fiberlog.Errorf("[Billing] ensuring subscription row for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to start checkout")
	}

	url, err := bc.gateway.CreateCheckoutSession(billing.CheckoutInput{
		UserID:     userCtx.UserID,
		Email:      userCtx.Email,
		SuccessURL: bc.publicURL + "/?checkout=success",
		CancelURL:  bc.publicURL + "/?checkout=cancelled",
	})
	if err != nil {
		fiberlog.Errorf("[Billing] creating checkout session for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to start checkout")
	}
	return c.Redirect(url, fiber.StatusSeeOther)
}

// HandleBillingPortal sends a subscriber to Stripe's self-service portal.
func (bc *BillingController) HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	sub, err := bc.service.GetSubscription(userCtx.UserID)
	if err != nil {
		fiberlog.Errorf("[Billing] loading subscription for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to open billing portal")
	}
	customerID := sub.CustomerID()
	if customerID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "No Stripe customer found")
	}

	url, err := bc.gateway.CreatePortalSession(customerID, bc.publicURL+"/")
	if err != nil {
		fiberlog.Errorf("[Billing] creating portal session for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to open billing portal")
	}
	return c.Redirect(url, fiber.StatusSeeOther)
}
