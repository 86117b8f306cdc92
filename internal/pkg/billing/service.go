package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"

	"github.com/makkara/makkara/app/models"
)

const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventCheckoutCompleted   = "checkout.session.completed"

	// Metadata keys written at checkout and read back from webhook events.
	metadataSubscriptionUserID = "user_id"
	metadataCheckoutUserID     = "userId"
)

// Service keeps local Subscription rows in sync with Stripe.
type Service struct {
	repo Repository
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// HasActiveSubscription reports whether userID currently bypasses quotas.
func (s *Service) HasActiveSubscription(userID uint) (bool, error) {
	sub, err := s.GetSubscription(userID)
	if err != nil {
		return false, err
	}
	return sub != nil && sub.IsActive, nil
}

// GetSubscription returns the user's row, or nil when there is none.
func (s *Service) GetSubscription(userID uint) (*models.Subscription, error) {
	sub, err := s.repo.GetSubscriptionByUser(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return sub, err
}

// EnsureSubscription persists an inactive row for the user if absent.
func (s *Service) EnsureSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	_ = ctx
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	return s.repo.EnsureSubscription(userID)
}

// HandleWebhook verifies, records and applies one Stripe delivery. A
// redelivered event id is acknowledged without being applied again.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader, secret string) (bool, error) {
	event, err := VerifyStripeSignature(payload, signatureHeader, secret)
	if err != nil {
		return false, err
	}

	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
	})
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		fiberlog.Infof("[Billing] duplicate event %s ignored", event.ID)
		return true, nil
	}

	applyErr := s.ApplyEvent(ctx, event)
	if err := s.MarkWebhookProcessed(ctx, stored.ID, applyErr); err != nil {
		fiberlog.Warnf("[Billing] failed to mark event %s processed: %v", event.ID, err)
	}
	return false, applyErr
}

// ApplyEvent drives the Subscription state transition for a verified event.
func (s *Service) ApplyEvent(ctx context.Context, event stripe.Event) error {
	_ = ctx
	if event.Data == nil {
		return fmt.Errorf("event %s has no data", event.ID)
	}

	switch string(event.Type) {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		userID, ok := s.resolveUser(sub.Metadata[metadataSubscriptionUserID])
		if !ok {
			fiberlog.Warnf("[Billing] no known user_id in subscription %s metadata", sub.ID)
			return nil
		}
		state := SubscriptionState{
			UserID:         userID,
			IsActive:       isEntitlingStatus(string(sub.Status)),
			SubscriptionID: sub.ID,
		}
		if sub.Customer != nil {
			state.CustomerID = sub.Customer.ID
		}
		fiberlog.Infof("[Billing] subscription %s for user %d status=%s", sub.ID, userID, sub.Status)
		return s.repo.ApplySubscriptionState(state)

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		userID, ok := s.resolveUser(sub.Metadata[metadataSubscriptionUserID])
		if !ok {
			fiberlog.Warnf("[Billing] no known user_id in deleted subscription %s metadata", sub.ID)
			return nil
		}
		fiberlog.Infof("[Billing] subscription %s for user %d deleted", sub.ID, userID)
		return s.repo.DeleteSubscriptionByUser(userID)

	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		userID, ok := s.resolveUser(cs.Metadata[metadataCheckoutUserID])
		if !ok {
			fiberlog.Warnf("[Billing] no known userId in checkout session %s metadata", cs.ID)
			return nil
		}
		state := SubscriptionState{UserID: userID, IsActive: true}
		if cs.Customer != nil {
			state.CustomerID = cs.Customer.ID
		}
		if cs.Subscription != nil {
			state.SubscriptionID = cs.Subscription.ID
		}
		fiberlog.Infof("[Billing] checkout %s completed for user %d", cs.ID, userID)
		return s.repo.ApplySubscriptionState(state)

	default:
		fiberlog.Infof("[Billing] unhandled event type %s (%s)", event.Type, event.ID)
		return nil
	}
}

func (s *Service) resolveUser(raw string) (uint, bool) {
	userID, ok := parseUserID(raw)
	if !ok {
		return 0, false
	}
	exists, err := s.repo.UserExists(userID)
	if err != nil {
		fiberlog.Errorf("[Billing] user lookup for %d failed: %v", userID, err)
		return 0, false
	}
	return userID, exists
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	eventID := strings.TrimSpace(in.ProviderEventID)
	if provider == "" || eventID == "" {
		return false, nil, errors.New("provider and provider_event_id are required")
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
