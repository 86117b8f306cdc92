package billing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"

	"github.com/makkara/makkara/app/models"
	"github.com/makkara/makkara/internal/pkg/database"
)

const testSecret = "whsec_test"

func newTestService(t *testing.T) (*Service, *gorm.DB, *models.User) {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	user := &models.User{Name: "Octo Cat", Email: "octo@example.com", Status: models.STATUS_ACTIVE}
	require.NoError(t, db.Create(user).Error)
	return NewServiceFromDB(db), db, user
}

func eventPayload(t *testing.T, id, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"api_version": "2024-06-20",
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return raw
}

func sign(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	}).Header
}

func subscriptionObject(userID string, status string) map[string]interface{} {
	return map[string]interface{}{
		"id":       "sub_123",
		"object":   "subscription",
		"status":   status,
		"customer": "cus_123",
		"metadata": map[string]string{"user_id": userID},
	}
}

func TestHandleWebhookActivatesSubscription(t *testing.T) {
	svc, _, user := newTestService(t)
	payload := eventPayload(t, "evt_1", EventSubscriptionCreated, subscriptionObject("1", "active"))

	dup, err := svc.HandleWebhook(context.Background(), payload, sign(payload), testSecret)
	require.NoError(t, err)
	assert.False(t, dup)

	sub, err := svc.GetSubscription(user.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.True(t, sub.IsActive)
	assert.Equal(t, "cus_123", sub.CustomerID())
	require.NotNil(t, sub.StripeSubscriptionID)
	assert.Equal(t, "sub_123", *sub.StripeSubscriptionID)

	active, err := svc.HasActiveSubscription(user.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestHandleWebhookUpdateToInactive(t *testing.T) {
	svc, _, user := newTestService(t)
	ctx := context.Background()

	p1 := eventPayload(t, "evt_1", EventSubscriptionCreated, subscriptionObject("1", "active"))
	_, err := svc.HandleWebhook(ctx, p1, sign(p1), testSecret)
	require.NoError(t, err)

	p2 := eventPayload(t, "evt_2", EventSubscriptionUpdated, subscriptionObject("1", "past_due"))
	_, err = svc.HandleWebhook(ctx, p2, sign(p2), testSecret)
	require.NoError(t, err)

	active, err := svc.HasActiveSubscription(user.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestHandleWebhookDeleteRemovesRow(t *testing.T) {
	svc, db, user := newTestService(t)
	ctx := context.Background()

	p1 := eventPayload(t, "evt_1", EventSubscriptionCreated, subscriptionObject("1", "active"))
	_, err := svc.HandleWebhook(ctx, p1, sign(p1), testSecret)
	require.NoError(t, err)

	p2 := eventPayload(t, "evt_2", EventSubscriptionDeleted, subscriptionObject("1", "canceled"))
	_, err = svc.HandleWebhook(ctx, p2, sign(p2), testSecret)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHandleWebhookCheckoutCompleted(t *testing.T) {
	svc, _, user := newTestService(t)
	_, err := svc.EnsureSubscription(context.Background(), user.ID)
	require.NoError(t, err)

	payload := eventPayload(t, "evt_cs", EventCheckoutCompleted, map[string]interface{}{
		"id":           "cs_1",
		"object":       "checkout.session",
		"customer":     "cus_9",
		"subscription": "sub_9",
		"metadata":     map[string]string{"userId": "1"},
	})
	_, err = svc.HandleWebhook(context.Background(), payload, sign(payload), testSecret)
	require.NoError(t, err)

	sub, err := svc.GetSubscription(user.ID)
	require.NoError(t, err)
	assert.True(t, sub.IsActive)
	assert.Equal(t, "cus_9", sub.CustomerID())
}

func TestHandleWebhookInvalidSignatureNeverWrites(t *testing.T) {
	svc, db, _ := newTestService(t)
	payload := eventPayload(t, "evt_bad", EventSubscriptionCreated, subscriptionObject("1", "active"))

	for _, header := range []string{"", "t=1,v1=deadbeef", sign([]byte(`{"id":"other"}`))} {
		_, err := svc.HandleWebhook(context.Background(), payload, header, testSecret)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	}
	_, err := svc.HandleWebhook(context.Background(), payload, sign(payload), "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	var subs, events int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&subs).Error)
	require.NoError(t, db.Model(&models.BillingWebhookEvent{}).Count(&events).Error)
	assert.Zero(t, subs)
	assert.Zero(t, events)
}

func TestHandleWebhookDuplicateDelivery(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	payload := eventPayload(t, "evt_1", EventSubscriptionCreated, subscriptionObject("1", "active"))

	dup, err := svc.HandleWebhook(ctx, payload, sign(payload), testSecret)
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = svc.HandleWebhook(ctx, payload, sign(payload), testSecret)
	require.NoError(t, err)
	assert.True(t, dup)

	var events int64
	require.NoError(t, db.Model(&models.BillingWebhookEvent{}).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestHandleWebhookUnknownUserIsIgnored(t *testing.T) {
	svc, db, _ := newTestService(t)
	payload := eventPayload(t, "evt_x", EventSubscriptionCreated, subscriptionObject("999", "active"))

	_, err := svc.HandleWebhook(context.Background(), payload, sign(payload), testSecret)
	require.NoError(t, err)

	var subs int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&subs).Error)
	assert.Zero(t, subs)
}

func TestHandleWebhookUnhandledTypeAcknowledged(t *testing.T) {
	svc, db, _ := newTestService(t)
	payload := eventPayload(t, "evt_i", "invoice.paid", map[string]interface{}{"id": "in_1", "object": "invoice"})

	_, err := svc.HandleWebhook(context.Background(), payload, sign(payload), testSecret)
	require.NoError(t, err)

	var stored models.BillingWebhookEvent
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, "invoice.paid", stored.EventType)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, stored.ProcessingError)
}

func TestEnsureSubscriptionIsIdempotent(t *testing.T) {
	svc, db, user := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnsureSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, first.IsActive)

	second, err := svc.EnsureSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, err = svc.EnsureSubscription(ctx, 0)
	assert.Error(t, err)
}

func TestIsEntitlingStatus(t *testing.T) {
	assert.True(t, isEntitlingStatus("active"))
	assert.True(t, isEntitlingStatus(" ACTIVE "))
	for _, status := range []string{"trialing", "past_due", "canceled", "incomplete", "paused", ""} {
		assert.False(t, isEntitlingStatus(status), status)
	}
}

func TestParseUserID(t *testing.T) {
	id, ok := parseUserID("42")
	assert.True(t, ok)
	assert.EqualValues(t, 42, id)

	for _, raw := range []string{"", "0", "-1", "abc"} {
		_, ok := parseUserID(raw)
		assert.False(t, ok, raw)
	}
}
