// Package quota admits or rejects chat requests against a persisted,
// per-identity message counter that resets after a fixed window.
package quota

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/makkara/makkara/app/models"
	"github.com/makkara/makkara/internal/pkg/entitlements"
)

// ErrStore wraps every storage failure. Callers must treat it as a hard
// failure of the request (fail closed).
var ErrStore = errors.New("quota store failure")

// Caller identifies who is asking for admission.
type Caller struct {
	UserID uint
	IP     string
}

func (c Caller) IsAuthenticated() bool {
	return c.UserID != 0
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed         bool              `json:"allowed"`
	Remaining       int               `json:"remaining"`
	Unlimited       bool              `json:"unlimited"`
	Limit           int               `json:"limit"`
	IsAuthenticated bool              `json:"isAuthenticated"`
	Plan            entitlements.Plan `json:"plan"`
}

// SubscriptionChecker reports whether a user currently has an active subscription.
type SubscriptionChecker interface {
	HasActiveSubscription(userID uint) (bool, error)
}

// Ledger is the persisted source of truth for message quotas.
type Ledger struct {
	db            *gorm.DB
	subscriptions SubscriptionChecker
	secret        []byte
	limit         func(isAuthenticated bool) int
	window        time.Duration
	now           func() time.Time
}

type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLimits overrides the per-caller limit policy.
func WithLimits(limit func(isAuthenticated bool) int) Option {
	return func(l *Ledger) { l.limit = limit }
}

// WithWindow overrides the counting window length.
func WithWindow(window time.Duration) Option {
	return func(l *Ledger) { l.window = window }
}

// NewLedger builds a ledger. secret keys the hash used for anonymous identities.
func NewLedger(db *gorm.DB, subscriptions SubscriptionChecker, secret string, opts ...Option) *Ledger {
	l := &Ledger{
		db:            db,
		subscriptions: subscriptions,
		secret:        []byte(secret),
		limit:         entitlements.MessageLimit,
		window:        entitlements.QuotaWindow(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IdentityKey resolves the caller to its quota key.
func (l *Ledger) IdentityKey(c Caller) string {
	if c.IsAuthenticated() {
		return models.UserIdentityKey(c.UserID)
	}
	return AnonymousKey(l.secret, c.IP)
}

// AnonymousKey derives a stable, non-reversible key from a client IP.
func AnonymousKey(secret []byte, ip string) string {
	if ip == "" {
		ip = "unknown"
	}
	// blake2b only rejects keys longer than 64 bytes.
	if len(secret) > blake2b.Size {
		secret = secret[:blake2b.Size]
	}
	h, _ := blake2b.New256(secret)
	h.Write([]byte(ip))
	return "anon:" + hex.EncodeToString(h.Sum(nil))
}

// Admit checks and consumes one unit of the caller's quota.
//
// The reset and the increment are conditional UPDATE statements run in one
// transaction, so concurrent requests for the same identity can never push
// message_count past the limit.
func (l *Ledger) Admit(ctx context.Context, c Caller) (Decision, error) {
	decision, err := l.planDecision(c)
	if err != nil || decision.Unlimited {
		return decision, err
	}

	limit := decision.Limit
	key := l.IdentityKey(c)
	now := l.now().UTC()

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := models.QuotaRecord{IdentityKey: key, MessageCount: 0, WindowStart: now}
		if c.IsAuthenticated() {
			uid := c.UserID
			record.UserID = &uid
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			return err
		}

		cutoff := now.Add(-l.window)
		if err := tx.Model(&models.QuotaRecord{}).
			Where("identity_key = ? AND window_start < ?", key, cutoff).
			Updates(map[string]interface{}{"message_count": 0, "window_start": now}).Error; err != nil {
			return err
		}

		res := tx.Model(&models.QuotaRecord{}).
			Where("identity_key = ? AND message_count < ?", key, limit).
			UpdateColumn("message_count", gorm.Expr("message_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		decision.Allowed = res.RowsAffected == 1

		var current models.QuotaRecord
		if err := tx.Where("identity_key = ?", key).First(&current).Error; err != nil {
			return err
		}
		decision.Remaining = remaining(limit, current.MessageCount)
		return nil
	})
	if err != nil {
		return Decision{IsAuthenticated: c.IsAuthenticated(), Limit: limit, Plan: decision.Plan}, fmt.Errorf("%w: admit %s: %v", ErrStore, key, err)
	}
	return decision, nil
}

// Status reports the caller's current standing without consuming quota.
func (l *Ledger) Status(ctx context.Context, c Caller) (Decision, error) {
	decision, err := l.planDecision(c)
	if err != nil || decision.Unlimited {
		return decision, err
	}
	limit := decision.Limit

	var record models.QuotaRecord
	err = l.db.WithContext(ctx).Where("identity_key = ?", l.IdentityKey(c)).First(&record).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		decision.Remaining = limit
	case err != nil:
		return decision, fmt.Errorf("%w: status: %v", ErrStore, err)
	case l.now().UTC().Sub(record.WindowStart) > l.window:
		decision.Remaining = limit
	default:
		decision.Remaining = remaining(limit, record.MessageCount)
	}
	decision.Allowed = decision.Remaining > 0
	return decision, nil
}

// planDecision resolves the caller's plan. Unlimited plans come back already
// allowed; metered plans carry their limit.
func (l *Ledger) planDecision(c Caller) (Decision, error) {
	decision := Decision{IsAuthenticated: c.IsAuthenticated()}

	subscribed, err := l.hasSubscription(c)
	if err != nil {
		return decision, err
	}
	decision.Plan = entitlements.PlanFor(c.IsAuthenticated(), subscribed)
	if decision.Plan == entitlements.PlanUnlimited {
		decision.Allowed = true
		decision.Unlimited = true
		decision.Remaining = -1
		decision.Limit = -1
		return decision, nil
	}
	decision.Limit = l.limit(c.IsAuthenticated())
	return decision, nil
}

func (l *Ledger) hasSubscription(c Caller) (bool, error) {
	if !c.IsAuthenticated() || l.subscriptions == nil {
		return false, nil
	}
	active, err := l.subscriptions.HasActiveSubscription(c.UserID)
	if err != nil {
		return false, fmt.Errorf("%w: subscription lookup: %v", ErrStore, err)
	}
	return active, nil
}

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}
