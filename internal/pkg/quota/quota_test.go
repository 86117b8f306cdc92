package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/makkara/makkara/app/models"
	"github.com/makkara/makkara/internal/pkg/database"
	"github.com/makkara/makkara/internal/pkg/entitlements"
)

type fakeSubscriptions struct {
	active map[uint]bool
	err    error
}

func (f *fakeSubscriptions) HasActiveSubscription(userID uint) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.active[userID], nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func fixedLimits(isAuthenticated bool) int {
	if isAuthenticated {
		return 3
	}
	return 1
}

func newLedger(t *testing.T, subs SubscriptionChecker) (*Ledger, *gorm.DB, *clock) {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLedger(db, subs, "test-secret",
		WithClock(clk.Now),
		WithLimits(fixedLimits),
		WithWindow(24*time.Hour),
	)
	return l, db, clk
}

func TestAdmitCountsDownToLimit(t *testing.T) {
	l, _, _ := newLedger(t, &fakeSubscriptions{})
	ctx := context.Background()
	caller := Caller{UserID: 7}

	for k := 1; k <= 3; k++ {
		d, err := l.Admit(ctx, caller)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 3-k, d.Remaining)
		assert.Equal(t, 3, d.Limit)
		assert.True(t, d.IsAuthenticated)
		assert.Equal(t, entitlements.PlanFree, d.Plan)
	}

	d, err := l.Admit(ctx, caller)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestAdmitAnonymousSingleMessage(t *testing.T) {
	l, db, _ := newLedger(t, &fakeSubscriptions{})
	ctx := context.Background()
	caller := Caller{IP: "203.0.113.9"}

	d, err := l.Admit(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Remaining: 0, Limit: 1, IsAuthenticated: false, Plan: entitlements.PlanAnonymous}, d)

	d, err = l.Admit(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: false, Remaining: 0, Limit: 1, IsAuthenticated: false, Plan: entitlements.PlanAnonymous}, d)

	var record models.QuotaRecord
	require.NoError(t, db.First(&record).Error)
	assert.Equal(t, 1, record.MessageCount)
	assert.Nil(t, record.UserID)
	assert.NotContains(t, record.IdentityKey, "203.0.113.9")
}

func TestAdmitResetsAfterWindow(t *testing.T) {
	l, db, clk := newLedger(t, &fakeSubscriptions{})
	ctx := context.Background()
	caller := Caller{UserID: 1}

	for i := 0; i < 3; i++ {
		_, err := l.Admit(ctx, caller)
		require.NoError(t, err)
	}
	d, err := l.Admit(ctx, caller)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// Exactly one window later is not yet "more than" a window.
	clk.Advance(24 * time.Hour)
	d, err = l.Admit(ctx, caller)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	clk.Advance(time.Second)
	d, err = l.Admit(ctx, caller)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)

	var record models.QuotaRecord
	require.NoError(t, db.Where("identity_key = ?", models.UserIdentityKey(1)).First(&record).Error)
	assert.Equal(t, 1, record.MessageCount)
	assert.True(t, record.WindowStart.Equal(clk.Now()))
}

func TestAdmitSubscriberBypassesQuota(t *testing.T) {
	subs := &fakeSubscriptions{active: map[uint]bool{5: true}}
	l, db, _ := newLedger(t, subs)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.QuotaRecord{
		IdentityKey:  models.UserIdentityKey(5),
		MessageCount: 99,
		WindowStart:  time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
	}).Error)

	for i := 0; i < 10; i++ {
		d, err := l.Admit(ctx, Caller{UserID: 5})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.True(t, d.Unlimited)
		assert.Equal(t, entitlements.PlanUnlimited, d.Plan)
	}

	var record models.QuotaRecord
	require.NoError(t, db.First(&record).Error)
	assert.Equal(t, 99, record.MessageCount, "subscribers never mutate the counter")
}

func TestAdmitFailsClosedOnSubscriptionError(t *testing.T) {
	l, _, _ := newLedger(t, &fakeSubscriptions{err: errors.New("db down")})

	d, err := l.Admit(context.Background(), Caller{UserID: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)
	assert.False(t, d.Allowed)
}

func TestAdmitFailsClosedOnStorageError(t *testing.T) {
	l, db, _ := newLedger(t, &fakeSubscriptions{})
	require.NoError(t, db.Migrator().DropTable(&models.QuotaRecord{}))

	d, err := l.Admit(context.Background(), Caller{IP: "198.51.100.1"})
	assert.ErrorIs(t, err, ErrStore)
	assert.False(t, d.Allowed)
}

func TestAdmitConcurrentRequestsNeverOverrun(t *testing.T) {
	l, db, _ := newLedger(t, &fakeSubscriptions{})
	ctx := context.Background()
	caller := Caller{UserID: 42}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Admit(ctx, caller)
			if err != nil {
				t.Error(err)
				return
			}
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, allowed)
	var record models.QuotaRecord
	require.NoError(t, db.First(&record).Error)
	assert.Equal(t, 3, record.MessageCount)
}

func TestStatusDoesNotConsume(t *testing.T) {
	l, _, clk := newLedger(t, &fakeSubscriptions{})
	ctx := context.Background()
	caller := Caller{UserID: 3}

	d, err := l.Status(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Remaining)

	_, err = l.Admit(ctx, caller)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		d, err = l.Status(ctx, caller)
		require.NoError(t, err)
		assert.Equal(t, 2, d.Remaining)
		assert.True(t, d.Allowed)
	}

	// Status uses the same boundary as Admit: exactly one window is not enough.
	clk.Advance(24 * time.Hour)
	d, err = l.Status(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Remaining)

	clk.Advance(time.Hour)
	d, err = l.Status(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Remaining)
	assert.Equal(t, entitlements.PlanFree, d.Plan)
}

func TestIdentityKeys(t *testing.T) {
	l := NewLedger(nil, nil, "s3cret")

	assert.Equal(t, "user:9", l.IdentityKey(Caller{UserID: 9, IP: "10.0.0.1"}))

	a := l.IdentityKey(Caller{IP: "10.0.0.1"})
	b := l.IdentityKey(Caller{IP: "10.0.0.2"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, l.IdentityKey(Caller{IP: "10.0.0.1"}))
	assert.Regexp(t, `^anon:[0-9a-f]{64}$`, a)

	assert.Equal(t, AnonymousKey([]byte("x"), ""), AnonymousKey([]byte("x"), "unknown"))
	assert.NotEqual(t, AnonymousKey([]byte("x"), "10.0.0.1"), AnonymousKey([]byte("y"), "10.0.0.1"))
}
