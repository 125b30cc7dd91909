package embedding

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemedex/internal/domain"
)

// BudgetAction is what Check does once a token limit is hit.
type BudgetAction string

const (
	// BudgetActionWarn logs the overrun but lets the request through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the request with ErrEmbeddingQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore mirrors token counters to durable storage so restarts keep
// the current spend. Increments must be safe to repeat.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// counter is one budget window, a UTC day or month. A zero limit means
// unlimited.
type counter struct {
	used  int64
	limit int64
	since time.Time
}

func (c *counter) roll(start time.Time) {
	if start.After(c.since) {
		c.used = 0
		c.since = start
	}
}

func (c *counter) exceeded() bool {
	return c.limit > 0 && c.used >= c.limit
}

func (c *counter) remaining() int64 {
	if c.limit == 0 {
		return -1 // unlimited
	}
	if left := c.limit - c.used; left > 0 {
		return left
	}
	return 0
}

// BudgetTracker caps embedding token spend for the configured provider.
// Check reads only in-memory counters so the embed hot path never waits on
// the store; Record updates memory first and mirrors the increment to the
// store afterwards.
type BudgetTracker struct {
	mu     sync.Mutex
	day    counter
	month  counter
	action BudgetAction
	store  BudgetStore
	logger *zap.Logger
}

// NewBudgetTracker creates a tracker with the given limits.
func NewBudgetTracker(dailyLimit, monthlyLimit int64, action BudgetAction, logger *zap.Logger) *BudgetTracker {
	now := time.Now().UTC()
	return &BudgetTracker{
		day:    counter{limit: dailyLimit, since: startOfDay(now)},
		month:  counter{limit: monthlyLimit, since: startOfMonth(now)},
		action: action,
		logger: logger,
	}
}

// WithStore attaches a persistence store and seeds the counters from it.
// An unreadable key leaves its counter at zero.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := time.Now().UTC()
	seeds := []struct {
		key  string
		dest *int64
	}{
		{dailyKey(now), &b.day.used},
		{monthlyKey(now), &b.month.used},
	}
	for _, seed := range seeds {
		val, err := store.Get(ctx, seed.key)
		if err != nil {
			b.logger.Warn("Failed to load budget counter",
				zap.String("key", seed.key), zap.Error(err))
			continue
		}
		*seed.dest = val
	}

	b.logger.Info("Budget counters loaded",
		zap.Int64("daily_used", b.day.used),
		zap.Int64("monthly_used", b.month.used),
	)
	return b
}

// One provider is active at a time, so keys carry only the window.
func dailyKey(t time.Time) string {
	return domain.KeyPrefix + "budget:daily:" + t.Format("2006-01-02")
}

func monthlyKey(t time.Time) string {
	return domain.KeyPrefix + "budget:monthly:" + t.Format("2006-01")
}

// Check reports whether the budget allows another request. In-memory only.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollWindows()
	if !b.day.exceeded() && !b.month.exceeded() {
		return nil
	}
	if b.action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}

	b.logger.Warn("Token budget exceeded, allowing request",
		zap.Int64("daily_used", b.day.used),
		zap.Int64("daily_limit", b.day.limit),
		zap.Int64("monthly_used", b.month.used),
		zap.Int64("monthly_limit", b.month.limit),
	)
	return nil
}

// Record registers consumed tokens. The store write runs on a short
// background context so a slow store cannot stall the embed path.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollWindows()
	b.day.used += tokens
	b.month.used += tokens
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	now := time.Now().UTC()
	for _, key := range []string{dailyKey(now), monthlyKey(now)} {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist budget counter",
				zap.String("key", key), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left today, -1 when unlimited.
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollWindows()
	return b.day.remaining()
}

// RemainingMonthly returns tokens left this month, -1 when unlimited.
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollWindows()
	return b.month.remaining()
}

// DailyLimit returns the daily token cap.
func (b *BudgetTracker) DailyLimit() int64 { return b.day.limit }

// MonthlyLimit returns the monthly token cap.
func (b *BudgetTracker) MonthlyLimit() int64 { return b.month.limit }

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollWindows()
	return b.day.used
}

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollWindows()
	return b.month.used
}

func (b *BudgetTracker) rollWindows() {
	now := time.Now().UTC()
	b.day.roll(startOfDay(now))
	b.month.roll(startOfMonth(now))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
