package planning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/domain"
)

type memBudgetStore struct {
	mu      sync.Mutex
	data    map[string]int64
	getErr  error
	incrErr error
}

func newMemBudgetStore() *memBudgetStore {
	return &memBudgetStore{data: make(map[string]int64)}
}

func (m *memBudgetStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrErr != nil {
		return m.incrErr
	}
	m.data[key] += val
	return nil
}

func (m *memBudgetStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestBudgetTracker_RejectWhenDailyExceeded(t *testing.T) {
	bt := NewBudgetTracker("openai", 100, 0, BudgetActionReject, zap.NewNop())

	bt.Record(100)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrPlannerQuotaExceeded) {
		t.Fatalf("expected ErrPlannerQuotaExceeded, got %v", err)
	}
}

func TestBudgetTracker_RejectWhenMonthlyExceeded(t *testing.T) {
	bt := NewBudgetTracker("openai", 0, 500, BudgetActionReject, zap.NewNop())

	bt.Record(501)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrPlannerQuotaExceeded) {
		t.Fatalf("expected ErrPlannerQuotaExceeded, got %v", err)
	}
}

func TestBudgetTracker_WarnLetsRequestsThrough(t *testing.T) {
	bt := NewBudgetTracker("openai", 100, 0, BudgetActionWarn, zap.NewNop())

	bt.Record(250)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil for warn action, got %v", err)
	}
}

func TestBudgetTracker_Remaining(t *testing.T) {
	bt := NewBudgetTracker("openai", 1000, 10000, BudgetActionWarn, zap.NewNop())

	bt.Record(300)

	if got := bt.RemainingDaily(); got != 700 {
		t.Errorf("RemainingDaily = %d, want 700", got)
	}
	if got := bt.RemainingMonthly(); got != 9700 {
		t.Errorf("RemainingMonthly = %d, want 9700", got)
	}

	bt.Record(5000)
	if got := bt.RemainingDaily(); got != 0 {
		t.Errorf("RemainingDaily = %d, want clamped 0", got)
	}
}

func TestBudgetTracker_Unlimited(t *testing.T) {
	bt := NewBudgetTracker("openai", 0, 0, BudgetActionReject, zap.NewNop())

	bt.Record(1 << 40)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil for unlimited budget, got %v", err)
	}
	if bt.RemainingDaily() != -1 || bt.RemainingMonthly() != -1 {
		t.Error("expected -1 remaining for unlimited budget")
	}
}

func TestBudgetTracker_DayRollover(t *testing.T) {
	day1 := time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)
	bt := NewBudgetTracker("openai", 100, 1000, BudgetActionReject, zap.NewNop())
	bt.now = fixedClock(day1)
	bt.daily.start = startOfDay(day1)
	bt.monthly.start = startOfMonth(day1)

	bt.Record(100)
	if err := bt.Check(context.Background()); err == nil {
		t.Fatal("expected rejection on day 1")
	}

	bt.now = fixedClock(day1.Add(2 * time.Hour))
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected reset on day 2, got %v", err)
	}
	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected both counters reset across the month boundary, got %d/%d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestBudgetTracker_WithStoreLoadsAndPersists(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newMemBudgetStore()
	store.data[domain.KeyPrefix+"budget:openai:daily:2025-06-15"] = 40
	store.data[domain.KeyPrefix+"budget:openai:monthly:2025-06"] = 400

	bt := NewBudgetTracker("openai", 100, 1000, BudgetActionReject, zap.NewNop())
	bt.now = fixedClock(now)
	bt.WithStore(context.Background(), store)

	if bt.DailyUsed() != 40 || bt.MonthlyUsed() != 400 {
		t.Fatalf("expected counters seeded from store, got %d/%d", bt.DailyUsed(), bt.MonthlyUsed())
	}

	bt.Record(10)

	if got := store.data[domain.KeyPrefix+"budget:openai:daily:2025-06-15"]; got != 50 {
		t.Errorf("daily key = %d, want 50", got)
	}
	if got := store.data[domain.KeyPrefix+"budget:openai:monthly:2025-06"]; got != 410 {
		t.Errorf("monthly key = %d, want 410", got)
	}
}

func TestBudgetTracker_StoreErrorsAreNotFatal(t *testing.T) {
	store := newMemBudgetStore()
	store.getErr = errors.New("connection refused")
	store.incrErr = errors.New("connection refused")

	bt := NewBudgetTracker("openai", 100, 0, BudgetActionReject, zap.NewNop()).
		WithStore(context.Background(), store)
	bt.Record(30)

	if bt.DailyUsed() != 30 {
		t.Errorf("in-memory counter should still advance, got %d", bt.DailyUsed())
	}
	if err := bt.Check(context.Background()); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
