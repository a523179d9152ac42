package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
)

// --- Mock EconomyService ---

type mockEconomy struct {
	mu         sync.Mutex
	hasFn      func(ctx context.Context, riderID string, amount float64) (bool, error)
	withdrawFn func(ctx context.Context, riderID string, amount float64) (bool, error)
	depositFn  func(ctx context.Context, riderID string, amount float64) error

	withdrawals []float64
	deposits    []float64
}

func (m *mockEconomy) Has(ctx context.Context, riderID string, amount float64) (bool, error) {
	if m.hasFn != nil {
		return m.hasFn(ctx, riderID, amount)
	}
	return true, nil
}

func (m *mockEconomy) Withdraw(ctx context.Context, riderID string, amount float64) (bool, error) {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, riderID, amount)
	}
	m.mu.Lock()
	m.withdrawals = append(m.withdrawals, amount)
	m.mu.Unlock()
	return true, nil
}

func (m *mockEconomy) Deposit(ctx context.Context, riderID string, amount float64) error {
	if m.depositFn != nil {
		return m.depositFn(ctx, riderID, amount)
	}
	m.mu.Lock()
	m.deposits = append(m.deposits, amount)
	m.mu.Unlock()
	return nil
}

// --- Mock Notifier ---

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(ctx context.Context, riderID, message string) error {
	m.mu.Lock()
	m.messages = append(m.messages, message)
	m.mu.Unlock()
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	txs    []domain.Transaction
	events []domain.JourneyEvent
}

func (m *mockPublisher) PublishTransaction(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	m.txs = append(m.txs, *tx)
	m.mu.Unlock()
	return nil
}

func (m *mockPublisher) PublishJourneyEvent(ctx context.Context, event *domain.JourneyEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()
	return nil
}

func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }

func (m *mockPublisher) journeyEvents() []domain.JourneyEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.JourneyEvent(nil), m.events...)
}

// --- Mock CacheService ---

type mockCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key], nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// --- Mock StaffRepository ---

type mockStaffRepo struct {
	mu             sync.Mutex
	deletedPending []string
}

func (m *mockStaffRepo) UpsertMember(ctx context.Context, member *domain.StaffMember) error { return nil }
func (m *mockStaffRepo) DeleteMember(ctx context.Context, systemID, riderID string) error   { return nil }
func (m *mockStaffRepo) ListMembers(ctx context.Context) ([]domain.StaffMember, error)      { return nil, nil }

func (m *mockStaffRepo) InsertPending(ctx context.Context, payment *domain.PendingPayment) error {
	return nil
}

func (m *mockStaffRepo) DeletePending(ctx context.Context, id string) error {
	m.mu.Lock()
	m.deletedPending = append(m.deletedPending, id)
	m.mu.Unlock()
	return nil
}

func (m *mockStaffRepo) ListPending(ctx context.Context) ([]domain.PendingPayment, error) {
	return nil, nil
}

func (m *mockStaffRepo) UpsertShift(ctx context.Context, shift *domain.Shift) error { return nil }
func (m *mockStaffRepo) ListShifts(ctx context.Context, systemID, riderID string, limit int) ([]domain.Shift, error) {
	return nil, nil
}
func (m *mockStaffRepo) UpsertPerformance(ctx context.Context, perf *domain.Performance) error {
	return nil
}
func (m *mockStaffRepo) ListPerformance(ctx context.Context) ([]domain.Performance, error) {
	return nil, nil
}

// --- Fixed clock helper ---

func at(hour int) time.Time {
	return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC) // a Monday
}
