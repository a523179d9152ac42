package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/ports"
)

// TransactionSink consumes recorded transactions, e.g. the statistics
// aggregator. Refunds are delivered together with the original transaction
// so the sink can mirror the original's hour bucket exactly.
type TransactionSink interface {
	Apply(tx domain.Transaction)
	ApplyRefund(refund, original domain.Transaction)
}

// LedgerService is the append-only transaction log. The in-memory log and
// the per-system balances are authoritative; postgres writes are
// fire-and-forget and retried on the next flush when they fail.
type LedgerService struct {
	repo      ports.TransactionRepository
	economy   ports.EconomyService
	publisher ports.EventPublisher
	sink      TransactionSink

	mu       sync.RWMutex
	log      []domain.Transaction
	byID     map[string]int
	balances map[string]float64
	unsaved  []domain.Transaction
}

// NewLedgerService creates a new LedgerService. repo, publisher and sink may
// be nil (tests, or a process without that adapter).
func NewLedgerService(repo ports.TransactionRepository, economy ports.EconomyService, publisher ports.EventPublisher, sink TransactionSink) *LedgerService {
	return &LedgerService{
		repo:      repo,
		economy:   economy,
		publisher: publisher,
		sink:      sink,
		byID:      make(map[string]int),
		balances:  make(map[string]float64),
	}
}

// Load rebuilds the log and balances from storage. Statistics are not
// replayed here; the aggregator loads its own saved counters.
func (s *LedgerService) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	txs, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = txs
	s.byID = make(map[string]int, len(txs))
	s.balances = make(map[string]float64)
	for i, tx := range txs {
		s.byID[tx.ID] = i
		s.balances[tx.SystemID] += tx.Type.BalanceSign() * tx.Amount
	}
	return nil
}

// Record appends a transaction, updates the owning system's balance, feeds
// the statistics sink, and persists and publishes asynchronously. Missing
// id/timestamp are filled in.
func (s *LedgerService) Record(ctx context.Context, tx domain.Transaction) domain.Transaction {
	if tx.ID == "" {
		tx.ID = domain.NewID()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.byID[tx.ID] = len(s.log)
	s.log = append(s.log, tx)
	s.balances[tx.SystemID] += tx.Type.BalanceSign() * tx.Amount
	s.mu.Unlock()

	// Refunds reach the sink through ApplyRefund with their original.
	if s.sink != nil && tx.Type != domain.TxRefund {
		s.sink.Apply(tx)
	}

	go s.persist(tx)
	return tx
}

func (s *LedgerService) persist(tx domain.Transaction) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.repo != nil {
		if err := s.repo.Insert(ctx, &tx); err != nil {
			slog.Error("persist transaction failed, queued for retry",
				"tx_id", tx.ID, "system_id", tx.SystemID, "error", err)
			s.mu.Lock()
			s.unsaved = append(s.unsaved, tx)
			s.mu.Unlock()
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishTransaction(ctx, &tx); err != nil {
			slog.Warn("publish transaction failed", "tx_id", tx.ID, "error", err)
		}
	}
}

// Refund credits the rider's account with the original amount and records a
// new REFUND transaction copying the original's rider, system and stations,
// so that balance and statistics cancel exactly. Only fare-collecting
// transactions are refundable.
func (s *LedgerService) Refund(ctx context.Context, txID string) (domain.Transaction, error) {
	s.mu.RLock()
	idx, ok := s.byID[txID]
	var original domain.Transaction
	if ok {
		original = s.log[idx]
	}
	s.mu.RUnlock()

	if !ok {
		return domain.Transaction{}, fmt.Errorf("refund %s: %w", txID, ErrNotFound)
	}
	if !original.Type.Collecting() {
		return domain.Transaction{}, fmt.Errorf("refund %s: transaction type %s is not refundable", txID, original.Type)
	}

	if s.economy != nil {
		if err := s.economy.Deposit(ctx, original.RiderID, original.Amount); err != nil {
			return domain.Transaction{}, fmt.Errorf("refund %s: deposit: %w", txID, err)
		}
	}

	refund := domain.Transaction{
		RiderID:     original.RiderID,
		SystemID:    original.SystemID,
		FromStation: original.FromStation,
		ToStation:   original.ToStation,
		Amount:      original.Amount,
		Type:        domain.TxRefund,
	}
	refund = s.Record(ctx, refund)
	if s.sink != nil {
		s.sink.ApplyRefund(refund, original)
	}
	return refund, nil
}

// BalanceOf returns the system's materialized balance, zero for unknown ids.
func (s *LedgerService) BalanceOf(systemID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[systemID]
}

// ByRider returns the rider's transactions, most recent first, up to limit.
func (s *LedgerService) ByRider(riderID string, limit int) []domain.Transaction {
	return s.filter(func(tx *domain.Transaction) bool { return tx.RiderID == riderID }, limit)
}

// BySystem returns the system's transactions, most recent first, up to limit.
func (s *LedgerService) BySystem(systemID string, limit int) []domain.Transaction {
	return s.filter(func(tx *domain.Transaction) bool { return tx.SystemID == systemID }, limit)
}

// Since returns all transactions at or after the given instant, oldest
// first. The statistics aggregator replays this for windowed snapshots.
func (s *LedgerService) Since(t time.Time) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range s.log {
		if !tx.Timestamp.Before(t) {
			out = append(out, tx)
		}
	}
	return out
}

// Get returns a transaction by id.
func (s *LedgerService) Get(txID string) (domain.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[txID]
	if !ok {
		return domain.Transaction{}, false
	}
	return s.log[idx], true
}

// Flush synchronously retries every transaction whose async write failed.
// Called on shutdown after the tickers stop.
func (s *LedgerService) Flush(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	s.mu.Lock()
	pending := s.unsaved
	s.unsaved = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	if err := s.repo.InsertBatch(ctx, pending); err != nil {
		s.mu.Lock()
		s.unsaved = append(pending, s.unsaved...)
		s.mu.Unlock()
		return fmt.Errorf("flush %d transactions: %w", len(pending), err)
	}
	return nil
}

// filter walks the log newest-first collecting up to limit matches.
func (s *LedgerService) filter(match func(*domain.Transaction) bool, limit int) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transaction
	for i := len(s.log) - 1; i >= 0; i-- {
		if match(&s.log[i]) {
			out = append(out, s.log[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}
