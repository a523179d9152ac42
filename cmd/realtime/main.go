package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	natsadapter "github.com/emberline/faregate/internal/adapters/nats"
	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/pkg/config"
	"github.com/emberline/faregate/internal/pkg/logging"
)

// systemCounters accumulates activity between broadcast ticks.
type systemCounters struct {
	Taps        int     `json:"taps"`
	Exits       int     `json:"exits"`
	Refunds     int     `json:"refunds"`
	Revenue     float64 `json:"revenue"`
	OpenedTrips int     `json:"opened_trips"`
	ClosedTrips int     `json:"closed_trips"`
	ForceClosed int     `json:"force_closed"`
}

type aggregator struct {
	mu      sync.Mutex
	systems map[string]*systemCounters
}

func newAggregator() *aggregator {
	return &aggregator{systems: make(map[string]*systemCounters)}
}

func (a *aggregator) counters(systemID string) *systemCounters {
	c, ok := a.systems[systemID]
	if !ok {
		c = &systemCounters{}
		a.systems[systemID] = c
	}
	return c
}

func (a *aggregator) applyTransaction(tx *domain.Transaction) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.counters(tx.SystemID)
	switch tx.Type {
	case domain.TxRefund:
		c.Refunds++
		c.Revenue -= tx.Amount
	case domain.TxStaffPayment:
		// Payroll debits are not rider revenue.
	case domain.TxExit, domain.TxInterchangeExit:
		c.Exits++
		c.Revenue += tx.Amount
	default:
		c.Taps++
		c.Revenue += tx.Amount
	}
}

func (a *aggregator) applyJourneyEvent(event *domain.JourneyEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.counters(event.SystemID)
	switch event.Kind {
	case domain.JourneyOpened:
		c.OpenedTrips++
	case domain.JourneyClosed:
		c.ClosedTrips++
	case domain.JourneyForceClosed:
		c.ForceClosed++
	}
}

// drain returns the accumulated counters and resets the window.
func (a *aggregator) drain() map[string]*systemCounters {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.systems
	a.systems = make(map[string]*systemCounters)
	return out
}

func main() {
	cfg, err := config.Load("faregate-realtime")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(os.Getenv("LOG_LEVEL"), "json")
	slog.Info("starting faregate realtime relay", "nats_url", cfg.NATS.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	agg := newAggregator()

	err = sub.SubscribeTransactions(ctx, func(ctx context.Context, tx *domain.Transaction) error {
		agg.applyTransaction(tx)
		slog.Debug("transaction",
			"system", tx.SystemID,
			"rider", tx.RiderID,
			"type", string(tx.Type),
			"amount", tx.Amount,
		)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe transactions: %v", err)
	}

	err = sub.SubscribeJourneyEvents(ctx, func(ctx context.Context, event *domain.JourneyEvent) error {
		agg.applyJourneyEvent(event)
		slog.Debug("journey event",
			"system", event.SystemID,
			"rider", event.RiderID,
			"kind", string(event.Kind),
		)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe journeys: %v", err)
	}

	interval := 10 * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("relay running", "broadcast_interval", interval.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			broadcast(ctx, pub, agg)
		case sig := <-quit:
			slog.Info("shutting down realtime relay", "signal", sig.String())
			broadcast(ctx, pub, agg)
			cancel()
			return
		}
	}
}

// broadcast publishes one summary frame covering all systems that saw
// activity since the last tick. Quiet windows publish nothing.
func broadcast(ctx context.Context, pub *natsadapter.Publisher, agg *aggregator) {
	window := agg.drain()
	if len(window) == 0 {
		return
	}

	frame := map[string]any{
		"at":      time.Now().UTC(),
		"systems": window,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Error("marshal broadcast", "error", err)
		return
	}
	if err := pub.PublishBroadcast(ctx, data); err != nil {
		slog.Warn("publish broadcast", "error", err)
		return
	}
	slog.Info("broadcast published", "systems", len(window))
}
