package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/usecases"
)

func TestStatsService_ApplyIncrements(t *testing.T) {
	stats := usecases.NewStatsService(nil, nil)

	stats.Apply(domain.Transaction{
		SystemID: "metro", FromStation: "a", ToStation: "b",
		Amount: 6, Type: domain.TxExit, Timestamp: at(9),
	})

	sys := stats.Snapshot(domain.StatsSystem, "metro")
	if sys.Revenue != 6 || sys.Transactions != 1 || sys.Exits != 1 {
		t.Errorf("unexpected system stats: %+v", sys)
	}
	if sys.Hourly[9] != 1 {
		t.Errorf("expected hour bucket 9 to be 1, got %d", sys.Hourly[9])
	}
	for _, station := range []string{"a", "b"} {
		st := stats.Snapshot(domain.StatsStation, station)
		if st.Revenue != 6 || st.Transactions != 1 {
			t.Errorf("station %s stats: %+v", station, st)
		}
	}
}

func TestStatsService_NonCollectingTypesIgnored(t *testing.T) {
	stats := usecases.NewStatsService(nil, nil)

	stats.Apply(domain.Transaction{SystemID: "metro", FromStation: domain.StationStaffPayment, Amount: 100, Type: domain.TxStaffPayment, Timestamp: at(9)})
	stats.Apply(domain.Transaction{SystemID: "metro", FromStation: "a", Amount: 99, Type: domain.TxInterchangeEntry, Timestamp: at(9)})

	if got := stats.Snapshot(domain.StatsSystem, "metro"); got.Transactions != 0 || got.Revenue != 0 {
		t.Errorf("non-collecting types must not touch statistics: %+v", got)
	}
}

func TestStatsService_SentinelStationGetsNoEntry(t *testing.T) {
	stats := usecases.NewStatsService(nil, nil)

	stats.Apply(domain.Transaction{
		SystemID: "metro", FromStation: domain.StationMaxFareCharge,
		Amount: 10, Type: domain.TxFlatRate, Timestamp: at(9),
	})

	if got := stats.Snapshot(domain.StatsSystem, "metro"); got.Revenue != 10 {
		t.Errorf("system should still count the max-fare charge: %+v", got)
	}
	if got := stats.Snapshot(domain.StatsStation, domain.StationMaxFareCharge); got.Transactions != 0 {
		t.Errorf("sentinel must not appear as a station: %+v", got)
	}
}

func TestStatsService_RefundNetsToZero(t *testing.T) {
	stats := usecases.NewStatsService(nil, nil)

	original := domain.Transaction{
		ID: "tx-1", SystemID: "metro", FromStation: "a", ToStation: "b",
		Amount: 6, Type: domain.TxExit, Timestamp: at(9),
	}
	stats.Apply(original)

	refund := original
	refund.ID = "tx-2"
	refund.Type = domain.TxRefund
	refund.Timestamp = at(15) // refunded hours later
	stats.ApplyRefund(refund, original)

	for _, key := range []struct {
		kind domain.StatsKind
		id   string
	}{
		{domain.StatsSystem, "metro"},
		{domain.StatsStation, "a"},
		{domain.StatsStation, "b"},
	} {
		got := stats.Snapshot(key.kind, key.id)
		if got.Revenue != 0 || got.Transactions != 0 || got.Exits != 0 {
			t.Errorf("%s/%s should net to zero: %+v", key.kind, key.id, got)
		}
		// The decrement must hit the original's hour bucket, not the refund's.
		if got.Hourly[9] != 0 || got.Hourly[15] != 0 {
			t.Errorf("%s/%s hour buckets should net to zero: %v", key.kind, key.id, got.Hourly)
		}
	}
}

func TestStatsService_AverageFareZeroSafe(t *testing.T) {
	stats := usecases.NewStatsService(nil, nil)
	if got := stats.Snapshot(domain.StatsSystem, "empty").AverageFare(); got != 0 {
		t.Errorf("average fare with no transactions must be 0, got %v", got)
	}
}

func TestStatsService_RouteAttribution(t *testing.T) {
	s := newStack(t, 2*time.Hour, metroSystem(t))
	a := s.station(t, "metro", "Central", "1", domain.Position{World: "overworld"})
	b := s.station(t, "metro", "Outer", "3", domain.Position{World: "overworld", X: 100})

	ctx := context.Background()
	route, err := s.routes.Create(ctx, "metro", "Red Line")
	if err != nil {
		t.Fatalf("create route: %v", err)
	}
	for _, id := range []string{a.ID, b.ID} {
		if err := s.routes.AddStation(ctx, route.ID, id); err != nil {
			t.Fatalf("add station: %v", err)
		}
	}

	if _, err := s.journeys.TapIn(ctx, "rider-1", "metro", a.ID, domain.ClassStandard); err != nil {
		t.Fatalf("tap-in: %v", err)
	}
	if _, err := s.journeys.TapOut(ctx, "rider-1", "metro", b.ID, domain.ClassStandard); err != nil {
		t.Fatalf("tap-out: %v", err)
	}

	got := s.stats.Snapshot(domain.StatsRoute, route.ID)
	if got.Revenue != 6.00 || got.Transactions != 1 {
		t.Errorf("route should be credited with the journey: %+v", got)
	}
}

func TestStatsService_WindowedReplaysLedger(t *testing.T) {
	stats := usecases.NewStatsService(nil, nil)
	ledger := usecases.NewLedgerService(nil, &mockEconomy{}, nil, stats)
	ctx := context.Background()

	old := domain.Transaction{
		SystemID: "metro", FromStation: "a", Amount: 50, Type: domain.TxEntry,
		Timestamp: time.Now().Add(-48 * time.Hour),
	}
	recent := domain.Transaction{
		SystemID: "metro", FromStation: "a", Amount: 6, Type: domain.TxEntry,
		Timestamp: time.Now().Add(-time.Hour),
	}
	ledger.Record(ctx, old)
	ledger.Record(ctx, recent)

	cumulative := stats.Snapshot(domain.StatsSystem, "metro")
	if cumulative.Revenue != 56 {
		t.Fatalf("cumulative revenue should be 56, got %v", cumulative.Revenue)
	}

	day := stats.Windowed(domain.StatsSystem, "metro", 24*time.Hour, ledger)
	if day.Revenue != 6 || day.Transactions != 1 {
		t.Errorf("trailing-day window should only see the recent charge: %+v", day)
	}
}

func TestStatsService_WindowedSubtractsRefunds(t *testing.T) {
	stats := usecases.NewStatsService(nil, nil)
	ledger := usecases.NewLedgerService(nil, &mockEconomy{}, nil, stats)
	ctx := context.Background()

	tx := ledger.Record(ctx, domain.Transaction{
		RiderID: "rider-1", SystemID: "metro", FromStation: "a",
		Amount: 6, Type: domain.TxEntry,
	})
	if _, err := ledger.Refund(ctx, tx.ID); err != nil {
		t.Fatalf("refund: %v", err)
	}

	day := stats.Windowed(domain.StatsSystem, "metro", 24*time.Hour, ledger)
	if day.Revenue != 0 || day.Transactions != 0 {
		t.Errorf("refund inside the window should cancel the charge: %+v", day)
	}
}
