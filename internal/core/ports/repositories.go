package ports

import (
	"context"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
)

// StationRepository persists fare gate stations.
type StationRepository interface {
	Upsert(ctx context.Context, station *domain.Station) error
	Delete(ctx context.Context, systemID, stationID string) error
	ListBySystem(ctx context.Context, systemID string) ([]domain.Station, error)
	List(ctx context.Context) ([]domain.Station, error)
}

// RouteRepository persists ordered station sequences.
type RouteRepository interface {
	Upsert(ctx context.Context, route *domain.Route) error
	Delete(ctx context.Context, systemID, name string) error
	List(ctx context.Context) ([]domain.Route, error)
}

// GateRepository persists physical gate locations.
type GateRepository interface {
	Upsert(ctx context.Context, gate *domain.Gate) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Gate, error)
}

// TransactionRepository persists the append-only fare ledger.
type TransactionRepository interface {
	Insert(ctx context.Context, tx *domain.Transaction) error
	InsertBatch(ctx context.Context, txs []domain.Transaction) error
	ListByRider(ctx context.Context, riderID string, limit int) ([]domain.Transaction, error)
	ListBySystem(ctx context.Context, systemID string, limit int) ([]domain.Transaction, error)
	ListSince(ctx context.Context, since time.Time) ([]domain.Transaction, error)
	List(ctx context.Context) ([]domain.Transaction, error)
}

// StaffRepository persists staff rosters, shifts and queued payments.
type StaffRepository interface {
	UpsertMember(ctx context.Context, member *domain.StaffMember) error
	DeleteMember(ctx context.Context, systemID, riderID string) error
	ListMembers(ctx context.Context) ([]domain.StaffMember, error)

	InsertPending(ctx context.Context, payment *domain.PendingPayment) error
	DeletePending(ctx context.Context, id string) error
	ListPending(ctx context.Context) ([]domain.PendingPayment, error)

	UpsertShift(ctx context.Context, shift *domain.Shift) error
	ListShifts(ctx context.Context, systemID, riderID string, limit int) ([]domain.Shift, error)

	UpsertPerformance(ctx context.Context, perf *domain.Performance) error
	ListPerformance(ctx context.Context) ([]domain.Performance, error)
}

// StatsRepository persists aggregated fare statistics.
type StatsRepository interface {
	Upsert(ctx context.Context, stats []domain.Stats) error
	Load(ctx context.Context) ([]domain.Stats, error)
}
