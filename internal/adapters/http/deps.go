package http

import (
	"github.com/nats-io/nats.go"

	"github.com/emberline/faregate/internal/adapters/postgres"
	"github.com/emberline/faregate/internal/adapters/valkey"
	"github.com/emberline/faregate/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Systems  *usecases.SystemRegistry
	Stations *usecases.StationService
	Routes   *usecases.RouteService
	Gates    *usecases.GateService
	Fares    *usecases.FareService
	Journeys *usecases.JourneyService
	Ledger   *usecases.LedgerService
	Stats    *usecases.StatsService
	Payroll  *usecases.PayrollService
	Presence *usecases.PresenceService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
