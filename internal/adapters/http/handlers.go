package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/usecases"
	"github.com/emberline/faregate/internal/pkg/metrics"
)

// LedgerStatus holds row counts from the persistence tables.
type LedgerStatus struct {
	Transactions int    `json:"transactions"`
	Stations     int    `json:"stations"`
	Routes       int    `json:"routes"`
	Gates        int    `json:"gates"`
	Staff        int    `json:"staff"`
	LastRecorded string `json:"last_recorded,omitempty"`
}

// LedgerStatusHandler returns row counts from the fare tables.
func LedgerStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var status LedgerStatus
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM transactions),
				(SELECT count(*) FROM stations),
				(SELECT count(*) FROM routes),
				(SELECT count(*) FROM gates),
				(SELECT count(*) FROM staff),
				COALESCE((SELECT max(ts)::text FROM transactions), '')
		`)
		if err := row.Scan(&status.Transactions, &status.Stations, &status.Routes,
			&status.Gates, &status.Staff, &status.LastRecorded); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(status)
	}
}

// systemView enriches a transit system with runtime state.
func systemView(deps *Dependencies, sys *domain.TransitSystem) fiber.Map {
	view := fiber.Map{
		"id":       sys.ID,
		"name":     sys.Name,
		"max_fare": sys.MaxFare,
		"balance":  deps.Ledger.BalanceOf(sys.ID),
		"stations": len(deps.Stations.ListBySystem(sys.ID)),
	}
	if flat, ok := deps.Fares.FlatAmount(sys); ok {
		view["flat_fare"] = flat
	}
	return view
}

// ListSystemsHandler returns all configured transit systems.
func ListSystemsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		systems := deps.Systems.List()
		views := make([]fiber.Map, 0, len(systems))
		for i := range systems {
			views = append(views, systemView(deps, systems[i]))
		}
		return c.JSON(views)
	}
}

// GetSystemHandler returns a single transit system by ID.
func GetSystemHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sys, err := deps.Systems.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(systemView(deps, sys))
	}
}

// SystemStatsHandler returns the statistics roll-up for a system.
// With ?window=<duration> the roll-up is recomputed over that window only.
func SystemStatsHandler(deps *Dependencies) fiber.Handler {
	return statsHandler(deps, domain.StatsSystem, func(c *fiber.Ctx) (string, error) {
		sys, err := deps.Systems.Get(c.Params("id"))
		if err != nil {
			return "", err
		}
		return sys.ID, nil
	})
}

// StationStatsHandler returns the statistics roll-up for a station.
func StationStatsHandler(deps *Dependencies) fiber.Handler {
	return statsHandler(deps, domain.StatsStation, func(c *fiber.Ctx) (string, error) {
		st, err := deps.Stations.Get(c.Params("id"))
		if err != nil {
			return "", err
		}
		return st.ID, nil
	})
}

// RouteStatsHandler returns the statistics roll-up for a route.
func RouteStatsHandler(deps *Dependencies) fiber.Handler {
	return statsHandler(deps, domain.StatsRoute, func(c *fiber.Ctx) (string, error) {
		r, err := deps.Routes.Get(c.Params("id"))
		if err != nil {
			return "", err
		}
		return r.ID, nil
	})
}

func statsHandler(deps *Dependencies, kind domain.StatsKind, resolve func(*fiber.Ctx) (string, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := resolve(c)
		if err != nil {
			return serviceError(c, err)
		}

		if raw := c.Query("window"); raw != "" {
			window, err := time.ParseDuration(raw)
			if err != nil || window <= 0 {
				return errBadRequest(c, "window must be a positive duration (e.g. 24h)")
			}
			return c.JSON(deps.Stats.Windowed(kind, id, window, deps.Ledger))
		}

		return c.JSON(deps.Stats.Snapshot(kind, id))
	}
}

// SystemTransactionsHandler returns recent transactions for a system,
// most recent first.
func SystemTransactionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sys, err := deps.Systems.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 500 {
			limit = 50
		}
		return c.JSON(deps.Ledger.BySystem(sys.ID, limit))
	}
}

// CreateStationHandler registers a new station in a system.
func CreateStationHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Name     string          `json:"name"`
		Zone     string          `json:"zone"`
		Position domain.Position `json:"position"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Name == "" {
			return errBadRequest(c, "name is required")
		}

		station, err := deps.Stations.Create(c.Context(), c.Params("id"), req.Name, req.Position, req.Zone)
		if err != nil {
			if _, lookupErr := deps.Systems.Get(c.Params("id")); lookupErr != nil {
				return serviceError(c, lookupErr)
			}
			return errConflict(c, err.Error())
		}
		return c.Status(201).JSON(station)
	}
}

// ListStationsHandler returns all stations in a system, paginated.
func ListStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sys, err := deps.Systems.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		stations := deps.Stations.ListBySystem(sys.ID)

		offset, limit := ParsePagination(c)
		total := len(stations)
		start, end := PageBounds(offset, limit, total)
		stations = stations[start:end]

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: stations, Pagination: pg})
	}
}

// GetStationHandler returns a single station by ID.
func GetStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		station, err := deps.Stations.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(station)
	}
}

// UpdateStationHandler patches a station's status, zone, or position.
func UpdateStationHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Status   *domain.StationStatus `json:"status"`
		Zone     *string               `json:"zone"`
		Position *domain.Position      `json:"position"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		id := c.Params("id")
		if req.Status != nil {
			switch *req.Status {
			case domain.StationActive, domain.StationDisabled, domain.StationMaintenance:
			default:
				return errBadRequest(c, "status must be ACTIVE, DISABLED, or MAINTENANCE")
			}
			if err := deps.Stations.SetStatus(c.Context(), id, *req.Status); err != nil {
				return serviceError(c, err)
			}
		}
		if req.Zone != nil {
			if err := deps.Stations.SetZone(c.Context(), id, *req.Zone); err != nil {
				return serviceError(c, err)
			}
		}
		if req.Position != nil {
			if err := deps.Stations.Relocate(c.Context(), id, *req.Position); err != nil {
				return serviceError(c, err)
			}
		}

		station, err := deps.Stations.Get(id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(station)
	}
}

// DeleteStationHandler removes a station and cascades into routes and gates.
func DeleteStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		station, err := deps.Stations.Remove(c.Context(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		deps.Routes.DropStationEverywhere(c.Context(), station.ID)
		deps.Gates.RemoveByStation(c.Context(), station.ID)
		return c.SendStatus(204)
	}
}

// NearestStationHandler finds the closest station to a position, any system.
func NearestStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pos := domain.Position{
			World: c.Query("world"),
			X:     c.QueryFloat("x", 0),
			Y:     c.QueryFloat("y", 0),
			Z:     c.QueryFloat("z", 0),
		}
		if pos.World == "" {
			return errBadRequest(c, "world is required")
		}
		radius := c.QueryFloat("radius", 100)
		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000")
		}

		station, ok := deps.Stations.Nearest(pos, radius)
		if !ok {
			return errNotFound(c, "no station within radius")
		}
		return c.JSON(station)
	}
}

// CreateRouteHandler creates an empty named route in a system.
func CreateRouteHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Name string `json:"name"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Name == "" {
			return errBadRequest(c, "name is required")
		}

		route, err := deps.Routes.Create(c.Context(), c.Params("id"), req.Name)
		if err != nil {
			if _, lookupErr := deps.Systems.Get(c.Params("id")); lookupErr != nil {
				return serviceError(c, lookupErr)
			}
			return errConflict(c, err.Error())
		}
		return c.Status(201).JSON(route)
	}
}

// ListRoutesHandler returns all routes in a system.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sys, err := deps.Systems.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(deps.Routes.ListBySystem(sys.ID))
	}
}

// GetRouteHandler returns a route by ID.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := deps.Routes.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(route)
	}
}

// AddRouteStationHandler appends a station to a route.
func AddRouteStationHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		StationID string `json:"station_id"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.StationID == "" {
			return errBadRequest(c, "station_id is required")
		}
		if _, err := deps.Stations.Get(req.StationID); err != nil {
			return serviceError(c, err)
		}
		if err := deps.Routes.AddStation(c.Context(), c.Params("id"), req.StationID); err != nil {
			return serviceError(c, err)
		}
		route, err := deps.Routes.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(route)
	}
}

// RemoveRouteStationHandler removes a station from a route.
func RemoveRouteStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Routes.RemoveStation(c.Context(), c.Params("id"), c.Params("stationID")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(204)
	}
}

// ReorderRouteHandler replaces a route's station order. The new order must
// be a permutation of the current stations.
func ReorderRouteHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Order []string `json:"order"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Routes.Reorder(c.Context(), c.Params("id"), req.Order); err != nil {
			return serviceError(c, err)
		}
		route, err := deps.Routes.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(route)
	}
}

// DeleteRouteHandler removes a route.
func DeleteRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Routes.Delete(c.Context(), c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(204)
	}
}

// RegisterGateHandler binds a new gate to a station.
func RegisterGateHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		ID        string          `json:"id"`
		StationID string          `json:"station_id"`
		Position  domain.Position `json:"position"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.ID == "" || req.StationID == "" {
			return errBadRequest(c, "id and station_id are required")
		}

		gate, err := deps.Gates.Register(c.Context(), req.ID, req.Position, req.StationID)
		if err != nil {
			if _, lookupErr := deps.Stations.Get(req.StationID); lookupErr != nil {
				return serviceError(c, lookupErr)
			}
			return errConflict(c, err.Error())
		}
		return c.Status(201).JSON(gate)
	}
}

// GetGateHandler returns a gate by ID.
func GetGateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		gate, err := deps.Gates.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(gate)
	}
}

// StationGatesHandler lists the gates bound to a station.
func StationGatesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		station, err := deps.Stations.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(deps.Gates.ListByStation(station.ID))
	}
}

// SetGateEnabledHandler toggles a gate on or off.
func SetGateEnabledHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Enabled bool `json:"enabled"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Gates.SetEnabled(c.Context(), c.Params("id"), req.Enabled); err != nil {
			return serviceError(c, err)
		}
		gate, err := deps.Gates.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(gate)
	}
}

// DeleteGateHandler removes a gate.
func DeleteGateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Gates.Remove(c.Context(), c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(204)
	}
}

// tapRequest is the shared body for tap endpoints.
type tapRequest struct {
	RiderID   string `json:"rider_id"`
	SystemID  string `json:"system_id"`
	StationID string `json:"station_id"`
	GateID    string `json:"gate_id"`
	Class     string `json:"class"`
}

// recordTap updates fare metrics after a successful tap.
func recordTap(deps *Dependencies, result *usecases.TapResult, direction string) {
	system := ""
	if result.Opened != nil {
		system = result.Opened.SystemID
	}
	if result.Charged != nil {
		system = result.Charged.SystemID
		metrics.ChargesTotal.WithLabelValues(system, string(result.Charged.Type)).Inc()
	}
	metrics.TapsTotal.WithLabelValues(system, direction).Inc()
	metrics.OpenJourneys.Set(float64(deps.Journeys.OpenCount()))
}

// tapError counts declined charges before mapping the error.
func tapError(c *fiber.Ctx, deps *Dependencies, systemID string, err error) error {
	if errors.Is(err, usecases.ErrInsufficientFunds) {
		metrics.ChargesDeclined.WithLabelValues(systemID).Inc()
	}
	return serviceError(c, err)
}

// GateTapHandler processes a tap at a gate, opening or closing a journey
// depending on the rider's current state.
func GateTapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req tapRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.RiderID == "" || req.GateID == "" {
			return errBadRequest(c, "rider_id and gate_id are required")
		}

		result, err := deps.Journeys.Tap(c.Context(), req.RiderID, req.GateID, req.Class)
		if err != nil {
			return tapError(c, deps, req.SystemID, err)
		}
		recordTap(deps, result, "gate")
		return c.JSON(result)
	}
}

// TapInHandler opens a journey (or charges immediately on flat-fare systems).
func TapInHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req tapRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.RiderID == "" || req.SystemID == "" || req.StationID == "" {
			return errBadRequest(c, "rider_id, system_id, and station_id are required")
		}

		result, err := deps.Journeys.TapIn(c.Context(), req.RiderID, req.SystemID, req.StationID, req.Class)
		if err != nil {
			return tapError(c, deps, req.SystemID, err)
		}
		recordTap(deps, result, "in")
		return c.JSON(result)
	}
}

// TapOutHandler closes the rider's open journey and charges the fare.
func TapOutHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req tapRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.RiderID == "" || req.SystemID == "" || req.StationID == "" {
			return errBadRequest(c, "rider_id, system_id, and station_id are required")
		}

		result, err := deps.Journeys.TapOut(c.Context(), req.RiderID, req.SystemID, req.StationID, req.Class)
		if err != nil {
			return tapError(c, deps, req.SystemID, err)
		}
		recordTap(deps, result, "out")
		return c.JSON(result)
	}
}

// RiderJourneyHandler returns the rider's open journey, if any.
func RiderJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		journey, ok := deps.Journeys.Open(c.Params("id"))
		if !ok {
			return errNotFound(c, "no open journey")
		}
		return c.JSON(journey)
	}
}

// ForceCloseHandler closes a rider's journey at the maximum fare. Requires
// the acting staff member to hold the gate-override permission.
func ForceCloseHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		ActorID  string `json:"actor_id"`
		SystemID string `json:"system_id"`
		Reason   string `json:"reason"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if !deps.Payroll.HasPermission(req.SystemID, req.ActorID, domain.PermOverrideGates) {
			return errForbidden(c, "gate override permission required")
		}

		reason := req.Reason
		if reason == "" {
			reason = "manual close"
		}
		tx, err := deps.Journeys.ForceClose(c.Context(), c.Params("id"), reason)
		if err != nil {
			return serviceError(c, err)
		}
		if tx != nil {
			metrics.ForceClosesTotal.WithLabelValues(tx.SystemID, reason).Inc()
		}
		metrics.OpenJourneys.Set(float64(deps.Journeys.OpenCount()))
		return c.JSON(fiber.Map{"transaction": tx})
	}
}

// RiderTransactionsHandler returns a rider's transactions, most recent first.
func RiderTransactionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 500 {
			limit = 50
		}
		return c.JSON(deps.Ledger.ByRider(c.Params("id"), limit))
	}
}

// GetTransactionHandler returns a single transaction by ID.
func GetTransactionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tx, ok := deps.Ledger.Get(c.Params("id"))
		if !ok {
			return errNotFound(c, "transaction not found")
		}
		return c.JSON(tx)
	}
}

// RefundHandler reverses a collected transaction. Requires the acting staff
// member to hold the refund permission in the transaction's system.
func RefundHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		ActorID string `json:"actor_id"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		original, ok := deps.Ledger.Get(c.Params("id"))
		if !ok {
			return errNotFound(c, "transaction not found")
		}
		if !deps.Payroll.HasPermission(original.SystemID, req.ActorID, domain.PermRefund) {
			return errForbidden(c, "refund permission required")
		}

		refund, err := deps.Ledger.Refund(c.Context(), original.ID)
		if err != nil {
			return serviceError(c, err)
		}
		metrics.RefundsTotal.WithLabelValues(refund.SystemID).Inc()
		return c.JSON(refund)
	}
}

// HireStaffHandler employs a rider in a system.
func HireStaffHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		RiderID string               `json:"rider_id"`
		Role    domain.StaffRole     `json:"role"`
		Salary  float64              `json:"salary"`
		Period  domain.PaymentPeriod `json:"period"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.RiderID == "" {
			return errBadRequest(c, "rider_id is required")
		}
		switch req.Role {
		case domain.RoleSupervisor, domain.RoleOperator, domain.RoleTrainee:
		default:
			return errBadRequest(c, "role must be SUPERVISOR, OPERATOR, or TRAINEE")
		}
		switch req.Period {
		case domain.PayDaily, domain.PayWeekly, domain.PayMonthly:
		default:
			return errBadRequest(c, "period must be DAILY, WEEKLY, or MONTHLY")
		}
		if req.Salary <= 0 {
			return errBadRequest(c, "salary must be positive")
		}

		member, err := deps.Payroll.Hire(c.Context(), c.Params("id"), req.RiderID, req.Role, req.Salary, req.Period)
		if err != nil {
			if _, lookupErr := deps.Systems.Get(c.Params("id")); lookupErr != nil {
				return serviceError(c, lookupErr)
			}
			return errConflict(c, err.Error())
		}
		return c.Status(201).JSON(member)
	}
}

// ListStaffHandler returns the staff roster of a system.
func ListStaffHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sys, err := deps.Systems.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(deps.Payroll.ListBySystem(sys.ID))
	}
}

// GetStaffHandler returns one staff member.
func GetStaffHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		member, err := deps.Payroll.Member(c.Params("id"), c.Params("rider"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(member)
	}
}

// DismissStaffHandler removes a rider from a system's staff roster.
func DismissStaffHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Payroll.Dismiss(c.Context(), c.Params("id"), c.Params("rider")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(204)
	}
}

// StartShiftHandler clocks a staff member in.
func StartShiftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		shift, err := deps.Payroll.StartShift(c.Context(), c.Params("id"), c.Params("rider"))
		if err != nil {
			if errors.Is(err, usecases.ErrUnknownStaff) {
				return errNotFound(c, err.Error())
			}
			return errConflict(c, err.Error())
		}
		return c.Status(201).JSON(shift)
	}
}

// EndShiftHandler clocks a staff member out and queues their shift pay.
func EndShiftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payment, err := deps.Payroll.EndShift(c.Context(), c.Params("id"), c.Params("rider"))
		if err != nil {
			if errors.Is(err, usecases.ErrUnknownStaff) {
				return errNotFound(c, err.Error())
			}
			return errConflict(c, err.Error())
		}
		metrics.StaffPaymentsTotal.WithLabelValues(payment.SystemID, string(payment.Kind)).Inc()
		return c.JSON(payment)
	}
}

// UpdatePerformanceHandler records a staff member's evaluated metrics.
func UpdatePerformanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var perf domain.Performance
		if err := c.BodyParser(&perf); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		perf.RiderID = c.Params("rider")
		deps.Payroll.UpdatePerformance(c.Context(), perf)
		return c.JSON(deps.Payroll.PerformanceOf(perf.RiderID))
	}
}

// GetPerformanceHandler returns a staff member's tracked metrics.
func GetPerformanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Payroll.PerformanceOf(c.Params("rider")))
	}
}

// PendingPaymentsHandler lists the payments queued for a rider.
func PendingPaymentsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Payroll.PendingFor(c.Params("id")))
	}
}

// ConnectHandler marks a rider online and flushes their queued payments.
func ConnectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Presence.Connect(c.Context(), c.Params("id"))
		return c.JSON(fiber.Map{
			"rider_id": c.Params("id"),
			"online":   true,
		})
	}
}

// DisconnectHandler marks a rider offline, force-closing any open journey.
func DisconnectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Presence.Disconnect(c.Context(), c.Params("id"))
		return c.JSON(fiber.Map{
			"rider_id": c.Params("id"),
			"online":   false,
		})
	}
}
