package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	httpadapter "github.com/emberline/faregate/internal/adapters/http"
	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/usecases"
)

// fakeEconomy is an in-memory rider account store.
type fakeEconomy struct {
	mu       sync.Mutex
	balances map[string]float64
}

func newFakeEconomy() *fakeEconomy {
	return &fakeEconomy{balances: make(map[string]float64)}
}

func (e *fakeEconomy) fund(riderID string, amount float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balances[riderID] += amount
}

func (e *fakeEconomy) Has(ctx context.Context, riderID string, amount float64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[riderID] >= amount, nil
}

func (e *fakeEconomy) Withdraw(ctx context.Context, riderID string, amount float64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.balances[riderID] < amount {
		return false, nil
	}
	e.balances[riderID] -= amount
	return true, nil
}

func (e *fakeEconomy) Deposit(ctx context.Context, riderID string, amount float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balances[riderID] += amount
	return nil
}

type testAPI struct {
	app     *fiber.App
	economy *fakeEconomy
	deps    *httpadapter.Dependencies
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	systems := usecases.NewSystemRegistry([]*domain.TransitSystem{
		{ID: "metro", Name: "City Metro", Fares: domain.DistanceFare{BaseRate: 1, PerUnit: 0.05}, MaxFare: 20},
		{ID: "bus", Name: "City Bus", Fares: domain.FlatFare{Amount: 2.75}, MaxFare: 10},
	})
	economy := newFakeEconomy()
	stations := usecases.NewStationService(systems, nil)
	routes := usecases.NewRouteService(systems, nil)
	gates := usecases.NewGateService(systems, stations, nil)
	fares := usecases.NewFareService()
	stats := usecases.NewStatsService(nil, routes)
	ledger := usecases.NewLedgerService(nil, economy, nil, stats)
	journeys := usecases.NewJourneyService(systems, stations, gates, fares, economy, ledger, nil, nil, nil, 2*time.Hour)
	payroll := usecases.NewPayrollService(systems, nil, economy, ledger, nil, nil)
	presence := usecases.NewPresenceService(payroll, journeys)

	deps := &httpadapter.Dependencies{
		Systems:  systems,
		Stations: stations,
		Routes:   routes,
		Gates:    gates,
		Fares:    fares,
		Journeys: journeys,
		Ledger:   ledger,
		Stats:    stats,
		Payroll:  payroll,
		Presence: presence,
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpadapter.SetupRoutes(app, deps)

	return &testAPI{app: app, economy: economy, deps: deps}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func (a *testAPI) createStation(t *testing.T, systemID, name string, pos domain.Position) string {
	t.Helper()
	status, body := a.do(t, "POST", "/v1/systems/"+systemID+"/stations", fiber.Map{
		"name":     name,
		"zone":     "1",
		"position": pos,
	})
	if status != 201 {
		t.Fatalf("create station %s: status %d: %s", name, status, body)
	}
	var st domain.Station
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode station: %v", err)
	}
	return st.ID
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(t, "GET", "/v1/health", nil)
	if status != 200 {
		t.Fatalf("health status = %d: %s", status, body)
	}

	// Readiness fails without a database.
	status, _ = api.do(t, "GET", "/v1/ready", nil)
	if status != 503 {
		t.Fatalf("ready status = %d, want 503 without a database", status)
	}
}

func TestListSystems(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(t, "GET", "/v1/systems", nil)
	if status != 200 {
		t.Fatalf("status = %d: %s", status, body)
	}

	var systems []map[string]interface{}
	if err := json.Unmarshal(body, &systems); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(systems) != 2 {
		t.Fatalf("got %d systems, want 2", len(systems))
	}
	// Sorted by ID: bus first, with its flat fare exposed.
	if systems[0]["id"] != "bus" {
		t.Errorf("first system = %v, want bus", systems[0]["id"])
	}
	if systems[0]["flat_fare"] != 2.75 {
		t.Errorf("bus flat_fare = %v, want 2.75", systems[0]["flat_fare"])
	}

	status, _ = api.do(t, "GET", "/v1/systems/tram", nil)
	if status != 404 {
		t.Errorf("unknown system status = %d, want 404", status)
	}
}

func TestStationLifecycle(t *testing.T) {
	api := newTestAPI(t)

	id := api.createStation(t, "metro", "City Hall", domain.Position{World: "overworld"})
	if id != "metro_city-hall" {
		t.Errorf("station ID = %q, want metro_city-hall", id)
	}

	// Duplicate name in the same system conflicts.
	status, _ := api.do(t, "POST", "/v1/systems/metro/stations", fiber.Map{
		"name": "City Hall",
	})
	if status != 409 {
		t.Errorf("duplicate station status = %d, want 409", status)
	}

	// Unknown system 404s.
	status, _ = api.do(t, "POST", "/v1/systems/tram/stations", fiber.Map{
		"name": "Nowhere",
	})
	if status != 404 {
		t.Errorf("unknown system status = %d, want 404", status)
	}

	// Patch status to maintenance.
	status, body := api.do(t, "PATCH", "/v1/stations/"+id, fiber.Map{
		"status": "MAINTENANCE",
	})
	if status != 200 {
		t.Fatalf("patch status = %d: %s", status, body)
	}
	var st domain.Station
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != domain.StationMaintenance {
		t.Errorf("station status = %s, want MAINTENANCE", st.Status)
	}

	status, _ = api.do(t, "PATCH", "/v1/stations/"+id, fiber.Map{
		"status": "BROKEN",
	})
	if status != 400 {
		t.Errorf("invalid status patch = %d, want 400", status)
	}

	// Delete and verify gone.
	status, _ = api.do(t, "DELETE", "/v1/stations/"+id, nil)
	if status != 204 {
		t.Errorf("delete status = %d, want 204", status)
	}
	status, _ = api.do(t, "GET", "/v1/stations/"+id, nil)
	if status != 404 {
		t.Errorf("get deleted station = %d, want 404", status)
	}
}

func TestStationPagination(t *testing.T) {
	api := newTestAPI(t)

	for i := 0; i < 5; i++ {
		api.createStation(t, "metro", fmt.Sprintf("Stop %d", i), domain.Position{World: "overworld", X: float64(i * 100)})
	}

	status, body := api.do(t, "GET", "/v1/systems/metro/stations?offset=2&limit=2", nil)
	if status != 200 {
		t.Fatalf("status = %d: %s", status, body)
	}

	var resp struct {
		Data       []domain.Station `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("page size = %d, want 2", len(resp.Data))
	}
	if resp.Pagination.Total != 5 {
		t.Errorf("total = %d, want 5", resp.Pagination.Total)
	}
}

func TestTapInTapOut(t *testing.T) {
	api := newTestAPI(t)
	api.economy.fund("alice", 50)

	from := api.createStation(t, "metro", "Downtown", domain.Position{World: "overworld"})
	to := api.createStation(t, "metro", "Airport", domain.Position{World: "overworld", X: 100})

	status, body := api.do(t, "POST", "/v1/taps/in", fiber.Map{
		"rider_id": "alice", "system_id": "metro", "station_id": from,
	})
	if status != 200 {
		t.Fatalf("tap-in status = %d: %s", status, body)
	}

	// The journey is now visible.
	status, _ = api.do(t, "GET", "/v1/riders/alice/journey", nil)
	if status != 200 {
		t.Errorf("open journey status = %d, want 200", status)
	}

	// A second tap-in conflicts.
	status, _ = api.do(t, "POST", "/v1/taps/in", fiber.Map{
		"rider_id": "alice", "system_id": "metro", "station_id": from,
	})
	if status != 409 {
		t.Errorf("double tap-in status = %d, want 409", status)
	}

	status, body = api.do(t, "POST", "/v1/taps/out", fiber.Map{
		"rider_id": "alice", "system_id": "metro", "station_id": to,
	})
	if status != 200 {
		t.Fatalf("tap-out status = %d: %s", status, body)
	}

	var result struct {
		Fare    float64             `json:"fare"`
		Charged *domain.Transaction `json:"charged"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 1.00 base + 0.05/unit over 100 units.
	if result.Fare != 6.00 {
		t.Errorf("fare = %.2f, want 6.00", result.Fare)
	}
	if result.Charged == nil || result.Charged.Type != domain.TxExit {
		t.Errorf("charged = %+v, want EXIT transaction", result.Charged)
	}

	// Journey closed, transactions visible.
	status, _ = api.do(t, "GET", "/v1/riders/alice/journey", nil)
	if status != 404 {
		t.Errorf("journey after tap-out = %d, want 404", status)
	}
	status, body = api.do(t, "GET", "/v1/riders/alice/transactions", nil)
	if status != 200 {
		t.Fatalf("transactions status = %d", status)
	}
	var txs []domain.Transaction
	if err := json.Unmarshal(body, &txs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
}

func TestTapInsufficientFunds(t *testing.T) {
	api := newTestAPI(t)

	st := api.createStation(t, "bus", "Terminal", domain.Position{World: "overworld"})

	// Flat-fare systems charge on tap-in; broke riders get a 402.
	status, _ := api.do(t, "POST", "/v1/taps/in", fiber.Map{
		"rider_id": "bob", "system_id": "bus", "station_id": st,
	})
	if status != 402 {
		t.Errorf("broke tap-in status = %d, want 402", status)
	}

	api.economy.fund("bob", 10)
	status, body := api.do(t, "POST", "/v1/taps/in", fiber.Map{
		"rider_id": "bob", "system_id": "bus", "station_id": st,
	})
	if status != 200 {
		t.Fatalf("funded tap-in status = %d: %s", status, body)
	}
	var result struct {
		Fare float64 `json:"fare"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Fare != 2.75 {
		t.Errorf("flat fare = %.2f, want 2.75", result.Fare)
	}
}

func TestGateTap(t *testing.T) {
	api := newTestAPI(t)
	api.economy.fund("carol", 50)

	st := api.createStation(t, "metro", "Harbor", domain.Position{World: "overworld"})

	status, body := api.do(t, "POST", "/v1/gates", fiber.Map{
		"id":         "gate-1",
		"station_id": st,
		"position":   domain.Position{World: "overworld", X: 1},
	})
	if status != 201 {
		t.Fatalf("register gate status = %d: %s", status, body)
	}

	status, body = api.do(t, "POST", "/v1/taps", fiber.Map{
		"rider_id": "carol", "gate_id": "gate-1",
	})
	if status != 200 {
		t.Fatalf("gate tap status = %d: %s", status, body)
	}

	// Disable the gate; taps now bounce.
	status, _ = api.do(t, "PATCH", "/v1/gates/gate-1", fiber.Map{"enabled": false})
	if status != 200 {
		t.Fatalf("disable gate status = %d", status)
	}
	status, _ = api.do(t, "POST", "/v1/taps", fiber.Map{
		"rider_id": "carol", "gate_id": "gate-1",
	})
	if status != 409 {
		t.Errorf("disabled gate tap status = %d, want 409", status)
	}
}

func TestRouteReorder(t *testing.T) {
	api := newTestAPI(t)

	s1 := api.createStation(t, "metro", "One", domain.Position{World: "overworld"})
	s2 := api.createStation(t, "metro", "Two", domain.Position{World: "overworld", X: 50})
	s3 := api.createStation(t, "metro", "Three", domain.Position{World: "overworld", X: 100})

	status, body := api.do(t, "POST", "/v1/systems/metro/routes", fiber.Map{"name": "Red Line"})
	if status != 201 {
		t.Fatalf("create route status = %d: %s", status, body)
	}
	var route domain.Route
	if err := json.Unmarshal(body, &route); err != nil {
		t.Fatalf("decode: %v", err)
	}

	for _, st := range []string{s1, s2, s3} {
		status, body = api.do(t, "POST", "/v1/routes/"+route.ID+"/stations", fiber.Map{"station_id": st})
		if status != 200 {
			t.Fatalf("add station %s status = %d: %s", st, status, body)
		}
	}

	// A non-permutation is rejected.
	status, _ = api.do(t, "PUT", "/v1/routes/"+route.ID+"/order", fiber.Map{
		"order": []string{s1, s2},
	})
	if status != 400 {
		t.Errorf("short reorder status = %d, want 400", status)
	}

	status, body = api.do(t, "PUT", "/v1/routes/"+route.ID+"/order", fiber.Map{
		"order": []string{s3, s1, s2},
	})
	if status != 200 {
		t.Fatalf("reorder status = %d: %s", status, body)
	}
	if err := json.Unmarshal(body, &route); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if route.Stations[0] != s3 {
		t.Errorf("first station = %s, want %s", route.Stations[0], s3)
	}
}

func TestRefundPermissions(t *testing.T) {
	api := newTestAPI(t)
	api.economy.fund("dave", 50)

	from := api.createStation(t, "metro", "East", domain.Position{World: "overworld"})
	to := api.createStation(t, "metro", "West", domain.Position{World: "overworld", X: 100})

	api.do(t, "POST", "/v1/taps/in", fiber.Map{
		"rider_id": "dave", "system_id": "metro", "station_id": from,
	})
	status, body := api.do(t, "POST", "/v1/taps/out", fiber.Map{
		"rider_id": "dave", "system_id": "metro", "station_id": to,
	})
	if status != 200 {
		t.Fatalf("tap-out status = %d: %s", status, body)
	}
	var result struct {
		Charged *domain.Transaction `json:"charged"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// A stranger cannot refund.
	status, _ = api.do(t, "POST", "/v1/transactions/"+result.Charged.ID+"/refund", fiber.Map{
		"actor_id": "stranger",
	})
	if status != 403 {
		t.Errorf("unauthorized refund status = %d, want 403", status)
	}

	// Hire a supervisor, who can.
	status, _ = api.do(t, "POST", "/v1/systems/metro/staff", fiber.Map{
		"rider_id": "eve", "role": "SUPERVISOR", "salary": 700, "period": "WEEKLY",
	})
	if status != 201 {
		t.Fatalf("hire status = %d", status)
	}

	status, body = api.do(t, "POST", "/v1/transactions/"+result.Charged.ID+"/refund", fiber.Map{
		"actor_id": "eve",
	})
	if status != 200 {
		t.Fatalf("refund status = %d: %s", status, body)
	}
	var refund domain.Transaction
	if err := json.Unmarshal(body, &refund); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if refund.Type != domain.TxRefund {
		t.Errorf("refund type = %s, want REFUND", refund.Type)
	}

	// A refund is not itself refundable.
	status, _ = api.do(t, "POST", "/v1/transactions/"+refund.ID+"/refund", fiber.Map{
		"actor_id": "eve",
	})
	if status == 200 {
		t.Error("refund of a refund succeeded, want failure")
	}
}

func TestStatsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.economy.fund("frank", 50)

	from := api.createStation(t, "metro", "North", domain.Position{World: "overworld"})
	to := api.createStation(t, "metro", "South", domain.Position{World: "overworld", X: 100})

	api.do(t, "POST", "/v1/taps/in", fiber.Map{
		"rider_id": "frank", "system_id": "metro", "station_id": from,
	})
	api.do(t, "POST", "/v1/taps/out", fiber.Map{
		"rider_id": "frank", "system_id": "metro", "station_id": to,
	})

	status, body := api.do(t, "GET", "/v1/systems/metro/stats", nil)
	if status != 200 {
		t.Fatalf("stats status = %d: %s", status, body)
	}
	var stats domain.Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Revenue != 6.00 {
		t.Errorf("revenue = %.2f, want 6.00", stats.Revenue)
	}
	if stats.Exits != 1 {
		t.Errorf("exits = %d, want 1", stats.Exits)
	}

	// Windowed variant replays the ledger.
	status, body = api.do(t, "GET", "/v1/systems/metro/stats?window=24h", nil)
	if status != 200 {
		t.Fatalf("windowed stats status = %d: %s", status, body)
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Revenue != 6.00 {
		t.Errorf("windowed revenue = %.2f, want 6.00", stats.Revenue)
	}

	status, _ = api.do(t, "GET", "/v1/systems/metro/stats?window=soon", nil)
	if status != 400 {
		t.Errorf("bad window status = %d, want 400", status)
	}
}

func TestGraphQLSystems(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(t, "POST", "/graphql", fiber.Map{
		"query": `{ systems { id name max_fare balance } }`,
	})
	if status != 200 {
		t.Fatalf("graphql status = %d: %s", status, body)
	}

	var resp struct {
		Data struct {
			Systems []struct {
				ID      string  `json:"id"`
				Balance float64 `json:"balance"`
			} `json:"systems"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Errors) > 0 {
		t.Fatalf("graphql errors: %v", resp.Errors)
	}
	if len(resp.Data.Systems) != 2 {
		t.Fatalf("got %d systems, want 2", len(resp.Data.Systems))
	}
}

func TestStaffShiftFlow(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do(t, "POST", "/v1/systems/metro/staff", fiber.Map{
		"rider_id": "gina", "role": "OPERATOR", "salary": 192, "period": "DAILY",
	})
	if status != 201 {
		t.Fatalf("hire status = %d", status)
	}

	status, _ = api.do(t, "POST", "/v1/systems/metro/staff/gina/shift", nil)
	if status != 201 {
		t.Fatalf("start shift status = %d", status)
	}

	// Double clock-in conflicts.
	status, _ = api.do(t, "POST", "/v1/systems/metro/staff/gina/shift", nil)
	if status != 409 {
		t.Errorf("double shift status = %d, want 409", status)
	}

	status, body := api.do(t, "DELETE", "/v1/systems/metro/staff/gina/shift", nil)
	if status != 200 {
		t.Fatalf("end shift status = %d: %s", status, body)
	}
	var payment domain.PendingPayment
	if err := json.Unmarshal(body, &payment); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payment.Kind != domain.PayShift {
		t.Errorf("payment kind = %s, want SHIFT_PAY", payment.Kind)
	}

	// The queued payment is visible for the rider.
	status, body = api.do(t, "GET", "/v1/riders/gina/pending-payments", nil)
	if status != 200 {
		t.Fatalf("pending status = %d", status)
	}
	var pending []domain.PendingPayment
	if err := json.Unmarshal(body, &pending); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("got %d pending payments, want 1", len(pending))
	}

	// Clock-outs for non-staff 404.
	status, _ = api.do(t, "DELETE", "/v1/systems/metro/staff/nobody/shift", nil)
	if status != 404 {
		t.Errorf("end shift for stranger = %d, want 404", status)
	}
}
