package http_test

import (
	"encoding/json"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestZZDebugPending(t *testing.T) {
	api := newTestAPI(t)
	st, b := api.do(t, "POST", "/v1/systems/metro/staff", fiber.Map{
		"rider_id": "gina", "role": "OPERATOR", "salary": 192, "period": "DAILY",
	})
	t.Logf("hire: %d %s", st, b)
	st, b = api.do(t, "POST", "/v1/systems/metro/staff/gina/shift", nil)
	t.Logf("start: %d %s", st, b)
	st, b = api.do(t, "DELETE", "/v1/systems/metro/staff/gina/shift", nil)
	t.Logf("end: %d %s", st, b)
	pf := api.deps.Payroll.PendingFor("gina")
	t.Logf("direct PendingFor: %d %+v", len(pf), pf)
	st, b = api.do(t, "GET", "/v1/riders/gina/pending-payments", nil)
	t.Logf("http pending: %d %s", st, b)
	j, _ := json.Marshal(pf)
	t.Logf("marshal: %s", j)
}
