package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"
	MetricTapsPerSec     = "fare.taps_per_second"

	// Correctness
	MetricLedgerUnsaved   = "ledger.unsaved_transactions"
	MetricJourneysExpired = "fare.journeys_force_closed"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricRevenue       = "business.revenue_collected"
	MetricRefundsIssued = "business.refunds_issued"
	MetricStaffPayments = "business.staff_payments"
)
