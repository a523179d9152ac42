package domain

import "time"

// StatsKind is the entity class a statistics roll-up is keyed by.
type StatsKind string

const (
	StatsSystem  StatsKind = "system"
	StatsStation StatsKind = "station"
	StatsRoute   StatsKind = "route"
)

// Stats is the cumulative roll-up for one (kind, id) key: revenue,
// transaction count, per-type sub-counts, and an hour-of-day histogram.
// Refunds subtract from all of these, so after charge plus full refund the
// roll-up nets back to its prior state.
type Stats struct {
	Kind         StatsKind `json:"kind"`
	ID           string    `json:"id"`
	Revenue      float64   `json:"revenue"`
	Transactions int64     `json:"transactions"`
	Entries      int64     `json:"entries"`
	Exits        int64     `json:"exits"`
	FlatRates    int64     `json:"flat_rates"`
	Hourly       [24]int64 `json:"hourly"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AverageFare is the mean collected fare, zero when nothing was collected.
func (s Stats) AverageFare() float64 {
	if s.Transactions == 0 {
		return 0
	}
	return s.Revenue / float64(s.Transactions)
}
