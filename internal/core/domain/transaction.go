package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxEntry            TransactionType = "ENTRY"
	TxExit             TransactionType = "EXIT"
	TxFlatRate         TransactionType = "FLAT_RATE"
	TxRefund           TransactionType = "REFUND"
	TxStaffPayment     TransactionType = "STAFF_PAYMENT"
	TxInterchangeEntry TransactionType = "INTERCHANGE_ENTRY"
	TxInterchangeExit  TransactionType = "INTERCHANGE_EXIT"
)

// Sentinel from-station values for charges that are not tied to a real
// station (from-station is required on every transaction).
const (
	StationMaxFareCharge = "MAX_FARE_CHARGE"
	StationStaffPayment  = "STAFF_PAYMENT"
)

// BalanceSign is the effect a transaction type has on the owning system's
// balance: fare-collecting types add, balance-depleting types subtract,
// interchange markers are neutral.
func (t TransactionType) BalanceSign() float64 {
	switch t {
	case TxEntry, TxExit, TxFlatRate:
		return 1
	case TxRefund, TxStaffPayment:
		return -1
	default:
		return 0
	}
}

// Collecting reports whether the type represents fare revenue.
func (t TransactionType) Collecting() bool { return t.BalanceSign() > 0 }

// Transaction is one immutable ledger entry. Refunds are new transactions
// referencing the original's amount and stations, never mutations.
type Transaction struct {
	ID          string          `json:"id"`
	RiderID     string          `json:"rider_id"`
	SystemID    string          `json:"system_id"`
	FromStation string          `json:"from_station"`
	ToStation   string          `json:"to_station,omitempty"` // empty for flat-rate/single-tap charges
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Timestamp   time.Time       `json:"timestamp"`
}

// SentinelStation reports whether id is one of the non-station sentinels.
func SentinelStation(id string) bool {
	return id == StationMaxFareCharge || id == StationStaffPayment
}

// NewID returns a random 32-hex-char identifier, used for transactions and
// queued payments.
func NewID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
