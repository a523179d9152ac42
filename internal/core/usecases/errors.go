package usecases

import "errors"

// Sentinel errors returned by the fare services. Handlers map these to
// response codes; everything else is treated as an internal failure.
var (
	ErrUnknownSystem  = errors.New("unknown transit system")
	ErrUnknownStation = errors.New("unknown station")
	ErrUnknownGate    = errors.New("unknown gate")
	ErrUnknownRoute   = errors.New("unknown route")
	ErrUnknownStaff   = errors.New("unknown staff member")
	ErrNotFound       = errors.New("not found")

	// ErrJourneyOpen rejects a tap-in while the rider already has an open
	// journey.
	ErrJourneyOpen = errors.New("journey already open")
	// ErrNoOpenJourney rejects a tap-out with nothing to close.
	ErrNoOpenJourney = errors.New("no open journey")
	// ErrSystemMismatch rejects a tap-out against a different system than
	// the one the journey was opened in.
	ErrSystemMismatch = errors.New("journey belongs to a different system")

	// ErrStationClosed rejects taps at stations that are not ACTIVE and at
	// disabled gates.
	ErrStationClosed = errors.New("station not accepting riders")

	// ErrInsufficientFunds is a declined charge, not a validation failure.
	// State is left unchanged: the journey stays open, the payment stays
	// queued.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotPermutation rejects a route reorder that adds or removes
	// stations instead of only rearranging them.
	ErrNotPermutation = errors.New("reorder must be a permutation of the existing stations")
)
