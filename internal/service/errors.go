// Package service implements the booking core: interval resolution,
// fare aggregation, availability counting, the seat allocation
// transaction, the order lifecycle and the expiry reclaimer.  The
// sentinel errors below form the failure taxonomy of the whole core;
// callers discriminate with errors.Is and the HTTP layer maps them to
// response statuses.
package service

import "errors"

// Input/validation errors.  Surfaced immediately, never retried.
var (
	// ErrStationNotOnRoute is returned when an interval endpoint does
	// not appear in the train's stop sequence.
	ErrStationNotOnRoute = errors.New("station not on route")

	// ErrInvalidDirection is returned when the origin is at or after
	// the destination in the stop sequence.
	ErrInvalidDirection = errors.New("origin must precede destination")

	// ErrUnsupportedFareClass is returned when a requested fare class
	// is unknown or has no positive price on the requested interval.
	ErrUnsupportedFareClass = errors.New("unsupported fare class")

	// ErrPassengerNotOwned is returned when a ticket line names a
	// passenger that does not exist or belongs to another user.
	ErrPassengerNotOwned = errors.New("passenger not found or not owned by user")
)

// Data-integrity errors.  Reference data is incomplete; never silently
// defaulted.
var (
	// ErrFareDataMissing is returned when an adjacent segment of a
	// resolved interval has no fare row.  The wrapped message names the
	// exact segment.
	ErrFareDataMissing = errors.New("fare data missing")

	// ErrTrainNotFound is returned when the train number is unknown or
	// has no stop sequence.
	ErrTrainNotFound = errors.New("train not found")
)

// Capacity errors.  Expected and frequent; reported per fare class.
var (
	// ErrSoldOut is returned when no physical seat of the requested
	// class is free across the whole interval.  A lost seat race
	// surfaces the same way: from the loser's perspective the seat is
	// gone.
	ErrSoldOut = errors.New("sold out")
)

// State errors.  User-facing; never retried automatically.
var (
	// ErrOrderNotFound is returned when the order does not exist or is
	// not visible to the caller.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderExpired is returned when pay is attempted after the
	// payment deadline.
	ErrOrderExpired = errors.New("order expired")

	// ErrInvalidOrderStatus is returned when a lifecycle operation is
	// attempted on an order in the wrong state.
	ErrInvalidOrderStatus = errors.New("invalid order status")

	// ErrCancellationLimitExceeded is returned when the user has
	// reached the daily cancellation cap.  The rejected order keeps its
	// seats.
	ErrCancellationLimitExceeded = errors.New("daily cancellation limit exceeded")
)
