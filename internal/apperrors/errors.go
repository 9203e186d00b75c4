// Package apperrors defines the error kinds surfaced by the booking core.
// Callers branch on these sentinels; every kind keeps a distinct message.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidInterval is returned when a requested interval has
	// start >= end.
	ErrInvalidInterval = errors.New("invalid interval: start must be before end")

	// ErrOutsideAvailabilityWindow is returned when the requested interval
	// falls outside the spot's declared days or daily time window.
	ErrOutsideAvailabilityWindow = errors.New("requested time is outside the spot's availability window")

	// ErrSpotUnavailable is returned when the spot is flagged unavailable
	// (maintenance or delisted).
	ErrSpotUnavailable = errors.New("spot is currently unavailable for booking")

	// ErrSlotConflict is returned when another reservation already holds an
	// overlapping interval. Routine under concurrency, not a defect.
	ErrSlotConflict = errors.New("slot already reserved for an overlapping time")

	// ErrInvalidTransition is returned when a lifecycle transition is
	// requested between states with no edge in the state machine.
	ErrInvalidTransition = errors.New("invalid reservation state transition")

	// ErrStaleState is returned when a compare-and-swap transition finds the
	// stored state no longer matches the expected one. The caller must
	// re-fetch before deciding anything.
	ErrStaleState = errors.New("reservation state changed concurrently")

	// ErrNotFound is returned when no reservation or spot exists for the
	// given identifier.
	ErrNotFound = errors.New("not found")

	// ErrCancellationWindowClosed is returned when a cancellation arrives
	// too late for the caller's role (after the cutoff, or on an active
	// booking without admin override).
	ErrCancellationWindowClosed = errors.New("cancellation window closed for this reservation")

	// ErrNotAllowed is returned when the caller's role does not permit the
	// requested action regardless of timing.
	ErrNotAllowed = errors.New("caller is not allowed to perform this action")
)

// StatusFor maps a booking-core error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, ErrOutsideAvailabilityWindow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrSpotUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrSlotConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrStaleState):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCancellationWindowClosed):
		return http.StatusConflict
	case errors.Is(err, ErrNotAllowed):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
