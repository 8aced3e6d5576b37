// Package errs defines the error taxonomy shared by the room coordinator,
// the termination orchestrator and the HTTP layer. Callers classify with
// errors.Is and translate to wire codes via Code.
package errs

import "errors"

var (
	// ErrNotFound: occurrence, schedule or registration does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotAllowed: wrong role, banned or inactive registration.
	ErrNotAllowed = errors.New("not allowed")
	// ErrNotInSchedule: caller has no registration for the schedule at all.
	ErrNotInSchedule = errors.New("not in schedule")
	// ErrNotStarted / ErrMeetingEnded / ErrWaiting: temporal and lobby gates.
	ErrNotStarted   = errors.New("meeting has not started yet")
	ErrMeetingEnded = errors.New("meeting already ended")
	ErrWaiting      = errors.New("waiting for host")

	// ErrRateLimited: the caller is sending faster than the room allows.
	ErrRateLimited = errors.New("rate limited")

	ErrAlreadyExists    = errors.New("already exists")
	ErrStoreUnavailable = errors.New("session store unavailable")
	ErrValidation       = errors.New("validation error")
)

// Code returns the stable wire code for err, or "INTERNAL" for anything
// outside the taxonomy. These codes are part of the client contract
// (joinDenied / endRoomDenied payloads) and must not change.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrNotAllowed):
		return "NOT_ALLOWED"
	case errors.Is(err, ErrNotInSchedule):
		return "NOT_IN_SCHEDULE"
	case errors.Is(err, ErrNotStarted):
		return "NOT_STARTED"
	case errors.Is(err, ErrMeetingEnded):
		return "ENDED"
	case errors.Is(err, ErrWaiting):
		return "WAITING"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, ErrAlreadyExists):
		return "ALREADY_EXISTS"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	default:
		return "INTERNAL"
	}
}
