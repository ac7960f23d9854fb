package domain

import "errors"

var (
	// ErrInvalidCoordinate is fatal to the single calculation that produced it.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrGeocodeUnavailable means the geocoder could not be reached in time.
	// The resolver treats it as a fallthrough signal.
	ErrGeocodeUnavailable = errors.New("geocode unavailable")

	// ErrGeocodeNotFound means the geocoder answered with no match.
	ErrGeocodeNotFound = errors.New("geocode not found")

	// ErrStoreUnavailable is recoverable by retrying the call.
	// Authorization never transitions when it is returned.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrPreconditionViolated marks programmer errors such as estimating
	// a trip without destinations.
	ErrPreconditionViolated = errors.New("precondition violated")

	ErrClientNotFound        = errors.New("client not found")
	ErrDecisionNotFound      = errors.New("authorization decision not found")
	ErrInvalidTransition     = errors.New("invalid authorization transition")
	ErrStaleDecision         = errors.New("authorization decision is stale; resubmit the draft")
	ErrJustificationRequired = errors.New("override justification must not be empty")
)
