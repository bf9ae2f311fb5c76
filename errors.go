package throttle

import "errors"

var (
	// ErrMalformedPayload is returned when a job payload cannot be decoded
	// or is missing the class/jid fields needed for a throttle decision.
	// Callers on the fetch path treat it as "not throttled".
	ErrMalformedPayload = errors.New("throttle: malformed job payload")
)
