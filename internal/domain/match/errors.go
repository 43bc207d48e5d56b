package match

import "errors"

// Sentinel kinds for matching errors. Each maps to one protocol error code
// at the transport edge.
var (
	ErrInvalidSubmission = errors.New("invalid icebreaker submission")
	ErrUnverified        = errors.New("user not verified")
	ErrDailyLimit        = errors.New("daily match limit reached")
	ErrAlreadyQueued     = errors.New("user already queued or in a session")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidCard       = errors.New("card not part of this match")
)
