package deck

import "errors"

// Sentinel kinds for deck errors.
var (
	ErrPoolTooSmall = errors.New("card pool smaller than a sequence")
)
