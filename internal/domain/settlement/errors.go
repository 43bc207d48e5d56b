package settlement

import "errors"

// Sentinel kinds for settlement errors.
var (
	ErrMonthNotSettled = errors.New("month not settled")
	ErrNotEligible     = errors.New("user not eligible for a reward")
	ErrContactRequired = errors.New("contact info required")
)
