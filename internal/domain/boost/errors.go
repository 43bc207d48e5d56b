package boost

import "errors"

// Sentinel kinds for boost errors.
var (
	ErrPurchaseInvalid = errors.New("purchase token invalid")
)
