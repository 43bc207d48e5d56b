package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrUndeliverable = errors.New("notice undeliverable")
)
