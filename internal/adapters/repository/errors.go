package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEntryNotFound = errors.New("leaderboard entry not found")
	ErrClaimNotFound = errors.New("reward claim not found")
)
