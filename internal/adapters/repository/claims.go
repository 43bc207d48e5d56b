package repository

import (
	"context"
	"sync"

	"github.com/emberlink/ember/internal/domain/model"
)

type claimKey struct {
	userID string
	year   int
	month  int
}

// memClaims implements ClaimStore in memory.
type memClaims struct {
	mu     sync.RWMutex
	claims map[claimKey]model.RewardClaim
}

// NewMemClaimStore creates an empty in-memory claim store.
func NewMemClaimStore() ClaimStore {
	return &memClaims{claims: make(map[claimKey]model.RewardClaim)}
}

func (c *memClaims) CreateOrGet(_ context.Context, claim model.RewardClaim) (model.RewardClaim, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := claimKey{userID: claim.UserID, year: claim.Year, month: claim.Month}
	if existing, ok := c.claims[k]; ok {
		return existing, false, nil
	}
	c.claims[k] = claim
	return claim, true, nil
}

func (c *memClaims) Get(_ context.Context, userID string, year, month int) (model.RewardClaim, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	claim, ok := c.claims[claimKey{userID: userID, year: year, month: month}]
	if !ok {
		return model.RewardClaim{}, ErrClaimNotFound
	}
	return claim, nil
}
