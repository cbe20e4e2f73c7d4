// Package staking serves the earn surface: liquidity pools and user
// pool shares. Creating staking positions lives in the ledger, since
// it is a balance movement.
package staking

import (
	"context"

	"shibau-trading/internal/model"
	"shibau-trading/internal/store"
)

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) Pools(ctx context.Context) ([]model.LiquidityPool, error) {
	return s.store.ListPools(ctx)
}

func (s *Service) Pool(ctx context.Context, id string) (*model.LiquidityPool, error) {
	return s.store.GetPool(ctx, id)
}

func (s *Service) UserLiquidity(ctx context.Context, userID string) ([]model.UserLiquidity, error) {
	return s.store.ListUserLiquidity(ctx, userID)
}
