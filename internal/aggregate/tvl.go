package aggregate

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	tvlMethodVault = "vault_balance"
	tvlMethodNone  = "unavailable"
)

// fetchTVL reads the current vault balances of a pool from the store.
func (a *Aggregator) fetchTVL(ctx context.Context, whirlpool common.Hash) (uint64, uint64, string, error) {
	if a.store == nil {
		return 0, 0, tvlMethodNone, fmt.Errorf("store is nil")
	}
	pool, err := a.store.LoadWhirlpool(ctx, whirlpool)
	if err != nil {
		return 0, 0, tvlMethodNone, err
	}
	vaultA, err := a.store.LoadTokenAccount(ctx, pool.TokenVaultA)
	if err != nil {
		return 0, 0, tvlMethodNone, fmt.Errorf("vault a: %w", err)
	}
	vaultB, err := a.store.LoadTokenAccount(ctx, pool.TokenVaultB)
	if err != nil {
		return 0, 0, tvlMethodNone, fmt.Errorf("vault b: %w", err)
	}
	return vaultA.Amount, vaultB.Amount, tvlMethodVault, nil
}
