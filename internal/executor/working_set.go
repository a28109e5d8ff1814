package executor

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"whirlpools/internal/model"
	"whirlpools/internal/storage"
)

// workingSet caches the token accounts of one operation so that every hop
// sees the balances left by the previous one. It remembers the records as
// loaded so the commit only applies while the store still holds them.
type workingSet struct {
	store storage.Store

	mu          sync.Mutex
	accounts    map[common.Hash]*model.TokenAccount
	loaded      map[common.Hash]model.TokenAccount
	pools       []*model.Whirlpool
	loadedPools map[common.Hash]model.Whirlpool
}

func newWorkingSet(store storage.Store) *workingSet {
	return &workingSet{
		store:       store,
		accounts:    make(map[common.Hash]*model.TokenAccount),
		loaded:      make(map[common.Hash]model.TokenAccount),
		loadedPools: make(map[common.Hash]model.Whirlpool),
	}
}

func (ws *workingSet) whirlpool(ctx context.Context, address common.Hash) (*model.Whirlpool, error) {
	pool, err := ws.store.LoadWhirlpool(ctx, address)
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	ws.loadedPools[address] = *pool
	ws.mu.Unlock()
	return pool, nil
}

func (ws *workingSet) account(ctx context.Context, address common.Hash) (*model.TokenAccount, error) {
	ws.mu.Lock()
	cached, ok := ws.accounts[address]
	ws.mu.Unlock()
	if ok {
		return cached, nil
	}

	loaded, err := ws.store.LoadTokenAccount(ctx, address)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if cached, ok := ws.accounts[address]; ok {
		return cached, nil
	}
	ws.accounts[address] = loaded
	ws.loaded[address] = *loaded
	return loaded, nil
}

func (ws *workingSet) addPool(pool *model.Whirlpool) {
	ws.mu.Lock()
	ws.pools = append(ws.pools, pool)
	ws.mu.Unlock()
}

func (ws *workingSet) changeset() storage.Changeset {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	var cs storage.Changeset
	for _, pool := range ws.pools {
		cs.Whirlpools = append(cs.Whirlpools, *pool)
		if loaded, ok := ws.loadedPools[pool.Address]; ok {
			cs.LoadedWhirlpools = append(cs.LoadedWhirlpools, loaded)
		}
	}
	keys := make([]common.Hash, 0, len(ws.accounts))
	for key := range ws.accounts {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b common.Hash) int {
		return bytes.Compare(a[:], b[:])
	})
	for _, key := range keys {
		cs.TokenAccounts = append(cs.TokenAccounts, *ws.accounts[key])
		cs.LoadedTokenAccounts = append(cs.LoadedTokenAccounts, ws.loaded[key])
	}
	return cs
}
