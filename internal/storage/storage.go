package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"whirlpools/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by Commit when a record changed since it was loaded.
// The whole changeset is rejected; callers reload and retry.
var ErrConflict = errors.New("conflict")

// Store loads pool state and applies changesets atomically.
// Loaded records are copies; changes are visible only after Commit.
type Store interface {
	LoadWhirlpool(ctx context.Context, address common.Hash) (*model.Whirlpool, error)
	LoadTickArray(ctx context.Context, address common.Hash) (*model.TickArray, error)
	LoadTokenAccount(ctx context.Context, address common.Hash) (*model.TokenAccount, error)
	Commit(ctx context.Context, cs Changeset) error
	Close() error
}

// Changeset is the set of records written by one Commit.
type Changeset struct {
	Whirlpools    []model.Whirlpool
	TickArrays    []model.TickArray
	TokenAccounts []model.TokenAccount

	// Loaded holds records as they were read before being changed. A written
	// pool or token account with a loaded counterpart is only stored when
	// the stored record still equals it.
	LoadedWhirlpools    []model.Whirlpool
	LoadedTokenAccounts []model.TokenAccount
}

// LoadedWhirlpool returns the loaded state of the pool at address, if any.
func (c Changeset) LoadedWhirlpool(address common.Hash) (model.Whirlpool, bool) {
	for _, pool := range c.LoadedWhirlpools {
		if pool.Address == address {
			return pool, true
		}
	}
	return model.Whirlpool{}, false
}

// LoadedTokenAccount returns the loaded state of the account at address, if any.
func (c Changeset) LoadedTokenAccount(address common.Hash) (model.TokenAccount, bool) {
	for _, account := range c.LoadedTokenAccounts {
		if account.Address == address {
			return account, true
		}
	}
	return model.TokenAccount{}, false
}

func (c Changeset) Empty() bool {
	return len(c.Whirlpools) == 0 && len(c.TickArrays) == 0 && len(c.TokenAccounts) == 0
}

// IsConflict reports whether err wraps ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Journal is a sink for swap records.
type Journal interface {
	PutSwapBatch(records []model.SwapRecord) error
}

// TickArrayKey is the address a tick array is stored under.
func TickArrayKey(ta *model.TickArray) common.Hash {
	return model.TickArrayAddress(ta.Whirlpool, ta.StartTickIndex)
}
