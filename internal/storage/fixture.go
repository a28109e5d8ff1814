package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sugawarayuuta/sonnet"

	"whirlpools/internal/model"
)

// Fixture is the seed file format: full pools and token accounts, and tick
// arrays listed sparsely by their initialized ticks.
type Fixture struct {
	Whirlpools    []model.Whirlpool    `json:"whirlpools"`
	TokenAccounts []model.TokenAccount `json:"token_accounts"`
	TickArrays    []TickArrayFixture   `json:"tick_arrays"`
}

type TickArrayFixture struct {
	Whirlpool      common.Hash       `json:"whirlpool"`
	StartTickIndex int32             `json:"start_tick_index"`
	Ticks          []model.TickEntry `json:"ticks"`
}

// ReadFixture decodes a fixture file.
func ReadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := sonnet.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

// Changeset builds the records a fixture describes. Tick arrays may belong
// to pools of the fixture or to pools already in store.
func (f Fixture) Changeset(ctx context.Context, store Store) (Changeset, error) {
	pools := make(map[common.Hash]*model.Whirlpool, len(f.Whirlpools))
	for i := range f.Whirlpools {
		if err := f.Whirlpools[i].Validate(); err != nil {
			return Changeset{}, fmt.Errorf("whirlpool %d: %w", i, err)
		}
		pools[f.Whirlpools[i].Address] = &f.Whirlpools[i]
	}

	cs := Changeset{
		Whirlpools:    f.Whirlpools,
		TokenAccounts: f.TokenAccounts,
	}
	for i, arr := range f.TickArrays {
		pool, ok := pools[arr.Whirlpool]
		if !ok {
			if store == nil {
				return Changeset{}, fmt.Errorf("tick array %d: whirlpool %s: %w", i, arr.Whirlpool, ErrNotFound)
			}
			loaded, err := store.LoadWhirlpool(ctx, arr.Whirlpool)
			if err != nil {
				return Changeset{}, fmt.Errorf("tick array %d: %w", i, err)
			}
			pool = loaded
			pools[arr.Whirlpool] = loaded
		}

		var ta model.TickArray
		if err := ta.Initialize(pool, arr.StartTickIndex); err != nil {
			return Changeset{}, fmt.Errorf("tick array %d: %w", i, err)
		}
		for _, entry := range arr.Ticks {
			if err := ta.UpdateTick(entry.TickIndex, pool.TickSpacing, model.TickUpdateFrom(entry.Tick)); err != nil {
				return Changeset{}, fmt.Errorf("tick array %d tick %d: %w", i, entry.TickIndex, err)
			}
		}
		cs.TickArrays = append(cs.TickArrays, ta)
	}
	return cs, nil
}
