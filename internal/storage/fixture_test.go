package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"whirlpools/internal/errcode"
	"whirlpools/internal/model"
)

func TestFixtureChangeset(t *testing.T) {
	ctx := context.Background()
	f, err := ReadFixture(filepath.Join("testdata", "fixture.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if len(f.Whirlpools) != 1 || len(f.TokenAccounts) != 4 || len(f.TickArrays) != 2 {
		t.Fatalf("unexpected fixture shape: %d %d %d", len(f.Whirlpools), len(f.TokenAccounts), len(f.TickArrays))
	}

	cs, err := f.Changeset(ctx, nil)
	if err != nil {
		t.Fatalf("changeset: %v", err)
	}
	pool := cs.Whirlpools[0]
	if pool.Liquidity.Big().Int64() != 1_000_000 || pool.TickSpacing != 8 {
		t.Fatalf("unexpected pool: %+v", pool)
	}

	upper := cs.TickArrays[0]
	if upper.Whirlpool != pool.Address || upper.StartTickIndex != 0 {
		t.Fatalf("unexpected array: start %d", upper.StartTickIndex)
	}
	if got := upper.InitializedTicks(8); len(got) != 1 || got[0] != 8 {
		t.Fatalf("unexpected initialized ticks: %v", got)
	}
	lower := cs.TickArrays[1]
	tick, err := lower.GetTick(-8, 8)
	if err != nil {
		t.Fatalf("get tick: %v", err)
	}
	if !tick.Initialized || tick.LiquidityNet.String() != "-500" {
		t.Fatalf("unexpected tick -8: %+v", tick)
	}

	store, err := OpenFileStore("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Commit(ctx, cs); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := store.LoadTickArray(ctx, TickArrayKey(&lower)); err != nil {
		t.Fatalf("load seeded array: %v", err)
	}
}

func TestFixturePoolFromStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenFileStore("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seed := fixtureChangeset()
	if err := store.Commit(ctx, seed); err != nil {
		t.Fatalf("commit: %v", err)
	}

	pool := seed.Whirlpools[0].Address
	f := Fixture{TickArrays: []TickArrayFixture{{Whirlpool: pool, StartTickIndex: 704}}}
	cs, err := f.Changeset(ctx, store)
	if err != nil {
		t.Fatalf("changeset: %v", err)
	}
	if len(cs.TickArrays) != 1 || cs.TickArrays[0].Whirlpool != pool {
		t.Fatalf("unexpected arrays: %+v", cs.TickArrays)
	}

	missing := Fixture{TickArrays: []TickArrayFixture{{Whirlpool: common.HexToHash("0x99")}}}
	if _, err := missing.Changeset(ctx, store); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := missing.Changeset(ctx, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found without store, got %v", err)
	}
}

func TestFixtureRejectsBadTicks(t *testing.T) {
	ctx := context.Background()
	pool := fixtureChangeset().Whirlpools[0]

	badStart := Fixture{
		Whirlpools: []model.Whirlpool{pool},
		TickArrays: []TickArrayFixture{{Whirlpool: pool.Address, StartTickIndex: 1}},
	}
	if _, err := badStart.Changeset(ctx, nil); !errors.Is(err, errcode.InvalidStartTick) {
		t.Fatalf("expected InvalidStartTick, got %v", err)
	}

	flat := pool
	flat.TickSpacing = 0
	zeroSpacing := Fixture{Whirlpools: []model.Whirlpool{flat}}
	if _, err := zeroSpacing.Changeset(ctx, nil); !errors.Is(err, errcode.InvalidTickSpacing) {
		t.Fatalf("expected InvalidTickSpacing, got %v", err)
	}

	outside := Fixture{
		Whirlpools: []model.Whirlpool{pool},
		TickArrays: []TickArrayFixture{{
			Whirlpool:      pool.Address,
			StartTickIndex: 0,
			Ticks:          []model.TickEntry{{TickIndex: 704, Tick: model.Tick{Initialized: true}}},
		}},
	}
	if _, err := outside.Changeset(ctx, nil); !errors.Is(err, errcode.TickNotFound) {
		t.Fatalf("expected TickNotFound, got %v", err)
	}
}
