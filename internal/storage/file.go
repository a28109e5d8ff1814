package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sugawarayuuta/sonnet"

	"whirlpools/internal/model"
)

// FileStore keeps state in memory and persists every commit as one JSON
// snapshot. An empty path keeps state in memory only.
type FileStore struct {
	path string

	mu         sync.RWMutex
	whirlpools map[common.Hash]model.Whirlpool
	tickArrays map[common.Hash]model.TickArray
	accounts   map[common.Hash]model.TokenAccount
}

type snapshot struct {
	Whirlpools    []model.Whirlpool    `json:"whirlpools"`
	TickArrays    []string             `json:"tick_arrays"`
	TokenAccounts []model.TokenAccount `json:"token_accounts"`
	UpdatedAt     string               `json:"updated_at"`
}

// OpenFileStore loads the snapshot at path if it exists.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:       path,
		whirlpools: make(map[common.Hash]model.Whirlpool),
		tickArrays: make(map[common.Hash]model.TickArray),
		accounts:   make(map[common.Hash]model.TokenAccount),
	}
	if path == "" {
		return s, nil
	}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("snapshot path is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := sonnet.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	for _, pool := range snap.Whirlpools {
		s.whirlpools[pool.Address] = pool
	}
	for i, encoded := range snap.TickArrays {
		raw, err := hexutil.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode tick array %d: %w", i, err)
		}
		var ta model.TickArray
		if err := ta.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("decode tick array %d: %w", i, err)
		}
		s.tickArrays[TickArrayKey(&ta)] = ta
	}
	for _, account := range snap.TokenAccounts {
		s.accounts[account.Address] = account
	}
	return s, nil
}

func (s *FileStore) LoadWhirlpool(ctx context.Context, address common.Hash) (*model.Whirlpool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, ok := s.whirlpools[address]
	if !ok {
		return nil, fmt.Errorf("whirlpool %s: %w", address, ErrNotFound)
	}
	return &pool, nil
}

func (s *FileStore) LoadTickArray(ctx context.Context, address common.Hash) (*model.TickArray, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ta, ok := s.tickArrays[address]
	if !ok {
		return nil, fmt.Errorf("tick array %s: %w", address, ErrNotFound)
	}
	return &ta, nil
}

func (s *FileStore) LoadTokenAccount(ctx context.Context, address common.Hash) (*model.TokenAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[address]
	if !ok {
		return nil, fmt.Errorf("token account %s: %w", address, ErrNotFound)
	}
	return &account, nil
}

// Commit applies cs. When a loaded record is stale or the snapshot cannot be
// written nothing is applied.
func (s *FileStore) Commit(ctx context.Context, cs Changeset) error {
	if cs.Empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pool := range cs.Whirlpools {
		loaded, ok := cs.LoadedWhirlpool(pool.Address)
		if ok && s.whirlpools[pool.Address] != loaded {
			return fmt.Errorf("whirlpool %s: %w", pool.Address, ErrConflict)
		}
	}
	for _, account := range cs.TokenAccounts {
		loaded, ok := cs.LoadedTokenAccount(account.Address)
		if ok && s.accounts[account.Address] != loaded {
			return fmt.Errorf("token account %s: %w", account.Address, ErrConflict)
		}
	}

	whirlpools := maps.Clone(s.whirlpools)
	tickArrays := maps.Clone(s.tickArrays)
	accounts := maps.Clone(s.accounts)
	for _, pool := range cs.Whirlpools {
		whirlpools[pool.Address] = pool
	}
	for _, ta := range cs.TickArrays {
		tickArrays[TickArrayKey(&ta)] = ta
	}
	for _, account := range cs.TokenAccounts {
		accounts[account.Address] = account
	}

	if s.path != "" {
		if err := writeSnapshot(s.path, whirlpools, tickArrays, accounts); err != nil {
			return err
		}
	}

	s.whirlpools = whirlpools
	s.tickArrays = tickArrays
	s.accounts = accounts
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func writeSnapshot(path string, whirlpools map[common.Hash]model.Whirlpool, tickArrays map[common.Hash]model.TickArray, accounts map[common.Hash]model.TokenAccount) error {
	snap := snapshot{UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	for _, key := range sortedKeys(whirlpools) {
		snap.Whirlpools = append(snap.Whirlpools, whirlpools[key])
	}
	for _, key := range sortedKeys(tickArrays) {
		ta := tickArrays[key]
		raw, err := ta.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode tick array %s: %w", key, err)
		}
		snap.TickArrays = append(snap.TickArrays, hexutil.Encode(raw))
	}
	for _, key := range sortedKeys(accounts) {
		snap.TokenAccounts = append(snap.TokenAccounts, accounts[key])
	}

	data, err := sonnet.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[common.Hash]V) []common.Hash {
	keys := make([]common.Hash, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b common.Hash) int {
		return bytes.Compare(a[:], b[:])
	})
	return keys
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
