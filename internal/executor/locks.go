package executor

import (
	"bytes"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// addressLocks serializes operations touching the same pool or token account.
type addressLocks struct {
	mu    sync.Mutex
	locks map[common.Hash]*sync.Mutex
}

func newAddressLocks() *addressLocks {
	return &addressLocks{locks: make(map[common.Hash]*sync.Mutex)}
}

func (l *addressLocks) get(address common.Hash) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[address]
	if !ok {
		m = &sync.Mutex{}
		l.locks[address] = m
	}
	return m
}

// lock acquires the locks of all addresses in ascending address order and
// returns the matching unlock. Zero addresses are skipped.
func (l *addressLocks) lock(addresses ...common.Hash) func() {
	sorted := slices.Clone(addresses)
	slices.SortFunc(sorted, func(a, b common.Hash) int {
		return bytes.Compare(a[:], b[:])
	})
	sorted = slices.Compact(sorted)
	if len(sorted) > 0 && sorted[0] == (common.Hash{}) {
		sorted = sorted[1:]
	}

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, address := range sorted {
		m := l.get(address)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
