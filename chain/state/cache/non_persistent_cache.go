package cache

import (
	"sync"

	"github.com/crytic/medusa-geth/common"
)

// nonPersistentSlotCache provides a thread-safe cache for storing slots without persisting to disk.
type nonPersistentSlotCache struct {
	slotLock  sync.RWMutex
	slotCache map[common.Address]map[common.Hash]common.Hash
}

// NewNonPersistentCache creates a SlotCache which lives in memory only.
func NewNonPersistentCache() SlotCache {
	return newNonPersistentSlotCache()
}

func newNonPersistentSlotCache() *nonPersistentSlotCache {
	return &nonPersistentSlotCache{
		slotLock:  sync.RWMutex{},
		slotCache: make(map[common.Address]map[common.Hash]common.Hash),
	}
}

// GetSlotData checks if the specified data is stored in the cache, and if not, returns ErrCacheMiss.
func (s *nonPersistentSlotCache) GetSlotData(addr common.Address, slot common.Hash) (common.Hash, error) {
	s.slotLock.RLock()
	defer s.slotLock.RUnlock()
	if slotLookup, ok := s.slotCache[addr]; ok {
		if data, ok := slotLookup[slot]; ok {
			return data, nil
		}
	}
	return common.Hash{}, ErrCacheMiss
}

func (s *nonPersistentSlotCache) WriteSlotData(addr common.Address, slot common.Hash, data common.Hash) error {
	s.slotLock.Lock()
	defer s.slotLock.Unlock()

	if _, ok := s.slotCache[addr]; !ok {
		s.slotCache[addr] = make(map[common.Hash]common.Hash)
	}

	s.slotCache[addr][slot] = data
	return nil
}

func (s *nonPersistentSlotCache) Close() error {
	return nil
}
