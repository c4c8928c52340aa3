package cache

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
)

// ErrCacheMiss is returned when a slot is not present in a cache.
var ErrCacheMiss = errors.New("not found in cache")

// SlotCache stores storage slots fetched from a remote source, keyed by account address and slot.
type SlotCache interface {
	GetSlotData(addr common.Address, slot common.Hash) (common.Hash, error)
	WriteSlotData(addr common.Address, slot common.Hash, data common.Hash) error
	Close() error
}
