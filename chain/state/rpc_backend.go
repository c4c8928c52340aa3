package state

import (
	"context"

	"github.com/crytic/medusa-debugger/chain/state/cache"
	"github.com/crytic/medusa-debugger/chain/state/rpc"
	"github.com/crytic/medusa-debugger/logging"
	"github.com/crytic/medusa-debugger/logging/colors"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/pkg/errors"
)

/*
RPCBackend defines a StorageBackend for fetching storage from a remote RPC server. It is locked to a single block
height, and caches data with no expiry.
*/
type RPCBackend struct {
	clientPool *rpc.ClientPool
	height     string

	cache cache.SlotCache

	// logger describes the RPCBackend's log object that can be used to log important events
	logger *logging.Logger
}

// NewRPCBackend creates an RPCBackend whose cache is persisted to cacheDir.
func NewRPCBackend(
	ctx context.Context,
	url string,
	height uint64,
	poolSize uint,
	cacheDir string) (*RPCBackend, error) {
	slotCache, err := cache.NewPersistentCache(ctx, cacheDir, url, height)
	if err != nil {
		return nil, err
	}
	return newRPCBackend(url, height, poolSize, slotCache)
}

// NewRPCBackendNoPersistence creates an RPCBackend whose cache lives in memory only.
func NewRPCBackendNoPersistence(
	url string,
	height uint64,
	poolSize uint) (*RPCBackend, error) {
	return newRPCBackend(url, height, poolSize, cache.NewNonPersistentCache())
}

func newRPCBackend(url string, height uint64, poolSize uint, slotCache cache.SlotCache) (*RPCBackend, error) {
	clientPool, err := rpc.NewClientPool(url, poolSize)
	if err != nil {
		_ = slotCache.Close()
		return nil, err
	}

	backend := &RPCBackend{
		clientPool: clientPool,
		height:     hexutil.Uint64(height).String(),
		cache:      slotCache,
		logger:     logging.GlobalLogger.NewSubLogger("module", logging.STATE_SERVICE),
	}
	backend.logger.Info("Reading storage from ", colors.Cyan, clientPool.Endpoint(), colors.Reset, " at block ", height)
	return backend, nil
}

/*
GetStorageAt returns data stored in the remote RPC for the given address/slot.
Note that Ethereum RPC will return zero for slots that have never been written to or are associated with undeployed
contracts.
Errors may be network errors or a context cancelled error when the session is shutting down.
*/
func (q *RPCBackend) GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	data, err := q.cache.GetSlotData(addr, slot)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		q.logger.Warn("Failed to read slot cache, querying the RPC server instead", err)
	}

	var result hexutil.Bytes
	err = q.clientPool.ExecuteRequestBlocking(ctx, &result, "eth_getStorageAt", addr, slot, q.height)
	if err != nil {
		return common.Hash{}, err
	}
	data = common.BytesToHash(result)
	q.logger.Debug("Fetched storage slot ", slot.Hex(), " of ", addr.Hex(), " at block ", q.height)
	return data, q.cache.WriteSlotData(addr, slot, data)
}

// Close releases the connections and the cache of the backend.
func (q *RPCBackend) Close() error {
	q.clientPool.Close()
	return q.cache.Close()
}
