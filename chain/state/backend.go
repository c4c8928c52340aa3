// Package state provides the account storage a debugging session reads when the trace did not capture a slot.
package state

import (
	"context"

	"github.com/crytic/medusa-geth/common"
)

/*
StorageBackend defines an interface for fetching account storage from a source other than the trace, such as a remote
RPC server.
*/
type StorageBackend interface {
	GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error)
	Close() error
}

var _ StorageBackend = (*EmptyBackend)(nil)
var _ StorageBackend = (*RPCBackend)(nil)
