package state

import (
	"context"

	"github.com/crytic/medusa-geth/common"
)

// EmptyBackend is a StorageBackend for sessions without a storage source. Every slot reads as zero.
type EmptyBackend struct{}

func (d EmptyBackend) GetStorageAt(ctx context.Context, address common.Address, slot common.Hash) (common.Hash, error) {
	return common.Hash{}, nil
}

func (d EmptyBackend) Close() error {
	return nil
}
