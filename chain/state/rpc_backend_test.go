package state

import (
	"context"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/medusa-geth/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prePopulatedStorage is an offline-only "eth" RPC service used for testing, serving storage from memory and counting
// the requests it receives.
type prePopulatedStorage struct {
	lock         sync.Mutex
	storageSlots map[common.Address]map[common.Hash]common.Hash
	requests     int
	blocks       []string
}

func (p *prePopulatedStorage) GetStorageAt(address common.Address, slot common.Hash, block string) (hexutil.Bytes, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.requests++
	p.blocks = append(p.blocks, block)

	data := p.storageSlots[address][slot]
	return data.Bytes(), nil
}

// storageFixture starts an RPC server backed by prePopulatedStorage.
type storageFixture struct {
	Storage *prePopulatedStorage
	Server  *httptest.Server

	ContractAddress common.Address
	PopulatedKey    common.Hash
	PopulatedData   common.Hash
	EmptyKey        common.Hash
}

func newStorageFixture(t *testing.T) *storageFixture {
	contractAddress := common.BytesToAddress([]byte{5, 5, 5, 5})
	populatedKey := common.HexToHash("0xaaaaaaaa")
	populatedData := common.HexToHash("0xdeadbeef")

	storage := &prePopulatedStorage{
		storageSlots: map[common.Address]map[common.Hash]common.Hash{
			contractAddress: {populatedKey: populatedData},
		},
	}

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", storage))
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})

	return &storageFixture{
		Storage:         storage,
		Server:          httpServer,
		ContractAddress: contractAddress,
		PopulatedKey:    populatedKey,
		PopulatedData:   populatedData,
		EmptyKey:        common.HexToHash("0xbbbbbbbbb"),
	}
}

// TestRPCBackendGetStorageAt verifies slots are fetched at the configured block height and cached afterwards.
func TestRPCBackendGetStorageAt(t *testing.T) {
	fixture := newStorageFixture(t)
	backend, err := NewRPCBackendNoPersistence(fixture.Server.URL, 15, 2)
	require.NoError(t, err)
	defer backend.Close()

	data, err := backend.GetStorageAt(context.Background(), fixture.ContractAddress, fixture.PopulatedKey)
	require.NoError(t, err)
	assert.EqualValues(t, fixture.PopulatedData, data)

	data, err = backend.GetStorageAt(context.Background(), fixture.ContractAddress, fixture.EmptyKey)
	require.NoError(t, err)
	assert.EqualValues(t, common.Hash{}, data)

	// Cached slots are not requested again
	data, err = backend.GetStorageAt(context.Background(), fixture.ContractAddress, fixture.PopulatedKey)
	require.NoError(t, err)
	assert.EqualValues(t, fixture.PopulatedData, data)
	assert.EqualValues(t, 2, fixture.Storage.requests)
	assert.EqualValues(t, []string{"0xf", "0xf"}, fixture.Storage.blocks)
}

// TestRPCBackendPersistence verifies slots fetched by one backend are served from disk to the next.
func TestRPCBackendPersistence(t *testing.T) {
	fixture := newStorageFixture(t)
	cacheDir, err := os.MkdirTemp("", "test-*")
	require.NoError(t, err)
	defer os.RemoveAll(cacheDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := NewRPCBackend(ctx, fixture.Server.URL, 1, 1, cacheDir)
	require.NoError(t, err)
	_, err = backend.GetStorageAt(ctx, fixture.ContractAddress, fixture.PopulatedKey)
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	backend, err = NewRPCBackend(ctx, fixture.Server.URL, 1, 1, cacheDir)
	require.NoError(t, err)
	defer backend.Close()
	data, err := backend.GetStorageAt(ctx, fixture.ContractAddress, fixture.PopulatedKey)
	require.NoError(t, err)
	assert.EqualValues(t, fixture.PopulatedData, data)
	assert.EqualValues(t, 1, fixture.Storage.requests)
}

// TestRPCBackendUnreachable verifies a backend cannot be created for an unsupported endpoint.
func TestRPCBackendUnreachable(t *testing.T) {
	_, err := NewRPCBackendNoPersistence("unsupported://endpoint", 1, 1)
	assert.Error(t, err)

	_, err = NewRPCBackendNoPersistence("http://127.0.0.1:1", 1, 0)
	assert.Error(t, err)
}

// TestEmptyBackend verifies every slot of the empty backend reads as zero.
func TestEmptyBackend(t *testing.T) {
	data, err := EmptyBackend{}.GetStorageAt(context.Background(), common.Address{1}, common.Hash{2})
	assert.NoError(t, err)
	assert.EqualValues(t, common.Hash{}, data)
}
