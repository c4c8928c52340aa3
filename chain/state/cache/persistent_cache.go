package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/crytic/medusa-debugger/logging"
	"github.com/crytic/medusa-debugger/utils"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// cacheBucket is the name of the bbolt bucket slots are stored in.
var cacheBucket = []byte("slots")

// persistentCache provides a thread-safe cache for storing slots that persists the cache to disk. Reads are served
// from memory first.
type persistentCache struct {
	memCache *nonPersistentSlotCache
	db       *bbolt.DB

	pendingWriteMutex sync.Mutex
	pendingWrites     []pendingWrite
	flushThreshold    int

	closeOnce sync.Once
	closeErr  error
}

type pendingWrite struct {
	key   []byte
	value []byte
}

// NewPersistentCache creates a SlotCache backed by a bbolt database in cacheDir. Each RPC endpoint and block height
// has its own database file. The database is closed when ctx is cancelled or Close is called.
func NewPersistentCache(ctx context.Context, cacheDir string, rpcAddr string, height uint64) (SlotCache, error) {
	return newPersistentCache(ctx, cacheDir, rpcAddr, height)
}

func newPersistentCache(ctx context.Context, cacheDir string, rpcAddr string, height uint64) (*persistentCache, error) {
	if err := utils.MakeDirectory(cacheDir); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}
	cacheFile := filepath.Join(cacheDir, getCacheFilename(rpcAddr, height))
	db, err := bbolt.Open(cacheFile, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open slot cache %s", cacheFile)
	}

	// create the bucket if it doesn't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WithStack(err)
	}

	p := &persistentCache{
		memCache:          newNonPersistentSlotCache(),
		db:                db,
		flushThreshold:    25,
		pendingWrites:     []pendingWrite{},
		pendingWriteMutex: sync.Mutex{},
	}

	// close db if context cancelled
	go func() {
		<-ctx.Done()
		err := p.Close()
		if err != nil {
			logging.GlobalLogger.Error("Failed to close slot cache", err)
		}
	}()

	return p, nil
}

func (p *persistentCache) getFromPersist(key []byte) ([]byte, error) {
	var value []byte
	err := p.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(cacheBucket).Get(key)
		if data != nil {
			// bbolt values are only valid within the transaction
			value = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not read slot cache")
	}
	return value, nil
}

func (p *persistentCache) writeToPersist(key []byte, value []byte) error {
	p.pendingWriteMutex.Lock()
	defer p.pendingWriteMutex.Unlock()

	p.pendingWrites = append(p.pendingWrites, pendingWrite{key: key, value: value})
	if len(p.pendingWrites) >= p.flushThreshold {
		return p.flushWrites()
	}
	return nil
}

// flushWrites writes all pending writes to disk. The caller must hold pendingWriteMutex.
func (p *persistentCache) flushWrites() error {
	if len(p.pendingWrites) == 0 {
		return nil
	}
	err := p.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(cacheBucket)
		for _, pw := range p.pendingWrites {
			if err := bucket.Put(pw.key, pw.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "could not write slot cache")
	}
	p.pendingWrites = p.pendingWrites[:0]
	return nil
}

func (p *persistentCache) GetSlotData(addr common.Address, slot common.Hash) (common.Hash, error) {
	data, err := p.memCache.GetSlotData(addr, slot)
	if err == nil {
		return data, nil
	}

	// check persistent cache
	value, err := p.getFromPersist(slotKey(addr, slot))
	if err != nil {
		return common.Hash{}, err
	}
	if value == nil {
		return common.Hash{}, ErrCacheMiss
	}
	data = common.BytesToHash(value)
	return data, p.memCache.WriteSlotData(addr, slot, data)
}

func (p *persistentCache) WriteSlotData(addr common.Address, slot common.Hash, data common.Hash) error {
	err := p.memCache.WriteSlotData(addr, slot, data)
	if err != nil {
		return err
	}
	return p.writeToPersist(slotKey(addr, slot), data.Bytes())
}

// Close flushes pending writes and closes the database. Subsequent calls return the result of the first.
func (p *persistentCache) Close() error {
	p.closeOnce.Do(func() {
		p.pendingWriteMutex.Lock()
		err := p.flushWrites()
		p.pendingWriteMutex.Unlock()
		if closeErr := p.db.Close(); err == nil && closeErr != nil {
			err = errors.WithStack(closeErr)
		}
		p.closeErr = err
	})
	return p.closeErr
}

// slotKey returns the database key of a slot: the account address followed by the slot.
func slotKey(addr common.Address, slot common.Hash) []byte {
	key := make([]byte, 0, common.AddressLength+common.HashLength)
	key = append(key, addr[:]...)
	return append(key, slot[:]...)
}

// getCacheFilename returns the database file name for an RPC endpoint and block height.
func getCacheFilename(rpcAddr string, height uint64) string {
	h := crypto.Keccak256([]byte(rpcAddr))
	return fmt.Sprintf("%d-%x.dat", height, h[0:10])
}
