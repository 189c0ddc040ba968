// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package batch

import (
	"sync"

	"github.com/pkg/errors"
)

// cachedBatch implements the CachedBatch interface. Writes land in the
// topmost cache layer; every snapshot pushes a fresh layer so a revert can
// drop all layers above the snapshot in one step.
type cachedBatch struct {
	lock sync.RWMutex
	*baseKVStoreBatch
	caches     []KVStoreCache // snapshot layers, latest at the end
	batchShots []int          // write queue size at the time of each snapshot
}

// NewCachedBatch returns a new cached batch buffer
func NewCachedBatch() CachedBatch {
	return &cachedBatch{
		baseKVStoreBatch: &baseKVStoreBatch{},
		caches:           []KVStoreCache{NewKVCache()},
		batchShots:       make([]int, 0),
	}
}

func (cb *cachedBatch) Put(namespace string, key, value []byte, errorFormat string, errorArgs ...interface{}) {
	cb.lock.Lock()
	defer cb.lock.Unlock()
	cb.currentCache().Write(&kvCacheKey{namespace, string(key)}, value)
	cb.baseKVStoreBatch.batch(Put, namespace, key, value, errorFormat, errorArgs...)
}

func (cb *cachedBatch) Delete(namespace string, key []byte, errorFormat string, errorArgs ...interface{}) {
	cb.lock.Lock()
	defer cb.lock.Unlock()
	cb.currentCache().Evict(&kvCacheKey{namespace, string(key)})
	cb.baseKVStoreBatch.batch(Delete, namespace, key, nil, errorFormat, errorArgs...)
}

func (cb *cachedBatch) Get(namespace string, key []byte) ([]byte, error) {
	cb.lock.RLock()
	defer cb.lock.RUnlock()
	cacheKey := kvCacheKey{namespace, string(key)}
	var (
		v   []byte
		err error
	)
	for i := len(cb.caches) - 1; i >= 0; i-- {
		if v, err = cb.caches[i].Read(&cacheKey); errors.Cause(err) != ErrNotExist {
			return v, err
		}
	}
	return nil, ErrNotExist
}

func (cb *cachedBatch) Snapshot() int {
	cb.lock.Lock()
	defer cb.lock.Unlock()
	defer func() {
		cb.caches = append(cb.caches, NewKVCache())
	}()
	cb.batchShots = append(cb.batchShots, cb.baseKVStoreBatch.Size())
	return len(cb.batchShots) - 1
}

func (cb *cachedBatch) Revert(snapshot int) error {
	cb.lock.Lock()
	defer cb.lock.Unlock()
	if snapshot < 0 || snapshot >= len(cb.batchShots) {
		return errors.Wrapf(ErrOutOfBound, "invalid snapshot number = %d, total number of snapshots = %d", snapshot, len(cb.batchShots))
	}
	cb.batchShots = cb.batchShots[:snapshot+1]
	cb.baseKVStoreBatch.truncate(cb.batchShots[snapshot])
	cb.caches = cb.caches[:snapshot+1]
	cb.caches = append(cb.caches, NewKVCache())
	return nil
}

func (cb *cachedBatch) ResetSnapshots() {
	cb.lock.Lock()
	defer cb.lock.Unlock()
	cb.batchShots = make([]int, 0)
	if len(cb.caches) > 1 {
		// merge all layers into the base cache
		if err := cb.caches[0].Append(cb.caches[1:]...); err != nil {
			panic(err)
		}
		cb.caches = cb.caches[:1]
	}
}

func (cb *cachedBatch) Clear() {
	cb.lock.Lock()
	defer cb.lock.Unlock()
	cb.clear()
}

func (cb *cachedBatch) ClearAndUnlock() {
	defer cb.lock.Unlock()
	cb.clear()
}

func (cb *cachedBatch) Lock() { cb.lock.Lock() }

func (cb *cachedBatch) Unlock() { cb.lock.Unlock() }

func (cb *cachedBatch) Size() int {
	cb.lock.RLock()
	defer cb.lock.RUnlock()
	return cb.baseKVStoreBatch.Size()
}

func (cb *cachedBatch) Entry(i int) (*WriteInfo, error) {
	cb.lock.RLock()
	defer cb.lock.RUnlock()
	return cb.baseKVStoreBatch.Entry(i)
}

func (cb *cachedBatch) currentCache() KVStoreCache {
	return cb.caches[len(cb.caches)-1]
}

func (cb *cachedBatch) clear() {
	cb.baseKVStoreBatch.Clear()
	cb.caches = []KVStoreCache{NewKVCache()}
	cb.batchShots = make([]int, 0)
}
