// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package batch

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrAlreadyDeleted indicates the key has been deleted in the batch
	ErrAlreadyDeleted = errors.New("already deleted from DB")
	// ErrAlreadyExist indicates the key already exists
	ErrAlreadyExist = errors.New("already exist in DB")
	// ErrNotExist indicates the key does not exist
	ErrNotExist = errors.New("not exist in DB")
	// ErrOutOfBound indicates an out-of-bound access into the write queue
	ErrOutOfBound = errors.New("out of bound")
	// ErrUnexpectedType indicates an object of unexpected type
	ErrUnexpectedType = errors.New("unexpected type")
)

type (
	// KVStoreBatch defines an ordered buffer of write operations, committed
	// to the underlying store as one unit
	KVStoreBatch interface {
		// Lock locks the batch
		Lock()
		// Unlock unlocks the batch
		Unlock()
		// ClearAndUnlock clears the batch buffer and unlocks it
		ClearAndUnlock()
		// Put inserts a <key, value> record into the batch
		Put(string, []byte, []byte, string, ...interface{})
		// Delete deletes a record from the batch
		Delete(string, []byte, string, ...interface{})
		// Size returns the size of the batch
		Size() int
		// Entry returns the write at the given index
		Entry(int) (*WriteInfo, error)
		// SerializeQueue serializes the write queue
		SerializeQueue(WriteInfoFilter) []byte
		// ExcludeEntries returns a new batch without writes of the given type
		// in the given namespace ("" matches all namespaces)
		ExcludeEntries(string, WriteType) KVStoreBatch
		// Clear clears the batch buffer
		Clear()
		// Translate converts the batch with the given translation
		Translate(WriteInfoTranslate) KVStoreBatch
	}

	// CachedBatch adds a read cache and snapshot/revert atop KVStoreBatch
	CachedBatch interface {
		KVStoreBatch
		// Get retrieves a record from the cache
		Get(string, []byte) ([]byte, error)
		// Snapshot takes a snapshot of the current batch and returns its index
		Snapshot() int
		// Revert discards all writes made after the given snapshot was taken
		Revert(int) error
		// ResetSnapshots clears all taken snapshots
		ResetSnapshots()
	}

	// baseKVStoreBatch is the plain write-queue implementation
	baseKVStoreBatch struct {
		mutex      sync.RWMutex
		writeQueue []*WriteInfo
	}
)

// NewBatch returns a batch
func NewBatch() KVStoreBatch {
	return &baseKVStoreBatch{}
}

func (b *baseKVStoreBatch) Lock() { b.mutex.Lock() }

func (b *baseKVStoreBatch) Unlock() { b.mutex.Unlock() }

func (b *baseKVStoreBatch) ClearAndUnlock() {
	defer b.mutex.Unlock()
	b.writeQueue = nil
}

func (b *baseKVStoreBatch) Put(namespace string, key, value []byte, errorFormat string, errorArgs ...interface{}) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.batch(Put, namespace, key, value, errorFormat, errorArgs...)
}

func (b *baseKVStoreBatch) Delete(namespace string, key []byte, errorFormat string, errorArgs ...interface{}) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.batch(Delete, namespace, key, nil, errorFormat, errorArgs...)
}

func (b *baseKVStoreBatch) Size() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.writeQueue)
}

func (b *baseKVStoreBatch) Entry(index int) (*WriteInfo, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if index < 0 || index >= len(b.writeQueue) {
		return nil, errors.Wrap(ErrOutOfBound, "index out of range")
	}
	return b.writeQueue[index], nil
}

func (b *baseKVStoreBatch) SerializeQueue(filter WriteInfoFilter) []byte {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	bytes := make([]byte, 0)
	for _, wi := range b.writeQueue {
		if filter != nil && filter(wi) {
			continue
		}
		bytes = append(bytes, wi.Serialize()...)
	}
	return bytes
}

func (b *baseKVStoreBatch) ExcludeEntries(namespace string, writeType WriteType) KVStoreBatch {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	c := &baseKVStoreBatch{}
	for _, wi := range b.writeQueue {
		if wi.writeType == writeType && (namespace == "" || wi.namespace == namespace) {
			continue
		}
		c.writeQueue = append(c.writeQueue, wi)
	}
	return c
}

func (b *baseKVStoreBatch) Clear() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.writeQueue = nil
}

func (b *baseKVStoreBatch) Translate(wit WriteInfoTranslate) KVStoreBatch {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	c := &baseKVStoreBatch{}
	if wit == nil {
		c.writeQueue = make([]*WriteInfo, len(b.writeQueue))
		copy(c.writeQueue, b.writeQueue)
		return c
	}
	for _, wi := range b.writeQueue {
		if newWi := wit(wi); newWi != nil {
			c.writeQueue = append(c.writeQueue, newWi)
		}
	}
	return c
}

// batch appends to the write queue, callers must hold the lock
func (b *baseKVStoreBatch) batch(op WriteType, namespace string, key, value []byte, errorFormat string, errorArgs ...interface{}) {
	b.writeQueue = append(b.writeQueue, NewWriteInfo(op, namespace, key, value, errorFormat, errorArgs...))
}

func (b *baseKVStoreBatch) truncate(size int) {
	b.writeQueue = b.writeQueue[:size]
}
