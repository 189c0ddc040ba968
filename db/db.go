// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package db provides the namespaced key/value persistence engines backing
// the state store.
package db

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/db/batch"
	"github.com/switchvault/switchvault-core/pkg/lifecycle"
)

var (
	// ErrIO indicates the generic error of DB I/O operation
	ErrIO = errors.New("DB I/O operation error")
	// ErrNotExist indicates that the key does not exist
	ErrNotExist = errors.New("not exist in DB")
	// ErrDBNotStarted represents the error when a db has not started
	ErrDBNotStarted = errors.New("db has not started")
	// ErrInvalidEngine indicates an unsupported engine name in the config
	ErrInvalidEngine = errors.New("invalid DB engine")
)

// KVStore is a namespaced key-value store supporting batched writes
type KVStore interface {
	lifecycle.StartStopper
	// Put insert or update a record identified by (namespace, key)
	Put(string, []byte, []byte) error
	// Get gets a record by (namespace, key)
	Get(string, []byte) ([]byte, error)
	// Delete deletes a record by (namespace, key)
	Delete(string, []byte) error
	// WriteBatch commits a batch atomically
	WriteBatch(batch.KVStoreBatch) error
}

// NewKVStore creates a KVStore instance per the configured engine
func NewKVStore(cfg Config) (KVStore, error) {
	switch cfg.Engine {
	case "", EngineBolt:
		return NewBoltDB(cfg), nil
	case EnginePebble:
		return NewPebbleDB(cfg), nil
	case EngineMemory:
		return NewMemKVStore(), nil
	default:
		return nil, errors.Wrapf(ErrInvalidEngine, "engine = %s", cfg.Engine)
	}
}

// memKVStore is the in-memory implementation of KVStore for testing purpose
type memKVStore struct {
	data   *sync.Map
	bucket *sync.Map
}

// NewMemKVStore instantiates an in-memory KV store
func NewMemKVStore() KVStore {
	return &memKVStore{
		bucket: &sync.Map{},
		data:   &sync.Map{},
	}
}

func (m *memKVStore) Start(_ context.Context) error { return nil }

func (m *memKVStore) Stop(_ context.Context) error { return nil }

// Put inserts a <key, value> record
func (m *memKVStore) Put(namespace string, key, value []byte) error {
	_, _ = m.bucket.LoadOrStore(namespace, struct{}{})
	m.data.Store(namespace+keyDelimiter+string(key), value)
	return nil
}

// Get retrieves a record
func (m *memKVStore) Get(namespace string, key []byte) ([]byte, error) {
	if _, ok := m.bucket.Load(namespace); !ok {
		return nil, errors.Wrapf(ErrNotExist, "namespace = %x doesn't exist", []byte(namespace))
	}
	value, _ := m.data.Load(namespace + keyDelimiter + string(key))
	if value != nil {
		return value.([]byte), nil
	}
	return nil, errors.Wrapf(ErrNotExist, "key = %x doesn't exist", key)
}

// Delete deletes a record
func (m *memKVStore) Delete(namespace string, key []byte) error {
	m.data.Delete(namespace + keyDelimiter + string(key))
	return nil
}

// WriteBatch commits a batch
func (m *memKVStore) WriteBatch(b batch.KVStoreBatch) error {
	succeed := true
	b.Lock()
	defer func() {
		if succeed {
			b.ClearAndUnlock()
		} else {
			b.Unlock()
		}
	}()
	for i := 0; i < b.Size(); i++ {
		write, err := b.Entry(i)
		if err != nil {
			succeed = false
			return err
		}
		switch write.WriteType() {
		case batch.Put:
			if err := m.Put(write.Namespace(), write.Key(), write.Value()); err != nil {
				succeed = false
				return err
			}
		case batch.Delete:
			if err := m.Delete(write.Namespace(), write.Key()); err != nil {
				succeed = false
				return err
			}
		}
	}
	return nil
}

const keyDelimiter = "."
