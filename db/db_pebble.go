// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package db

import (
	"context"

	"github.com/cockroachdb/pebble"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/db/batch"
	"github.com/switchvault/switchvault-core/pkg/lifecycle"
)

const _prefixLength = 8

// PebbleDB is KVStore implementation based on pebble DB
type PebbleDB struct {
	lifecycle.Readiness
	db     *pebble.DB
	path   string
	config Config
}

// NewPebbleDB creates a new PebbleDB instance
func NewPebbleDB(cfg Config) *PebbleDB {
	return &PebbleDB{
		db:     nil,
		path:   cfg.DbPath,
		config: cfg,
	}
}

// Start opens the DB (creates new file if not existing yet)
func (b *PebbleDB) Start(_ context.Context) error {
	comparer := pebble.DefaultComparer
	comparer.Split = func(a []byte) int {
		return _prefixLength
	}
	db, err := pebble.Open(b.path, &pebble.Options{
		Comparer:           comparer,
		FormatMajorVersion: pebble.FormatPrePebblev1MarkedCompacted,
		ReadOnly:           b.config.ReadOnly,
	})
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	b.db = db
	return b.TurnOn()
}

// Stop closes the DB
func (b *PebbleDB) Stop(_ context.Context) error {
	if err := b.TurnOff(); err != nil {
		return err
	}
	if err := b.db.Close(); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

// Get retrieves a record
func (b *PebbleDB) Get(ns string, key []byte) ([]byte, error) {
	if !b.IsReady() {
		return nil, ErrDBNotStarted
	}
	v, closer, err := b.db.Get(nsKey(ns, key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, errors.Wrapf(ErrNotExist, "ns %s key = %x doesn't exist", ns, key)
		}
		return nil, err
	}
	val := make([]byte, len(v))
	copy(val, v)
	return val, closer.Close()
}

// Put inserts a <key, value> record
func (b *PebbleDB) Put(ns string, key, value []byte) (err error) {
	if !b.IsReady() {
		return ErrDBNotStarted
	}
	if err = b.db.Set(nsKey(ns, key), value, nil); err != nil {
		err = errors.Wrap(ErrIO, err.Error())
	}
	return
}

// Delete deletes a record
func (b *PebbleDB) Delete(ns string, key []byte) (err error) {
	if !b.IsReady() {
		return ErrDBNotStarted
	}
	if err = b.db.Delete(nsKey(ns, key), nil); err != nil {
		err = errors.Wrap(ErrIO, err.Error())
	}
	return
}

// WriteBatch commits a batch atomically
func (b *PebbleDB) WriteBatch(kvsb batch.KVStoreBatch) error {
	if !b.IsReady() {
		return ErrDBNotStarted
	}

	succeed := true
	kvsb.Lock()
	defer func() {
		if succeed {
			kvsb.ClearAndUnlock()
		} else {
			kvsb.Unlock()
		}
	}()

	ch := b.db.NewBatch()
	for i := 0; i < kvsb.Size(); i++ {
		write, err := kvsb.Entry(i)
		if err != nil {
			succeed = false
			return err
		}
		switch write.WriteType() {
		case batch.Put:
			if err = ch.Set(nsKey(write.Namespace(), write.Key()), write.Value(), nil); err != nil {
				succeed = false
				return errors.Wrapf(err, write.ErrorFormat(), write.ErrorArgs()...)
			}
		case batch.Delete:
			if err = ch.Delete(nsKey(write.Namespace(), write.Key()), nil); err != nil {
				succeed = false
				return errors.Wrapf(err, write.ErrorFormat(), write.ErrorArgs()...)
			}
		}
	}
	if err := ch.Commit(nil); err != nil {
		succeed = false
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

func nsKey(ns string, key []byte) []byte {
	nk := nsToPrefix(ns)
	return append(nk, key...)
}

func nsToPrefix(ns string) []byte {
	h := hash.Hash160b([]byte(ns))
	return h[:_prefixLength]
}
