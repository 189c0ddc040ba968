// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/switchvault/switchvault-core/db/batch"
)

var (
	_bucket1 = "ns1"
	_bucket2 = "ns2"
	_testK   = [3][]byte{[]byte("key_1"), []byte("key_2"), []byte("key_3")}
	_testV   = [3][]byte{[]byte("value_1"), []byte("value_2"), []byte("value_3")}
)

func readWriteDelete(kv KVStore, t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	require.NoError(kv.Start(ctx))
	defer func() {
		require.NoError(kv.Stop(ctx))
	}()

	_, err := kv.Get(_bucket1, _testK[0])
	require.Equal(ErrNotExist, errors.Cause(err))

	require.NoError(kv.Put(_bucket1, _testK[0], _testV[0]))
	v, err := kv.Get(_bucket1, _testK[0])
	require.NoError(err)
	require.Equal(_testV[0], v)

	// same key in another namespace is a distinct record
	_, err = kv.Get(_bucket2, _testK[0])
	require.Equal(ErrNotExist, errors.Cause(err))
	require.NoError(kv.Put(_bucket2, _testK[0], _testV[1]))
	v, err = kv.Get(_bucket2, _testK[0])
	require.NoError(err)
	require.Equal(_testV[1], v)

	// overwrite
	require.NoError(kv.Put(_bucket1, _testK[0], _testV[2]))
	v, err = kv.Get(_bucket1, _testK[0])
	require.NoError(err)
	require.Equal(_testV[2], v)

	require.NoError(kv.Delete(_bucket1, _testK[0]))
	_, err = kv.Get(_bucket1, _testK[0])
	require.Equal(ErrNotExist, errors.Cause(err))
}

func writeBatch(kv KVStore, t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	require.NoError(kv.Start(ctx))
	defer func() {
		require.NoError(kv.Stop(ctx))
	}()

	b := batch.NewBatch()
	for i := 0; i < 3; i++ {
		b.Put(_bucket1, _testK[i], _testV[i], "failed to put %x", _testK[i])
	}
	b.Delete(_bucket1, _testK[1], "failed to delete %x", _testK[1])
	require.NoError(kv.WriteBatch(b))
	// batch is cleared after a successful commit
	require.Zero(b.Size())

	v, err := kv.Get(_bucket1, _testK[0])
	require.NoError(err)
	require.Equal(_testV[0], v)
	v, err = kv.Get(_bucket1, _testK[2])
	require.NoError(err)
	require.Equal(_testV[2], v)
	_, err = kv.Get(_bucket1, _testK[1])
	require.Equal(ErrNotExist, errors.Cause(err))
}

func TestKVStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		readWriteDelete(NewMemKVStore(), t)
	})
	t.Run("bolt", func(t *testing.T) {
		cfg := DefaultConfig
		cfg.DbPath = filepath.Join(t.TempDir(), "test.db")
		readWriteDelete(NewBoltDB(cfg), t)
	})
	t.Run("pebble", func(t *testing.T) {
		cfg := DefaultConfig
		cfg.Engine = EnginePebble
		cfg.DbPath = filepath.Join(t.TempDir(), "test-pebble")
		readWriteDelete(NewPebbleDB(cfg), t)
	})
}

func TestWriteBatch(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		writeBatch(NewMemKVStore(), t)
	})
	t.Run("bolt", func(t *testing.T) {
		cfg := DefaultConfig
		cfg.DbPath = filepath.Join(t.TempDir(), "test.db")
		writeBatch(NewBoltDB(cfg), t)
	})
	t.Run("pebble", func(t *testing.T) {
		cfg := DefaultConfig
		cfg.Engine = EnginePebble
		cfg.DbPath = filepath.Join(t.TempDir(), "test-pebble")
		writeBatch(NewPebbleDB(cfg), t)
	})
}

func TestNewKVStore(t *testing.T) {
	require := require.New(t)

	kv, err := NewKVStore(Config{Engine: EngineMemory})
	require.NoError(err)
	require.NotNil(kv)

	_, err = NewKVStore(Config{Engine: "leveldb"})
	require.Equal(ErrInvalidEngine, errors.Cause(err))

	// operations before Start fail closed
	cfg := DefaultConfig
	cfg.DbPath = filepath.Join(t.TempDir(), "test.db")
	bolt := NewBoltDB(cfg)
	require.Equal(ErrDBNotStarted, bolt.Put(_bucket1, _testK[0], _testV[0]))
	_, err = bolt.Get(_bucket1, _testK[0])
	require.Equal(ErrDBNotStarted, err)
}
