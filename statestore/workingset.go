// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package statestore

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/switchvault/switchvault-core/db"
	"github.com/switchvault/switchvault-core/db/batch"
	"github.com/switchvault/switchvault-core/pkg/util/byteutil"
	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/state"
)

var (
	// ErrCommitted indicates reuse of an already committed working set
	ErrCommitted = errors.New("working set already committed")
	// ErrReadOnly indicates a write into a read-only working set
	ErrReadOnly = errors.New("working set is read only")

	_stateStoreMtc = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchvault_state_store",
			Help: "state store operation counter.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(_stateStoreMtc)
}

// WorkingSet implements protocol.StateManager atop a cached batch. All
// mutations buffer in the batch; Commit writes them with the new height in
// one KVStore transaction.
type WorkingSet struct {
	height    uint64
	kv        db.KVStore
	buffer    batch.CachedBatch
	committed bool
	readOnly  bool
}

func newWorkingSet(height uint64, kv db.KVStore) *WorkingSet {
	return &WorkingSet{
		height: height,
		kv:     kv,
		buffer: batch.NewCachedBatch(),
	}
}

// Height returns the height the working set operates at
func (ws *WorkingSet) Height() (uint64, error) {
	return ws.height, nil
}

// State reads a state record into s
func (ws *WorkingSet) State(s interface{}, opts ...protocol.StateOption) (uint64, error) {
	cfg, err := processOptions(opts...)
	if err != nil {
		return ws.height, err
	}
	value, err := ws.buffer.Get(cfg.Namespace, cfg.Key)
	if err != nil {
		if errors.Cause(err) == batch.ErrAlreadyDeleted {
			return ws.height, errors.Wrapf(state.ErrStateNotExist, "namespace = %s key = %x", cfg.Namespace, cfg.Key)
		}
		value, err = ws.kv.Get(cfg.Namespace, cfg.Key)
		if err != nil {
			if errors.Cause(err) == db.ErrNotExist {
				return ws.height, errors.Wrapf(state.ErrStateNotExist, "namespace = %s key = %x", cfg.Namespace, cfg.Key)
			}
			return ws.height, err
		}
	}
	return ws.height, state.Deserialize(s, value)
}

// PutState writes a state record
func (ws *WorkingSet) PutState(s interface{}, opts ...protocol.StateOption) (uint64, error) {
	if ws.readOnly {
		return ws.height, ErrReadOnly
	}
	cfg, err := processOptions(opts...)
	if err != nil {
		return ws.height, err
	}
	value, err := state.Serialize(s)
	if err != nil {
		return ws.height, errors.Wrapf(err, "failed to serialize state of namespace = %s key = %x", cfg.Namespace, cfg.Key)
	}
	ws.buffer.Put(cfg.Namespace, cfg.Key, value, "failed to put state of namespace = %s key = %x", cfg.Namespace, cfg.Key)
	return ws.height, nil
}

// DelState deletes a state record
func (ws *WorkingSet) DelState(opts ...protocol.StateOption) (uint64, error) {
	if ws.readOnly {
		return ws.height, ErrReadOnly
	}
	cfg, err := processOptions(opts...)
	if err != nil {
		return ws.height, err
	}
	ws.buffer.Delete(cfg.Namespace, cfg.Key, "failed to delete state of namespace = %s key = %x", cfg.Namespace, cfg.Key)
	return ws.height, nil
}

// Snapshot takes a snapshot of the buffered writes
func (ws *WorkingSet) Snapshot() int {
	_stateStoreMtc.WithLabelValues("snapshot").Inc()
	return ws.buffer.Snapshot()
}

// Revert discards all writes made after the given snapshot
func (ws *WorkingSet) Revert(snapshot int) error {
	_stateStoreMtc.WithLabelValues("revert").Inc()
	return ws.buffer.Revert(snapshot)
}

// Commit persists the buffered writes and the new height atomically
func (ws *WorkingSet) Commit() error {
	if ws.readOnly {
		return ErrReadOnly
	}
	if ws.committed {
		return ErrCommitted
	}
	ws.buffer.Put(MetaNamespace, _heightKey, byteutil.Uint64ToBytes(ws.height), "failed to put height = %d", ws.height)
	if err := ws.kv.WriteBatch(ws.buffer); err != nil {
		return errors.Wrapf(err, "failed to commit working set at height = %d", ws.height)
	}
	ws.committed = true
	_stateStoreMtc.WithLabelValues("commit").Inc()
	return nil
}

func processOptions(opts ...protocol.StateOption) (*protocol.StateConfig, error) {
	cfg, err := protocol.CreateStateConfig(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Namespace == "" {
		return nil, errors.New("namespace is required to access state")
	}
	return cfg, nil
}
