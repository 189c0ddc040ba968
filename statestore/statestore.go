// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package statestore owns the persistent state space. It assigns operation
// heights and mints working sets, each a buffered view that commits
// atomically or is discarded whole.
package statestore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/db"
	"github.com/switchvault/switchvault-core/pkg/lifecycle"
	"github.com/switchvault/switchvault-core/pkg/util/byteutil"
)

// MetaNamespace is the storage region holding the store's own bookkeeping
const MetaNamespace = "Meta"

var _heightKey = []byte("height")

// StateStore wraps a KVStore into a height-versioned state space
type StateStore struct {
	lifecycle.Readiness
	kv db.KVStore
}

// NewStateStore creates a state store on the given KVStore
func NewStateStore(kv db.KVStore) *StateStore {
	return &StateStore{kv: kv}
}

// Start starts the underlying KVStore
func (s *StateStore) Start(ctx context.Context) error {
	if err := s.kv.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start the underlying kvstore")
	}
	return s.TurnOn()
}

// Stop stops the underlying KVStore
func (s *StateStore) Stop(ctx context.Context) error {
	if err := s.TurnOff(); err != nil {
		return err
	}
	return s.kv.Stop(ctx)
}

// Height returns the current committed height, zero for a fresh store
func (s *StateStore) Height() (uint64, error) {
	if !s.IsReady() {
		return 0, db.ErrDBNotStarted
	}
	value, err := s.kv.Get(MetaNamespace, _heightKey)
	switch errors.Cause(err) {
	case nil:
		return byteutil.BytesToUint64(value), nil
	case db.ErrNotExist:
		return 0, nil
	default:
		return 0, errors.Wrap(err, "failed to read state store height")
	}
}

// NewWorkingSet mints a working set at the next height. Nothing touches the
// persistent space until Commit.
func (s *StateStore) NewWorkingSet() (*WorkingSet, error) {
	height, err := s.Height()
	if err != nil {
		return nil, err
	}
	return newWorkingSet(height+1, s.kv), nil
}

// ReadOnly mints a working set pinned at the current committed height, for
// serving queries. Committing it is an error.
func (s *StateStore) ReadOnly() (*WorkingSet, error) {
	height, err := s.Height()
	if err != nil {
		return nil, err
	}
	ws := newWorkingSet(height, s.kv)
	ws.readOnly = true
	return ws, nil
}
