// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package protocol defines the plumbing shared by the independently-addressed
// logic modules operating over one persistent state space: the state
// read/write interfaces, the registry, call context, and receipts.
package protocol

import (
	"context"

	"github.com/iotexproject/go-pkgs/hash"
	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized indicates the caller lacks the required role
	ErrUnauthorized = errors.New("unauthorized caller")
	// ErrAlreadyInitialized indicates a second genesis initialization
	ErrAlreadyInitialized = errors.New("already initialized")
)

// Protocol defines the protocol interfaces atop the state substrate
type Protocol interface {
	// Name returns the unique ID the protocol registers under
	Name() string
	// CreateGenesisStates writes the protocol's initial states, exactly once
	CreateGenesisStates(context.Context, StateManager) error
}

// DeriveAddress derives a protocol's event address from its registry ID
func DeriveAddress(id string) address.Address {
	h := hash.Hash160b([]byte(id))
	addr, err := address.FromBytes(h[:])
	if err != nil {
		// a 20-byte hash is always a valid address payload
		panic(err)
	}
	return addr
}
