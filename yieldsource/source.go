// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package yieldsource is the normalized boundary to external yield-bearing
// instruments. Every concrete instrument implements the Source interface at
// compile time; nothing above this package knows instrument call
// conventions.
package yieldsource

import (
	"context"
	"math/big"
	"sync"

	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownSource indicates an address without a registered instrument
	ErrUnknownSource = errors.New("unknown yield source")
	// ErrDuplicateSource indicates a second registration under one address
	ErrDuplicateSource = errors.New("yield source already registered")
	// ErrInsufficientFunds indicates a withdrawal beyond the held value
	ErrInsufficientFunds = errors.New("insufficient funds in yield source")
)

// Source is the minimal contract the vault depends on. Every call is
// synchronous and all-or-nothing; Withdraw returns the actually-recovered
// amount, which may be less than requested.
type Source interface {
	// Deposit places amount into the instrument
	Deposit(ctx context.Context, amount *big.Int) error
	// Withdraw takes amount out and returns what was actually recovered
	Withdraw(ctx context.Context, amount *big.Int) (*big.Int, error)
	// ValueOf reports the holder's current total value in the instrument
	ValueOf(ctx context.Context, holder address.Address) (*big.Int, error)
	// CurrentYield reports the instrument's yield rate in basis points per year
	CurrentYield(ctx context.Context) (uint64, error)
}

// Directory resolves source addresses to their instrument implementations.
// It is populated once at service setup.
type Directory struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{sources: make(map[string]Source)}
}

// Register binds an instrument to an address
func (d *Directory) Register(addr address.Address, src Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sources[addr.String()]; ok {
		return errors.Wrapf(ErrDuplicateSource, "address = %s", addr.String())
	}
	d.sources[addr.String()] = src
	return nil
}

// Resolve returns the instrument registered under the address
func (d *Directory) Resolve(addr address.Address) (Source, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	src, ok := d.sources[addr.String()]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSource, "address = %s", addr.String())
	}
	return src, nil
}
