// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package vault

import (
	"math/big"
	"time"

	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/state"
)

var (
	_configKey = []byte("cfg")
	_totalsKey = []byte("tot")
	_sourceKey = []byte("src")

	_accountKeyPrefix = []byte("a")
)

type (
	// vaultConfig is the administrator-set configuration record
	vaultConfig struct {
		Authority  string
		MinDeposit *big.Int
		Paused     bool
	}

	// totals is the vault-wide share/asset bookkeeping record. The sum of
	// all account shares equals TotalShares; post-bootstrap TotalShares is
	// zero exactly when TotalAssets is zero.
	totals struct {
		TotalShares *big.Int
		TotalAssets *big.Int
	}

	// activeSource records where the pooled balance currently sits
	activeSource struct {
		Current        string
		LastMigration  time.Time
		MigrationCount uint64
	}

	// accountState is one depositor's share balance
	accountState struct {
		Shares *big.Int
	}
)

func accountKey(addr address.Address) []byte {
	return append(_accountKeyPrefix, addr.Bytes()...)
}

func (p *Protocol) state(sr protocol.StateReader, key []byte, value interface{}) error {
	_, err := sr.State(value, protocol.NamespaceOption(Namespace), protocol.KeyOption(key))
	return err
}

func (p *Protocol) putState(sm protocol.StateManager, key []byte, value interface{}) error {
	_, err := sm.PutState(value, protocol.NamespaceOption(Namespace), protocol.KeyOption(key))
	return err
}

// loadAccount returns the account state, zero-valued when absent
func (p *Protocol) loadAccount(sr protocol.StateReader, addr address.Address) (*accountState, error) {
	acc := accountState{Shares: big.NewInt(0)}
	if err := p.state(sr, accountKey(addr), &acc); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return &accountState{Shares: big.NewInt(0)}, nil
		}
		return nil, err
	}
	return &acc, nil
}
