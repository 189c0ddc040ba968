// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package governance

import (
	"context"
	"math/big"
	"sort"

	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/state"
)

type (
	// checkpoint is one (height, power) snapshot
	checkpoint struct {
		Height uint64
		Power  *big.Int
	}

	// checkpointList is an account's append-only power history, heights
	// strictly increasing
	checkpointList struct {
		Checkpoints []checkpoint
	}
)

// RecordVotingPower appends a power snapshot at the current height. A second
// change within one height overwrites the last entry, keeping heights
// strictly increasing. The vault calls this after every balance change.
func (p *Protocol) RecordVotingPower(ctx context.Context, sm protocol.StateManager, account address.Address, power *big.Int) error {
	height := protocol.MustGetOpCtx(ctx).Height
	var list checkpointList
	if err := p.state(sm, checkpointKey(account), &list); err != nil {
		if errors.Cause(err) != state.ErrStateNotExist {
			return err
		}
	}
	entry := checkpoint{Height: height, Power: new(big.Int).Set(power)}
	if n := len(list.Checkpoints); n > 0 && list.Checkpoints[n-1].Height == height {
		list.Checkpoints[n-1] = entry
	} else {
		list.Checkpoints = append(list.Checkpoints, entry)
	}
	return p.putState(sm, checkpointKey(account), &list)
}

// VotingPowerAt returns the account's power at the given height: the last
// checkpoint at or before it, zero when none exists
func (p *Protocol) VotingPowerAt(sr protocol.StateReader, account address.Address, height uint64) (*big.Int, error) {
	var list checkpointList
	if err := p.state(sr, checkpointKey(account), &list); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	// first index with Height > height; the entry before it is the answer
	i := sort.Search(len(list.Checkpoints), func(i int) bool {
		return list.Checkpoints[i].Height > height
	})
	if i == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(list.Checkpoints[i-1].Power), nil
}

// currentPower returns the account's latest checkpointed power
func (p *Protocol) currentPower(sr protocol.StateReader, account address.Address) (*big.Int, error) {
	var list checkpointList
	if err := p.state(sr, checkpointKey(account), &list); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	if len(list.Checkpoints) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(list.Checkpoints[len(list.Checkpoints)-1].Power), nil
}
