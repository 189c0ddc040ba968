// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package service

import (
	"context"
	"math/big"
	"time"

	"github.com/iotexproject/iotex-address/address"

	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/protocol/governance"
	"github.com/switchvault/switchvault-core/protocol/migration"
	"github.com/switchvault/switchvault-core/statestore"
)

// Deposit places amount into the vault for the caller and returns the
// minted shares
func (s *Service) Deposit(caller address.Address, amount *big.Int) (*big.Int, *protocol.Receipt, error) {
	var shares *big.Int
	receipt, err := s.execute("deposit", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		var (
			rLog *protocol.Log
			err  error
		)
		shares, rLog, err = s.vault.Deposit(ctx, ws, amount)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return shares, receipt, nil
}

// Withdraw burns the caller's shares and returns the recovered assets
func (s *Service) Withdraw(caller address.Address, shares *big.Int) (*big.Int, *protocol.Receipt, error) {
	var assets *big.Int
	receipt, err := s.execute("withdraw", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		var (
			rLog *protocol.Log
			err  error
		)
		assets, rLog, err = s.vault.Withdraw(ctx, ws, shares)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return assets, receipt, nil
}

// Pause stops deposits and withdrawals
func (s *Service) Pause(caller address.Address) (*protocol.Receipt, error) {
	return s.execute("pause", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		rLog, err := s.vault.Pause(ctx, ws)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
}

// Unpause resumes deposits and withdrawals
func (s *Service) Unpause(caller address.Address) (*protocol.Receipt, error) {
	return s.execute("unpause", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		rLog, err := s.vault.Unpause(ctx, ws)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
}

// SetMinDeposit updates the minimum accepted deposit
func (s *Service) SetMinDeposit(caller address.Address, amount *big.Int) (*protocol.Receipt, error) {
	return s.execute("set_min_deposit", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		return nil, s.vault.SetMinDeposit(ctx, ws, amount)
	})
}

// WhitelistSource adds a source to the migration whitelist
func (s *Service) WhitelistSource(caller address.Address, source address.Address, name string) (*protocol.Receipt, error) {
	return s.execute("whitelist_source", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		rLog, err := s.migration.WhitelistSource(ctx, ws, source, name)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
}

// RemoveSource deactivates a whitelist member
func (s *Service) RemoveSource(caller address.Address, source address.Address) (*protocol.Receipt, error) {
	return s.execute("remove_source", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		rLog, err := s.migration.RemoveSource(ctx, ws, source)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
}

// SwitchNow migrates the pooled balance immediately
func (s *Service) SwitchNow(caller address.Address, target address.Address) (*protocol.Receipt, error) {
	return s.execute("switch_now", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		return s.migration.SwitchNow(ctx, ws, target)
	})
}

// ScheduleUpgrade records a delayed migration request
func (s *Service) ScheduleUpgrade(caller address.Address, target address.Address) (*protocol.Receipt, error) {
	return s.execute("schedule_upgrade", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		rLog, err := s.migration.ScheduleUpgrade(ctx, ws, target)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
}

// ExecuteUpgrade runs the scheduled migration once due
func (s *Service) ExecuteUpgrade(caller address.Address, minOut *big.Int) (*protocol.Receipt, error) {
	return s.execute("execute_upgrade", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		return s.migration.ExecuteUpgrade(ctx, ws, minOut)
	})
}

// CancelUpgrade clears the scheduled migration
func (s *Service) CancelUpgrade(caller address.Address) (*protocol.Receipt, error) {
	return s.execute("cancel_upgrade", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		rLog, err := s.migration.CancelUpgrade(ctx, ws)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
}

// Propose opens a governance proposal to migrate to the target
func (s *Service) Propose(caller address.Address, target address.Address, description string) (uint64, *protocol.Receipt, error) {
	var id uint64
	receipt, err := s.execute("propose", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		var (
			rLog *protocol.Log
			err  error
		)
		id, rLog, err = s.governance.Propose(ctx, ws, target, description)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
	if err != nil {
		return 0, nil, err
	}
	return id, receipt, nil
}

// CastVote records the caller's ballot on a proposal
func (s *Service) CastVote(caller address.Address, id uint64, support governance.VoteOption, reason string) (*protocol.Receipt, error) {
	return s.execute("cast_vote", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		rLog, err := s.governance.CastVote(ctx, ws, id, support, reason)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
}

// Queue moves a succeeded proposal behind the timelock
func (s *Service) Queue(caller address.Address, id uint64) (*protocol.Receipt, error) {
	return s.execute("queue", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		rLog, err := s.governance.Queue(ctx, ws, id)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
}

// Execute performs a queued proposal, triggering the migration
func (s *Service) Execute(caller address.Address, id uint64) (*protocol.Receipt, error) {
	return s.execute("execute", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		return s.governance.Execute(ctx, ws, id)
	})
}

// Cancel voids a proposal
func (s *Service) Cancel(caller address.Address, id uint64) (*protocol.Receipt, error) {
	return s.execute("cancel", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		rLog, err := s.governance.Cancel(ctx, ws, id)
		if err != nil {
			return nil, err
		}
		return []*protocol.Log{rLog}, nil
	})
}

// SetGovernanceParams replaces the governance parameters
func (s *Service) SetGovernanceParams(caller address.Address, params governance.Params) (*protocol.Receipt, error) {
	return s.execute("set_governance_params", caller, func(ctx context.Context, ws *statestore.WorkingSet) ([]*protocol.Log, error) {
		return nil, s.governance.SetParams(ctx, ws, params)
	})
}

// TotalShares returns the outstanding share supply
func (s *Service) TotalShares() (*big.Int, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.vault.TotalShares(ro)
}

// TotalAssets returns the booked pooled balance
func (s *Service) TotalAssets() (*big.Int, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.vault.TotalAssets(ro)
}

// ShareBalance returns an account's share balance
func (s *Service) ShareBalance(account address.Address) (*big.Int, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.vault.ShareBalance(ro, account)
}

// PreviewDeposit prices a deposit against the current totals
func (s *Service) PreviewDeposit(amount *big.Int) (*big.Int, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.vault.PreviewDeposit(ro, amount)
}

// PreviewWithdraw prices a withdrawal against the current totals
func (s *Service) PreviewWithdraw(shares *big.Int) (*big.Int, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.vault.PreviewWithdraw(ro, shares)
}

// ActiveSource returns the current yield source, nil when unset
func (s *Service) ActiveSource() (address.Address, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.vault.ActiveSource(ro)
}

// Sources lists the whitelist in insertion order
func (s *Service) Sources() ([]migration.SourceInfo, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.migration.Sources(ro)
}

// BestSource returns the active whitelist member with the highest yield
func (s *Service) BestSource(ctx context.Context) (address.Address, uint64, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, 0, err
	}
	return s.migration.BestSource(ctx, ro)
}

// PendingUpgrade returns the scheduled migration, if any
func (s *Service) PendingUpgrade() (*migration.PendingUpgrade, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.migration.Pending(ro)
}

// Proposal returns a proposal record
func (s *Service) Proposal(id uint64) (*governance.Proposal, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.governance.Proposal(ro, id)
}

// ProposalStatus derives a proposal's lifecycle state at the current height
// and clock
func (s *Service) ProposalStatus(id uint64) (governance.Status, error) {
	ro, err := s.readOnly()
	if err != nil {
		return governance.StatusPending, err
	}
	height, err := s.store.Height()
	if err != nil {
		return governance.StatusPending, err
	}
	return s.governance.Status(ro, id, height, s.clk.Now())
}

// VotingPowerAt returns an account's checkpointed power at a height
func (s *Service) VotingPowerAt(account address.Address, height uint64) (*big.Int, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.governance.VotingPowerAt(ro, account, height)
}

// GovernanceParams returns the current governance parameters
func (s *Service) GovernanceParams() (*governance.Params, error) {
	ro, err := s.readOnly()
	if err != nil {
		return nil, err
	}
	return s.governance.Params(ro)
}

// Now reports the service clock reading
func (s *Service) Now() time.Time { return s.clk.Now() }
