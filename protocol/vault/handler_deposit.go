// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package vault

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/protocol"
)

// Deposit prices the amount into shares, credits the caller, and forwards
// the amount to the active yield source. Bootstrap deposits (empty vault)
// price 1:1. Any failure leaves the working set untouched.
func (p *Protocol) Deposit(ctx context.Context, sm protocol.StateManager, amount *big.Int) (*big.Int, *protocol.Log, error) {
	callCtx := protocol.MustGetCallCtx(ctx)

	var cfg vaultConfig
	if err := p.state(sm, _configKey, &cfg); err != nil {
		return nil, nil, err
	}
	if cfg.Paused {
		return nil, nil, ErrVaultPaused
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, errors.Wrap(ErrZeroAmount, "deposit amount")
	}
	if amount.Cmp(cfg.MinDeposit) < 0 {
		return nil, nil, errors.Wrapf(ErrDepositTooSmall, "amount %s < minimum %s", amount, cfg.MinDeposit)
	}

	var tot totals
	if err := p.state(sm, _totalsKey, &tot); err != nil {
		return nil, nil, err
	}
	shares := priceDeposit(amount, &tot)
	if shares.Sign() == 0 {
		return nil, nil, errors.Wrapf(ErrDepositTooSmall, "amount %s prices to zero shares", amount)
	}

	acc, err := p.loadAccount(sm, callCtx.Caller)
	if err != nil {
		return nil, nil, err
	}
	acc.Shares = new(big.Int).Add(acc.Shares, shares)
	if err := p.putState(sm, accountKey(callCtx.Caller), acc); err != nil {
		return nil, nil, err
	}
	tot.TotalShares = new(big.Int).Add(tot.TotalShares, shares)
	tot.TotalAssets = new(big.Int).Add(tot.TotalAssets, amount)
	if err := p.putState(sm, _totalsKey, &tot); err != nil {
		return nil, nil, err
	}
	if p.powerRecorder != nil {
		if err := p.powerRecorder.RecordVotingPower(ctx, sm, callCtx.Caller, acc.Shares); err != nil {
			return nil, nil, errors.Wrap(err, "failed to checkpoint voting power")
		}
	}

	// external placement last, so an adapter failure discards the set
	// without leaving funds booked but unplaced
	var src activeSource
	if err := p.state(sm, _sourceKey, &src); err != nil {
		return nil, nil, err
	}
	if src.Current != "" {
		instrument, err := p.resolveSource(src.Current)
		if err != nil {
			return nil, nil, err
		}
		if err := instrument.Deposit(ctx, amount); err != nil {
			return nil, nil, errors.Wrap(err, "failed to place deposit into yield source")
		}
	}

	rLog := protocol.NewReceiptLog(p.addr.String(), _eventDeposit)
	rLog.AddAddress(callCtx.Caller)
	rLog.AddTopics(amount.Bytes())
	rLog.SetData(shares.Bytes())
	return shares, rLog.Build(), nil
}

// PreviewDeposit prices a deposit against the current, possibly stale
// totals. No resync, no mutation; actuals can diverge after a sync.
func (p *Protocol) PreviewDeposit(sr protocol.StateReader, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.Wrap(ErrZeroAmount, "preview amount")
	}
	var tot totals
	if err := p.state(sr, _totalsKey, &tot); err != nil {
		return nil, err
	}
	return priceDeposit(amount, &tot), nil
}

// priceDeposit converts an asset amount to shares with floor division
func priceDeposit(amount *big.Int, tot *totals) *big.Int {
	if tot.TotalShares.Sign() == 0 || tot.TotalAssets.Sign() == 0 {
		return new(big.Int).Set(amount)
	}
	shares := new(big.Int).Mul(amount, tot.TotalShares)
	return shares.Div(shares, tot.TotalAssets)
}
