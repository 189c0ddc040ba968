// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package vault

import (
	"context"
	"math/big"

	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/yieldsource"
)

// Withdraw burns the caller's shares and pays out the priced assets. The
// booked TotalAssets is first resynced to the active source's true value so
// accrued yield is captured in the price; the adapter withdrawal must
// succeed before any bookkeeping mutates.
func (p *Protocol) Withdraw(ctx context.Context, sm protocol.StateManager, shares *big.Int) (*big.Int, *protocol.Log, error) {
	callCtx := protocol.MustGetCallCtx(ctx)

	var cfg vaultConfig
	if err := p.state(sm, _configKey, &cfg); err != nil {
		return nil, nil, err
	}
	if cfg.Paused {
		return nil, nil, ErrVaultPaused
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, nil, errors.Wrap(ErrZeroAmount, "withdraw shares")
	}
	acc, err := p.loadAccount(sm, callCtx.Caller)
	if err != nil {
		return nil, nil, err
	}
	if shares.Cmp(acc.Shares) > 0 {
		return nil, nil, errors.Wrapf(ErrInsufficientShares, "requested %s, holding %s", shares, acc.Shares)
	}

	var tot totals
	if err := p.state(sm, _totalsKey, &tot); err != nil {
		return nil, nil, err
	}
	var src activeSource
	if err := p.state(sm, _sourceKey, &src); err != nil {
		return nil, nil, err
	}

	// mandatory resync before pricing: fold accrued yield into the book
	var instrument yieldsource.Source
	if src.Current != "" {
		instrument, err = p.resolveSource(src.Current)
		if err != nil {
			return nil, nil, err
		}
		value, err := instrument.ValueOf(ctx, p.addr)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to resync against yield source")
		}
		tot.TotalAssets = value
	}

	assets := new(big.Int).Mul(shares, tot.TotalAssets)
	assets.Div(assets, tot.TotalShares)

	// recover funds before touching the book
	paid := assets
	if instrument != nil && assets.Sign() > 0 {
		recovered, err := instrument.Withdraw(ctx, assets)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to withdraw from yield source")
		}
		paid = recovered
	}

	acc.Shares = new(big.Int).Sub(acc.Shares, shares)
	if err := p.putState(sm, accountKey(callCtx.Caller), acc); err != nil {
		return nil, nil, err
	}
	tot.TotalShares = new(big.Int).Sub(tot.TotalShares, shares)
	tot.TotalAssets = new(big.Int).Sub(tot.TotalAssets, assets)
	if err := p.putState(sm, _totalsKey, &tot); err != nil {
		return nil, nil, err
	}
	if p.powerRecorder != nil {
		if err := p.powerRecorder.RecordVotingPower(ctx, sm, callCtx.Caller, acc.Shares); err != nil {
			return nil, nil, errors.Wrap(err, "failed to checkpoint voting power")
		}
	}

	rLog := protocol.NewReceiptLog(p.addr.String(), _eventWithdraw)
	rLog.AddAddress(callCtx.Caller)
	rLog.AddTopics(shares.Bytes())
	rLog.SetData(paid.Bytes())
	return paid, rLog.Build(), nil
}

// PreviewWithdraw prices a withdrawal against the current, possibly stale
// totals. No resync, no mutation.
func (p *Protocol) PreviewWithdraw(sr protocol.StateReader, shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, errors.Wrap(ErrZeroAmount, "preview shares")
	}
	var tot totals
	if err := p.state(sr, _totalsKey, &tot); err != nil {
		return nil, err
	}
	if tot.TotalShares.Sign() == 0 {
		return big.NewInt(0), nil
	}
	assets := new(big.Int).Mul(shares, tot.TotalAssets)
	return assets.Div(assets, tot.TotalShares), nil
}

func (p *Protocol) resolveSource(addrStr string) (yieldsource.Source, error) {
	addr, err := address.FromString(addrStr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid source address %s", addrStr)
	}
	return p.directory.Resolve(addr)
}
