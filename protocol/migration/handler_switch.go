// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package migration

import (
	"context"
	"math/big"
	"time"

	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/switchvault/switchvault-core/pkg/log"
	"github.com/switchvault/switchvault-core/pkg/util/byteutil"
	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/state"
	"github.com/switchvault/switchvault-core/yieldsource"
)

var _pendingKey = []byte("pending")

// pendingMigration is the single outstanding migration request
type pendingMigration struct {
	Target      string
	RequestedAt time.Time
}

// PendingUpgrade is the externally-visible scheduled migration
type PendingUpgrade struct {
	Target       string
	RequestedAt  time.Time
	ExecutableAt time.Time
}

func (p *Protocol) pendingState(sr protocol.StateReader, value *pendingMigration) error {
	_, err := sr.State(value, protocol.NamespaceOption(Namespace), protocol.KeyOption(_pendingKey))
	return err
}

func (p *Protocol) putPendingState(sm protocol.StateManager, value *pendingMigration) error {
	_, err := sm.PutState(value, protocol.NamespaceOption(Namespace), protocol.KeyOption(_pendingKey))
	return err
}

func (p *Protocol) delPendingState(sm protocol.StateManager) error {
	_, err := sm.DelState(protocol.NamespaceOption(Namespace), protocol.KeyOption(_pendingKey))
	return err
}

// SwitchNow relocates the entire pooled balance to the target immediately,
// authority or governance only
func (p *Protocol) SwitchNow(ctx context.Context, sm protocol.StateManager, target address.Address) ([]*protocol.Log, error) {
	callCtx := protocol.MustGetCallCtx(ctx)
	if !callCtx.HasRole(protocol.RoleAdmin) && !callCtx.HasRole(protocol.RoleGovernance) {
		return nil, errors.Wrap(protocol.ErrUnauthorized, "switching requires the admin or governance role")
	}
	return p.switchTo(ctx, sm, target, nil)
}

// ScheduleUpgrade records a migration request that becomes executable after
// the configured delay. Only one request may be outstanding.
func (p *Protocol) ScheduleUpgrade(ctx context.Context, sm protocol.StateManager, target address.Address) (*protocol.Log, error) {
	callCtx := protocol.MustGetCallCtx(ctx)
	if !callCtx.HasRole(protocol.RoleAdmin) && !callCtx.HasRole(protocol.RoleGovernance) {
		return nil, errors.Wrap(protocol.ErrUnauthorized, "scheduling requires the admin or governance role")
	}
	var existing pendingMigration
	switch err := p.pendingState(sm, &existing); errors.Cause(err) {
	case nil:
		return nil, errors.Wrapf(ErrUpgradeAlreadyScheduled, "target = %s", existing.Target)
	case state.ErrStateNotExist:
	default:
		return nil, err
	}
	whitelisted, err := p.IsWhitelisted(sm, target)
	if err != nil {
		return nil, err
	}
	if !whitelisted {
		return nil, errors.Wrapf(ErrSourceNotWhitelisted, "address = %s", target.String())
	}
	current, err := p.vault.ActiveSource(sm)
	if err != nil {
		return nil, err
	}
	if current != nil && current.String() == target.String() {
		return nil, errors.Wrapf(ErrSameSource, "address = %s", target.String())
	}
	now := protocol.MustGetOpCtx(ctx).Timestamp
	pending := pendingMigration{Target: target.String(), RequestedAt: now}
	if err := p.putPendingState(sm, &pending); err != nil {
		return nil, err
	}
	rLog := protocol.NewReceiptLog(p.addr.String(), _eventUpgradeScheduled)
	rLog.AddAddress(target)
	rLog.AddTopics(byteutil.Uint64ToBytes(uint64(now.Add(p.cfg.MinDelay).Unix())))
	return rLog.Build(), nil
}

// ExecuteUpgrade runs the scheduled migration once its delay has elapsed.
// The caller supplies the minimum acceptable post-migration balance; falling
// below it aborts the whole switch.
func (p *Protocol) ExecuteUpgrade(ctx context.Context, sm protocol.StateManager, minOut *big.Int) ([]*protocol.Log, error) {
	callCtx := protocol.MustGetCallCtx(ctx)
	if !callCtx.HasRole(protocol.RoleAdmin) && !callCtx.HasRole(protocol.RoleGovernance) {
		return nil, errors.Wrap(protocol.ErrUnauthorized, "execution requires the admin or governance role")
	}
	var pending pendingMigration
	if err := p.pendingState(sm, &pending); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return nil, ErrNoUpgradeScheduled
		}
		return nil, err
	}
	now := protocol.MustGetOpCtx(ctx).Timestamp
	executableAt := pending.RequestedAt.Add(p.cfg.MinDelay)
	if now.Before(executableAt) {
		return nil, errors.Wrapf(ErrTimelockNotExpired, "executable at %s", executableAt)
	}
	target, err := address.FromString(pending.Target)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt pending target %s", pending.Target)
	}
	logs, err := p.switchTo(ctx, sm, target, minOut)
	if err != nil {
		return nil, err
	}
	if err := p.delPendingState(sm); err != nil {
		return nil, err
	}
	return logs, nil
}

// CancelUpgrade clears the scheduled migration, authority only
func (p *Protocol) CancelUpgrade(ctx context.Context, sm protocol.StateManager) (*protocol.Log, error) {
	if !protocol.MustGetCallCtx(ctx).HasRole(protocol.RoleAdmin) {
		return nil, errors.Wrap(protocol.ErrUnauthorized, "cancellation requires the admin role")
	}
	var pending pendingMigration
	if err := p.pendingState(sm, &pending); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return nil, ErrNoUpgradeScheduled
		}
		return nil, err
	}
	if err := p.delPendingState(sm); err != nil {
		return nil, err
	}
	target, err := address.FromString(pending.Target)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt pending target %s", pending.Target)
	}
	rLog := protocol.NewReceiptLog(p.addr.String(), _eventUpgradeCancelled)
	rLog.AddAddress(target)
	return rLog.Build(), nil
}

// Pending returns the scheduled migration, ErrNoUpgradeScheduled when none
func (p *Protocol) Pending(sr protocol.StateReader) (*PendingUpgrade, error) {
	var pending pendingMigration
	if err := p.pendingState(sr, &pending); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return nil, ErrNoUpgradeScheduled
		}
		return nil, err
	}
	return &PendingUpgrade{
		Target:       pending.Target,
		RequestedAt:  pending.RequestedAt,
		ExecutableAt: pending.RequestedAt.Add(p.cfg.MinDelay),
	}, nil
}

// switchTo is the atomic switch every variant funnels through: liquidate the
// old source, repoint the vault, place the recovered balance into the target,
// and resync the book to the target's reported value. State effects revert
// with the caller's working set; external instrument effects are compensated
// in-line before returning an error.
func (p *Protocol) switchTo(ctx context.Context, sm protocol.StateManager, target address.Address, minOut *big.Int) ([]*protocol.Log, error) {
	whitelisted, err := p.IsWhitelisted(sm, target)
	if err != nil {
		return nil, err
	}
	if !whitelisted {
		return nil, errors.Wrapf(ErrSourceNotWhitelisted, "address = %s", target.String())
	}
	old, err := p.vault.ActiveSource(sm)
	if err != nil {
		return nil, err
	}
	if old != nil && old.String() == target.String() {
		return nil, errors.Wrapf(ErrSameSource, "address = %s", target.String())
	}
	newSrc, err := p.directory.Resolve(target)
	if err != nil {
		return nil, err
	}

	holder := p.vault.Address()
	pre := big.NewInt(0)
	recovered := big.NewInt(0)
	var oldSrc yieldsource.Source
	if old != nil {
		oldSrc, err = p.directory.Resolve(old)
		if err != nil {
			return nil, err
		}
		if pre, err = oldSrc.ValueOf(ctx, holder); err != nil {
			return nil, errors.Wrap(err, "failed to value the old source")
		}
		if pre.Sign() > 0 {
			if recovered, err = oldSrc.Withdraw(ctx, pre); err != nil {
				return nil, errors.Wrap(err, "failed to liquidate the old source")
			}
		}
	} else if pre, err = p.vault.TotalAssets(sm); err != nil {
		return nil, err
	}

	now := protocol.MustGetOpCtx(ctx).Timestamp
	if err := p.vault.SwitchSource(ctx, sm, target, now); err != nil {
		return nil, err
	}
	if recovered.Sign() > 0 {
		if err := newSrc.Deposit(ctx, recovered); err != nil {
			// restore the old instrument before the working set reverts
			if oldSrc != nil {
				if derr := oldSrc.Deposit(ctx, recovered); derr != nil {
					log.L().Error("Failed to compensate the old source after a deposit failure.",
						zap.String("source", old.String()), zap.Error(derr))
				}
			}
			return nil, errors.Wrap(err, "failed to place funds into the new source")
		}
	}

	post, err := newSrc.ValueOf(ctx, holder)
	if err != nil {
		return nil, p.unwind(ctx, oldSrc, newSrc, holder, errors.Wrap(err, "failed to value the new source"))
	}
	if err := p.vault.ResyncAssets(ctx, sm, post); err != nil {
		return nil, err
	}
	if !p.slippageWithinBound(pre, post) {
		return nil, p.unwind(ctx, oldSrc, newSrc, holder,
			errors.Wrapf(ErrExceedsMaxSlippage, "pre %s, post %s, ceiling %d bps", pre, post, p.cfg.MaxSlippageBps))
	}
	if minOut != nil && post.Cmp(minOut) < 0 {
		return nil, p.unwind(ctx, oldSrc, newSrc, holder,
			errors.Wrapf(ErrSlippageTooHigh, "post %s < minimum %s", post, minOut))
	}

	rate, err := newSrc.CurrentYield(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query the new source's yield")
	}

	upgraded := protocol.NewReceiptLog(p.addr.String(), _eventStrategyUpgraded)
	if old != nil {
		upgraded.AddAddress(old)
	}
	upgraded.AddAddress(target)
	upgraded.AddTopics(byteutil.Uint64ToBytes(rate))
	upgraded.SetData(byteutil.Uint64ToBytes(uint64(now.Unix())))
	logs := []*protocol.Log{upgraded.Build()}

	if pre.Cmp(post) > 0 {
		loss := new(big.Int).Sub(pre, post)
		slippage := protocol.NewReceiptLog(p.addr.String(), _eventSlippage)
		if old != nil {
			slippage.AddAddress(old)
		}
		slippage.AddAddress(target)
		slippage.SetData(loss.Bytes())
		logs = append(logs, slippage.Build())
	}
	return logs, nil
}

// unwind moves the pooled position back out of the new source into the old
// one, restoring the external instruments before the state revert. The
// original cause is always returned.
func (p *Protocol) unwind(ctx context.Context, oldSrc, newSrc yieldsource.Source, holder address.Address, cause error) error {
	value, err := newSrc.ValueOf(ctx, holder)
	if err != nil {
		log.L().Error("Failed to value the new source during unwind.", zap.Error(err))
		return cause
	}
	if value.Sign() == 0 {
		return cause
	}
	recovered, err := newSrc.Withdraw(ctx, value)
	if err != nil {
		log.L().Error("Failed to withdraw from the new source during unwind.", zap.Error(err))
		return cause
	}
	if oldSrc != nil && recovered.Sign() > 0 {
		if err := oldSrc.Deposit(ctx, recovered); err != nil {
			log.L().Error("Failed to restore the old source during unwind.", zap.Error(err))
		}
	}
	return cause
}
