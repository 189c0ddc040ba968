// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package governance

import (
	"context"
	"math/big"
	"time"

	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/pkg/util/byteutil"
	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/state"
)

type (
	// Proposal is one governance proposal. Status is never stored; it is
	// derived from the flags, tallies, height and clock.
	Proposal struct {
		ID           uint64
		Proposer     string
		TargetSource string
		Description  string
		ForVotes     *big.Int
		AgainstVotes *big.Int
		AbstainVotes *big.Int
		StartHeight  uint64
		EndHeight    uint64
		Eta          time.Time
		Executed     bool
		Canceled     bool
	}

	// VoteReceipt is one account's write-once ballot on one proposal
	VoteReceipt struct {
		HasVoted bool
		Support  VoteOption
		Weight   *big.Int
	}
)

func (p *Protocol) loadProposal(sr protocol.StateReader, id uint64) (*Proposal, error) {
	var prop Proposal
	if err := p.state(sr, proposalKey(id), &prop); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return nil, errors.Wrapf(ErrProposalNotFound, "id = %d", id)
		}
		return nil, err
	}
	return &prop, nil
}

// Propose opens a proposal to migrate to the target source. The proposer's
// current power must meet the threshold.
func (p *Protocol) Propose(ctx context.Context, sm protocol.StateManager, target address.Address, description string) (uint64, *protocol.Log, error) {
	callCtx := protocol.MustGetCallCtx(ctx)
	opCtx := protocol.MustGetOpCtx(ctx)

	params, err := p.Params(sm)
	if err != nil {
		return 0, nil, err
	}
	power, err := p.currentPower(sm, callCtx.Caller)
	if err != nil {
		return 0, nil, err
	}
	if power.Cmp(params.ProposalThreshold) < 0 {
		return 0, nil, errors.Wrapf(ErrBelowProposalThreshold, "power %s < threshold %s", power, params.ProposalThreshold)
	}

	var count proposalCount
	if err := p.state(sm, _countKey, &count); err != nil {
		return 0, nil, err
	}
	count.Latest++
	if err := p.putState(sm, _countKey, &count); err != nil {
		return 0, nil, err
	}

	prop := Proposal{
		ID:           count.Latest,
		Proposer:     callCtx.Caller.String(),
		TargetSource: target.String(),
		Description:  description,
		ForVotes:     big.NewInt(0),
		AgainstVotes: big.NewInt(0),
		AbstainVotes: big.NewInt(0),
		StartHeight:  opCtx.Height + params.VotingDelay,
	}
	prop.EndHeight = prop.StartHeight + params.VotingPeriod
	if err := p.putState(sm, proposalKey(prop.ID), &prop); err != nil {
		return 0, nil, err
	}

	rLog := protocol.NewReceiptLog(p.addr.String(), _eventProposalCreated)
	rLog.AddAddress(callCtx.Caller)
	rLog.AddAddress(target)
	rLog.AddTopics(byteutil.Uint64ToBytesBigEndian(prop.ID))
	rLog.SetData([]byte(description))
	return prop.ID, rLog.Build(), nil
}

// CastVote records the caller's ballot while the proposal is active. The
// weight is the caller's power at the proposal's start height, not the
// current balance.
func (p *Protocol) CastVote(ctx context.Context, sm protocol.StateManager, id uint64, support VoteOption, reason string) (*protocol.Log, error) {
	if support > VoteAbstain {
		return nil, errors.Wrapf(ErrInvalidVoteOption, "support = %d", support)
	}
	callCtx := protocol.MustGetCallCtx(ctx)
	opCtx := protocol.MustGetOpCtx(ctx)

	prop, err := p.loadProposal(sm, id)
	if err != nil {
		return nil, err
	}
	params, err := p.Params(sm)
	if err != nil {
		return nil, err
	}
	if p.status(prop, params, opCtx.Height, opCtx.Timestamp) != StatusActive {
		return nil, errors.Wrapf(ErrProposalNotActive, "id = %d", id)
	}

	var receipt VoteReceipt
	switch err := p.state(sm, receiptKey(id, callCtx.Caller), &receipt); errors.Cause(err) {
	case nil:
		return nil, errors.Wrapf(ErrAlreadyVoted, "id = %d, voter = %s", id, callCtx.Caller.String())
	case state.ErrStateNotExist:
	default:
		return nil, err
	}

	weight, err := p.VotingPowerAt(sm, callCtx.Caller, prop.StartHeight)
	if err != nil {
		return nil, err
	}
	switch support {
	case VoteAgainst:
		prop.AgainstVotes = new(big.Int).Add(prop.AgainstVotes, weight)
	case VoteFor:
		prop.ForVotes = new(big.Int).Add(prop.ForVotes, weight)
	case VoteAbstain:
		prop.AbstainVotes = new(big.Int).Add(prop.AbstainVotes, weight)
	}
	if err := p.putState(sm, proposalKey(id), prop); err != nil {
		return nil, err
	}
	receipt = VoteReceipt{HasVoted: true, Support: support, Weight: weight}
	if err := p.putState(sm, receiptKey(id, callCtx.Caller), &receipt); err != nil {
		return nil, err
	}

	rLog := protocol.NewReceiptLog(p.addr.String(), _eventVoteCast)
	rLog.AddAddress(callCtx.Caller)
	rLog.AddTopics(byteutil.Uint64ToBytesBigEndian(id))
	rLog.AddTopics([]byte{byte(support)})
	rLog.SetData([]byte(reason))
	return rLog.Build(), nil
}

// Queue moves a succeeded proposal behind the timelock
func (p *Protocol) Queue(ctx context.Context, sm protocol.StateManager, id uint64) (*protocol.Log, error) {
	opCtx := protocol.MustGetOpCtx(ctx)
	prop, err := p.loadProposal(sm, id)
	if err != nil {
		return nil, err
	}
	params, err := p.Params(sm)
	if err != nil {
		return nil, err
	}
	if p.status(prop, params, opCtx.Height, opCtx.Timestamp) != StatusSucceeded {
		return nil, errors.Wrapf(ErrProposalNotSucceeded, "id = %d", id)
	}
	prop.Eta = opCtx.Timestamp.Add(params.TimelockDelay)
	if err := p.putState(sm, proposalKey(id), prop); err != nil {
		return nil, err
	}

	rLog := protocol.NewReceiptLog(p.addr.String(), _eventProposalQueued)
	rLog.AddTopics(byteutil.Uint64ToBytesBigEndian(id))
	rLog.SetData(byteutil.Uint64ToBytes(uint64(prop.Eta.Unix())))
	return rLog.Build(), nil
}

// Execute performs a queued proposal once its eta has passed and before the
// grace window closes, invoking the migration executor inside the same
// working set under the governance role
func (p *Protocol) Execute(ctx context.Context, sm protocol.StateManager, id uint64) ([]*protocol.Log, error) {
	callCtx := protocol.MustGetCallCtx(ctx)
	opCtx := protocol.MustGetOpCtx(ctx)
	prop, err := p.loadProposal(sm, id)
	if err != nil {
		return nil, err
	}
	params, err := p.Params(sm)
	if err != nil {
		return nil, err
	}
	switch p.status(prop, params, opCtx.Height, opCtx.Timestamp) {
	case StatusQueued:
	case StatusExpired:
		return nil, errors.Wrapf(ErrProposalNotQueued, "id = %d expired at %s", id, prop.Eta.Add(params.ExecutionGrace))
	default:
		return nil, errors.Wrapf(ErrProposalNotQueued, "id = %d", id)
	}
	if opCtx.Timestamp.Before(prop.Eta) {
		return nil, errors.Wrapf(ErrTimelockNotExpired, "eta = %s", prop.Eta)
	}

	target, err := address.FromString(prop.TargetSource)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt proposal target %s", prop.TargetSource)
	}
	prop.Executed = true
	if err := p.putState(sm, proposalKey(id), prop); err != nil {
		return nil, err
	}

	// the nested switch runs with an explicit governance capability
	execCtx := protocol.WithCallCtx(ctx, protocol.CallCtx{
		Caller: callCtx.Caller,
		Roles:  append([]protocol.Role{protocol.RoleGovernance}, callCtx.Roles...),
	})
	logs, err := p.executor.SwitchNow(execCtx, sm, target)
	if err != nil {
		return nil, err
	}

	rLog := protocol.NewReceiptLog(p.addr.String(), _eventProposalExecuted)
	rLog.AddAddress(target)
	rLog.AddTopics(byteutil.Uint64ToBytesBigEndian(id))
	return append(logs, rLog.Build()), nil
}

// Cancel voids a proposal, proposer or authority only, never after execution
func (p *Protocol) Cancel(ctx context.Context, sm protocol.StateManager, id uint64) (*protocol.Log, error) {
	callCtx := protocol.MustGetCallCtx(ctx)
	prop, err := p.loadProposal(sm, id)
	if err != nil {
		return nil, err
	}
	if prop.Executed {
		return nil, errors.Wrapf(ErrProposalExecuted, "id = %d", id)
	}
	if callCtx.Caller.String() != prop.Proposer && !callCtx.HasRole(protocol.RoleAdmin) {
		return nil, errors.Wrap(protocol.ErrUnauthorized, "cancellation requires the proposer or the admin role")
	}
	prop.Canceled = true
	if err := p.putState(sm, proposalKey(id), prop); err != nil {
		return nil, err
	}

	rLog := protocol.NewReceiptLog(p.addr.String(), _eventProposalCanceled)
	rLog.AddAddress(callCtx.Caller)
	rLog.AddTopics(byteutil.Uint64ToBytesBigEndian(id))
	return rLog.Build(), nil
}

// Proposal returns the stored proposal record
func (p *Protocol) Proposal(sr protocol.StateReader, id uint64) (*Proposal, error) {
	return p.loadProposal(sr, id)
}

// Receipt returns an account's ballot on a proposal, nil when it has not voted
func (p *Protocol) Receipt(sr protocol.StateReader, id uint64, voter address.Address) (*VoteReceipt, error) {
	var receipt VoteReceipt
	if err := p.state(sr, receiptKey(id, voter), &receipt); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

// Status derives the proposal's lifecycle state at the given height and time
func (p *Protocol) Status(sr protocol.StateReader, id uint64, height uint64, now time.Time) (Status, error) {
	prop, err := p.loadProposal(sr, id)
	if err != nil {
		return StatusPending, err
	}
	params, err := p.Params(sr)
	if err != nil {
		return StatusPending, err
	}
	return p.status(prop, params, height, now), nil
}

// status is the single derivation every transition guard consults
func (p *Protocol) status(prop *Proposal, params *Params, height uint64, now time.Time) Status {
	switch {
	case prop.Canceled:
		return StatusCanceled
	case prop.Executed:
		return StatusExecuted
	case height < prop.StartHeight:
		return StatusPending
	case height <= prop.EndHeight:
		return StatusActive
	case prop.ForVotes.Cmp(prop.AgainstVotes) <= 0 || prop.ForVotes.Cmp(params.Quorum) < 0:
		return StatusDefeated
	case prop.Eta.IsZero():
		return StatusSucceeded
	case now.After(prop.Eta.Add(params.ExecutionGrace)):
		return StatusExpired
	default:
		return StatusQueued
	}
}
