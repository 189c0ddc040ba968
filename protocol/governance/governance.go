// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package governance implements the proposal state machine: share-holders
// propose a migration target, vote with their checkpointed power, queue the
// passed proposal behind a timelock, and execute it through the injected
// migration executor.
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

// ProtocolID is the ID the governance protocol registers under
const ProtocolID = "governance"

// Namespace is the governance storage region
const Namespace = "Governance"

var (
	// ErrProposalNotFound indicates an unknown proposal id
	ErrProposalNotFound = errors.New("proposal not found")
	// ErrBelowProposalThreshold indicates the proposer's power is too small
	ErrBelowProposalThreshold = errors.New("voting power below the proposal threshold")
	// ErrProposalNotActive indicates a vote outside the voting window
	ErrProposalNotActive = errors.New("proposal is not active")
	// ErrAlreadyVoted indicates a second vote on one proposal
	ErrAlreadyVoted = errors.New("account already voted")
	// ErrProposalNotSucceeded indicates queueing a proposal that has not passed
	ErrProposalNotSucceeded = errors.New("proposal has not succeeded")
	// ErrProposalNotQueued indicates executing a proposal that is not queued
	ErrProposalNotQueued = errors.New("proposal is not queued")
	// ErrTimelockNotExpired indicates execution before the eta
	ErrTimelockNotExpired = errors.New("timelock not expired")
	// ErrProposalExecuted indicates cancellation of an executed proposal
	ErrProposalExecuted = errors.New("proposal already executed")
	// ErrInvalidVoteOption indicates a support value outside {0, 1, 2}
	ErrInvalidVoteOption = errors.New("invalid vote option")
)

// event names
const (
	_eventProposalCreated  = "ProposalCreated"
	_eventVoteCast         = "VoteCast"
	_eventProposalQueued   = "ProposalQueued"
	_eventProposalExecuted = "ProposalExecuted"
	_eventProposalCanceled = "ProposalCanceled"
)

// VoteOption is a ballot choice
type VoteOption uint8

// ballot choices
const (
	VoteAgainst VoteOption = iota
	VoteFor
	VoteAbstain
)

// Status is a proposal's derived lifecycle state
type Status uint8

// proposal lifecycle states, in order
const (
	StatusPending Status = iota
	StatusActive
	StatusDefeated
	StatusSucceeded
	StatusQueued
	StatusExecuted
	StatusExpired
	StatusCanceled
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusDefeated:
		return "defeated"
	case StatusSucceeded:
		return "succeeded"
	case StatusQueued:
		return "queued"
	case StatusExecuted:
		return "executed"
	case StatusExpired:
		return "expired"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Params are the administrator-set governance parameters. Heights drive the
// voting window; wall time drives the timelock and its grace window.
type Params struct {
	// VotingDelay is the number of heights between proposal and voting start
	VotingDelay uint64
	// VotingPeriod is the voting window length in heights
	VotingPeriod uint64
	// ProposalThreshold is the minimum power required to propose
	ProposalThreshold *big.Int
	// Quorum is the minimum "for" weight for a proposal to pass
	Quorum *big.Int
	// TimelockDelay separates queueing from execution eligibility
	TimelockDelay time.Duration
	// ExecutionGrace is the window past eta before a queued proposal expires
	ExecutionGrace time.Duration
}

// Executor performs the approved migration inside the caller's working set.
// The migration protocol implements it.
type Executor interface {
	SwitchNow(ctx context.Context, sm protocol.StateManager, target address.Address) ([]*protocol.Log, error)
}

// Protocol defines the governance protocol
type Protocol struct {
	addr     address.Address
	genesis  Params
	executor Executor
}

// NewProtocol instantiates the governance protocol
func NewProtocol(genesis Params) *Protocol {
	return &Protocol{
		addr:    protocol.DeriveAddress(ProtocolID),
		genesis: genesis,
	}
}

// Name returns the protocol ID
func (p *Protocol) Name() string { return ProtocolID }

// SetExecutor wires the migration executor, once at setup
func (p *Protocol) SetExecutor(e Executor) { p.executor = e }

// FindProtocol finds the registered governance protocol
func FindProtocol(registry *protocol.Registry) *Protocol {
	if registry == nil {
		return nil
	}
	pp, ok := registry.Find(ProtocolID)
	if !ok {
		return nil
	}
	gp, ok := pp.(*Protocol)
	if !ok {
		return nil
	}
	return gp
}

var (
	_paramsKey = []byte("params")
	_countKey  = []byte("count")

	_proposalKeyPrefix   = []byte("p")
	_receiptKeyPrefix    = []byte("r")
	_checkpointKeyPrefix = []byte("c")
)

func proposalKey(id uint64) []byte {
	return append(_proposalKeyPrefix, byteutil.Uint64ToBytesBigEndian(id)...)
}

func receiptKey(id uint64, voter address.Address) []byte {
	key := append(_receiptKeyPrefix, byteutil.Uint64ToBytesBigEndian(id)...)
	return append(key, voter.Bytes()...)
}

func checkpointKey(account address.Address) []byte {
	return append(_checkpointKeyPrefix, account.Bytes()...)
}

func (p *Protocol) state(sr protocol.StateReader, key []byte, value interface{}) error {
	_, err := sr.State(value, protocol.NamespaceOption(Namespace), protocol.KeyOption(key))
	return err
}

func (p *Protocol) putState(sm protocol.StateManager, key []byte, value interface{}) error {
	_, err := sm.PutState(value, protocol.NamespaceOption(Namespace), protocol.KeyOption(key))
	return err
}

// CreateGenesisStates writes the parameter record and the id counter, once
func (p *Protocol) CreateGenesisStates(ctx context.Context, sm protocol.StateManager) error {
	var existing Params
	switch err := p.state(sm, _paramsKey, &existing); errors.Cause(err) {
	case nil:
		return errors.Wrap(protocol.ErrAlreadyInitialized, "governance params exist")
	case state.ErrStateNotExist:
	default:
		return err
	}
	params := p.genesis
	if params.ProposalThreshold == nil {
		params.ProposalThreshold = big.NewInt(0)
	}
	if params.Quorum == nil {
		params.Quorum = big.NewInt(0)
	}
	if err := p.putState(sm, _paramsKey, &params); err != nil {
		return err
	}
	count := proposalCount{}
	return p.putState(sm, _countKey, &count)
}

// Params returns the current governance parameters
func (p *Protocol) Params(sr protocol.StateReader) (*Params, error) {
	var params Params
	if err := p.state(sr, _paramsKey, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// SetParams replaces the governance parameters, authority only
func (p *Protocol) SetParams(ctx context.Context, sm protocol.StateManager, params Params) error {
	if !protocol.MustGetCallCtx(ctx).HasRole(protocol.RoleAdmin) {
		return errors.Wrap(protocol.ErrUnauthorized, "setting params requires the admin role")
	}
	if params.ProposalThreshold == nil || params.Quorum == nil {
		return errors.New("threshold and quorum must be set")
	}
	if params.VotingPeriod == 0 {
		return errors.New("voting period must be positive")
	}
	return p.putState(sm, _paramsKey, &params)
}

// proposalCount holds the latest assigned proposal id
type proposalCount struct {
	Latest uint64
}

// LatestProposalID returns the most recently assigned proposal id, zero when
// none exist
func (p *Protocol) LatestProposalID(sr protocol.StateReader) (uint64, error) {
	var count proposalCount
	if err := p.state(sr, _countKey, &count); err != nil {
		return 0, err
	}
	return count.Latest, nil
}
