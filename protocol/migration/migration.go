// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package migration implements the strategy switch: relocating the entire
// pooled balance from one yield source to another in one atomic unit,
// wrapped with a whitelist, scheduling with a minimum delay, slippage
// bounds, and cancellation.
package migration

import (
	"context"
	"math/big"
	"time"

	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/protocol/vault"
	"github.com/switchvault/switchvault-core/state"
	"github.com/switchvault/switchvault-core/yieldsource"
)

// ProtocolID is the ID the migration protocol registers under
const ProtocolID = "migration"

// storage regions
const (
	// SourceListNamespace holds the whitelist and its insertion-order index
	SourceListNamespace = "SourceList"
	// Namespace holds the single pending migration record
	Namespace = "Migration"
)

var (
	// ErrSourceAlreadyWhitelisted indicates a second whitelist of one address
	ErrSourceAlreadyWhitelisted = errors.New("source already whitelisted")
	// ErrSourceNotWhitelisted indicates the address is not an active whitelist member
	ErrSourceNotWhitelisted = errors.New("source not whitelisted")
	// ErrSourceActive indicates an attempt to remove the current yield source
	ErrSourceActive = errors.New("source is the active yield source")
	// ErrSameSource indicates the migration target is already active
	ErrSameSource = errors.New("target is already the active source")
	// ErrUpgradeAlreadyScheduled indicates a pending migration is outstanding
	ErrUpgradeAlreadyScheduled = errors.New("an upgrade is already scheduled")
	// ErrNoUpgradeScheduled indicates no pending migration exists
	ErrNoUpgradeScheduled = errors.New("no upgrade scheduled")
	// ErrTimelockNotExpired indicates the scheduling delay has not elapsed
	ErrTimelockNotExpired = errors.New("timelock not expired")
	// ErrSlippageTooHigh indicates the post-migration balance fell below the caller's minimum
	ErrSlippageTooHigh = errors.New("post-migration balance below minimum")
	// ErrExceedsMaxSlippage indicates the fractional loss exceeded the configured ceiling
	ErrExceedsMaxSlippage = errors.New("migration loss exceeds the slippage ceiling")
	// ErrNoEligibleSource indicates the whitelist holds no active member
	ErrNoEligibleSource = errors.New("no eligible yield source")
)

// event names
const (
	_eventSourceWhitelisted = "SourceWhitelisted"
	_eventSourceRemoved     = "SourceRemoved"
	_eventStrategyUpgraded  = "StrategyUpgraded"
	_eventUpgradeScheduled  = "UpgradeScheduled"
	_eventUpgradeCancelled  = "UpgradeCancelled"
	_eventSlippage          = "MigrationSlippage"
)

const _bpsDenominator = 10000

// Config holds the migration safety parameters
type Config struct {
	// MinDelay is the minimum wait between scheduling and execution
	MinDelay time.Duration `yaml:"minDelay"`
	// MaxSlippageBps caps the fractional loss of any migration
	MaxSlippageBps uint64 `yaml:"maxSlippageBps"`
}

// DefaultConfig is the default migration configuration
var DefaultConfig = Config{
	MinDelay:       24 * time.Hour,
	MaxSlippageBps: 100,
}

// GenesisSource is one whitelist member written at initialization
type GenesisSource struct {
	Address address.Address
	Name    string
}

// Protocol defines the migration protocol
type Protocol struct {
	addr      address.Address
	cfg       Config
	vault     *vault.Protocol
	directory *yieldsource.Directory
	genesis   []GenesisSource
}

// NewProtocol instantiates the migration protocol
func NewProtocol(vp *vault.Protocol, directory *yieldsource.Directory, cfg Config, genesis []GenesisSource) *Protocol {
	return &Protocol{
		addr:      protocol.DeriveAddress(ProtocolID),
		cfg:       cfg,
		vault:     vp,
		directory: directory,
		genesis:   genesis,
	}
}

// Name returns the protocol ID
func (p *Protocol) Name() string { return ProtocolID }

// FindProtocol finds the registered migration protocol
func FindProtocol(registry *protocol.Registry) *Protocol {
	if registry == nil {
		return nil
	}
	pp, ok := registry.Find(ProtocolID)
	if !ok {
		return nil
	}
	mp, ok := pp.(*Protocol)
	if !ok {
		return nil
	}
	return mp
}

// CreateGenesisStates whitelists the initial sources, exactly once
func (p *Protocol) CreateGenesisStates(ctx context.Context, sm protocol.StateManager) error {
	var idx sourceIndex
	switch err := p.listState(sm, _indexKey, &idx); errors.Cause(err) {
	case nil:
		return errors.Wrap(protocol.ErrAlreadyInitialized, "source index exists")
	case state.ErrStateNotExist:
	default:
		return err
	}
	now := protocol.MustGetOpCtx(ctx).Timestamp
	for _, src := range p.genesis {
		if err := p.addSource(sm, src.Address, src.Name, now, &idx); err != nil {
			return err
		}
	}
	return p.putListState(sm, _indexKey, &idx)
}

// MaxSlippageBps returns the configured slippage ceiling
func (p *Protocol) MaxSlippageBps() uint64 { return p.cfg.MaxSlippageBps }

// MinDelay returns the configured scheduling delay
func (p *Protocol) MinDelay() time.Duration { return p.cfg.MinDelay }

// slippageWithinBound reports whether the loss from pre to post stays under
// the configured ceiling
func (p *Protocol) slippageWithinBound(pre, post *big.Int) bool {
	if pre.Sign() <= 0 || post.Cmp(pre) >= 0 {
		return true
	}
	loss := new(big.Int).Sub(pre, post)
	loss.Mul(loss, big.NewInt(_bpsDenominator))
	bound := new(big.Int).Mul(pre, new(big.Int).SetUint64(p.cfg.MaxSlippageBps))
	return loss.Cmp(bound) <= 0
}
