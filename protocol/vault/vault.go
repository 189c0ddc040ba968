// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package vault implements the share-accounting engine: deposits price into
// proportional claim units against the pooled balance, withdrawals price
// back out after a mandatory resync against the active yield source. All
// ratios use floor division, so rounding error always favors the vault.
package vault

import (
	"context"
	"math/big"
	"time"

	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/state"
	"github.com/switchvault/switchvault-core/yieldsource"
)

// ProtocolID is the ID the vault protocol registers under
const ProtocolID = "vault"

// Namespace is the vault's storage region
const Namespace = "Vault"

var (
	// ErrZeroAmount indicates a zero or negative amount
	ErrZeroAmount = errors.New("amount must be positive")
	// ErrDepositTooSmall indicates a deposit below the configured minimum
	ErrDepositTooSmall = errors.New("deposit below minimum")
	// ErrInsufficientShares indicates a withdrawal beyond the held shares
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrVaultPaused indicates the vault rejects deposits and withdrawals
	ErrVaultPaused = errors.New("vault is paused")
	// ErrNoActiveSource indicates no yield source is set
	ErrNoActiveSource = errors.New("no active yield source")
)

// event names
const (
	_eventDeposit         = "Deposit"
	_eventWithdraw        = "Withdraw"
	_eventEmergencyPaused = "EmergencyPaused"
)

// PowerRecorder receives a checkpoint after every share balance change.
// Governance implements it to track historical voting power.
type PowerRecorder interface {
	RecordVotingPower(ctx context.Context, sm protocol.StateManager, account address.Address, power *big.Int) error
}

// Genesis is the vault's initial configuration
type Genesis struct {
	Authority     address.Address
	MinDeposit    *big.Int
	InitialSource address.Address
}

// Protocol defines the vault protocol
type Protocol struct {
	addr          address.Address
	directory     *yieldsource.Directory
	powerRecorder PowerRecorder
	genesis       Genesis
}

// NewProtocol instantiates the vault protocol
func NewProtocol(directory *yieldsource.Directory, genesis Genesis) *Protocol {
	return &Protocol{
		addr:      protocol.DeriveAddress(ProtocolID),
		directory: directory,
		genesis:   genesis,
	}
}

// Name returns the protocol ID
func (p *Protocol) Name() string { return ProtocolID }

// Address returns the vault's derived address, the identity it holds
// external positions under
func (p *Protocol) Address() address.Address { return p.addr }

// SetPowerRecorder wires the governance checkpoint hook, once at setup
func (p *Protocol) SetPowerRecorder(r PowerRecorder) { p.powerRecorder = r }

// FindProtocol finds the registered vault protocol
func FindProtocol(registry *protocol.Registry) *Protocol {
	if registry == nil {
		return nil
	}
	pp, ok := registry.Find(ProtocolID)
	if !ok {
		return nil
	}
	vp, ok := pp.(*Protocol)
	if !ok {
		return nil
	}
	return vp
}

// CreateGenesisStates writes the vault's initial records, exactly once
func (p *Protocol) CreateGenesisStates(ctx context.Context, sm protocol.StateManager) error {
	var existing vaultConfig
	switch err := p.state(sm, _configKey, &existing); errors.Cause(err) {
	case nil:
		return errors.Wrap(protocol.ErrAlreadyInitialized, "vault config exists")
	case state.ErrStateNotExist:
	default:
		return err
	}
	minDeposit := p.genesis.MinDeposit
	if minDeposit == nil {
		minDeposit = big.NewInt(0)
	}
	cfg := vaultConfig{
		Authority:  p.genesis.Authority.String(),
		MinDeposit: minDeposit,
	}
	if err := p.putState(sm, _configKey, &cfg); err != nil {
		return err
	}
	tot := totals{TotalShares: big.NewInt(0), TotalAssets: big.NewInt(0)}
	if err := p.putState(sm, _totalsKey, &tot); err != nil {
		return err
	}
	src := activeSource{}
	if p.genesis.InitialSource != nil {
		src.Current = p.genesis.InitialSource.String()
	}
	return p.putState(sm, _sourceKey, &src)
}

// Pause stops deposits and withdrawals, authority only
func (p *Protocol) Pause(ctx context.Context, sm protocol.StateManager) (*protocol.Log, error) {
	return p.setPaused(ctx, sm, true)
}

// Unpause resumes deposits and withdrawals, authority only
func (p *Protocol) Unpause(ctx context.Context, sm protocol.StateManager) (*protocol.Log, error) {
	return p.setPaused(ctx, sm, false)
}

func (p *Protocol) setPaused(ctx context.Context, sm protocol.StateManager, paused bool) (*protocol.Log, error) {
	if !protocol.MustGetCallCtx(ctx).HasRole(protocol.RoleAdmin) {
		return nil, errors.Wrap(protocol.ErrUnauthorized, "pause requires the admin role")
	}
	var cfg vaultConfig
	if err := p.state(sm, _configKey, &cfg); err != nil {
		return nil, err
	}
	cfg.Paused = paused
	if err := p.putState(sm, _configKey, &cfg); err != nil {
		return nil, err
	}
	rLog := protocol.NewReceiptLog(p.addr.String(), _eventEmergencyPaused)
	rLog.AddAddress(protocol.MustGetCallCtx(ctx).Caller)
	flag := []byte{0}
	if paused {
		flag = []byte{1}
	}
	rLog.SetData(flag)
	return rLog.Build(), nil
}

// SetMinDeposit updates the minimum deposit, authority only
func (p *Protocol) SetMinDeposit(ctx context.Context, sm protocol.StateManager, amount *big.Int) error {
	if !protocol.MustGetCallCtx(ctx).HasRole(protocol.RoleAdmin) {
		return errors.Wrap(protocol.ErrUnauthorized, "set min deposit requires the admin role")
	}
	if amount == nil || amount.Sign() < 0 {
		return errors.Wrap(ErrZeroAmount, "minimum deposit cannot be negative")
	}
	var cfg vaultConfig
	if err := p.state(sm, _configKey, &cfg); err != nil {
		return err
	}
	cfg.MinDeposit = amount
	return p.putState(sm, _configKey, &cfg)
}

// TotalShares returns the outstanding share supply
func (p *Protocol) TotalShares(sr protocol.StateReader) (*big.Int, error) {
	var tot totals
	if err := p.state(sr, _totalsKey, &tot); err != nil {
		return nil, err
	}
	return tot.TotalShares, nil
}

// TotalAssets returns the booked pooled balance
func (p *Protocol) TotalAssets(sr protocol.StateReader) (*big.Int, error) {
	var tot totals
	if err := p.state(sr, _totalsKey, &tot); err != nil {
		return nil, err
	}
	return tot.TotalAssets, nil
}

// ShareBalance returns an account's share balance
func (p *Protocol) ShareBalance(sr protocol.StateReader, addr address.Address) (*big.Int, error) {
	acc, err := p.loadAccount(sr, addr)
	if err != nil {
		return nil, err
	}
	return acc.Shares, nil
}

// MinDeposit returns the configured minimum deposit
func (p *Protocol) MinDeposit(sr protocol.StateReader) (*big.Int, error) {
	var cfg vaultConfig
	if err := p.state(sr, _configKey, &cfg); err != nil {
		return nil, err
	}
	return cfg.MinDeposit, nil
}

// Paused returns whether the vault is paused
func (p *Protocol) Paused(sr protocol.StateReader) (bool, error) {
	var cfg vaultConfig
	if err := p.state(sr, _configKey, &cfg); err != nil {
		return false, err
	}
	return cfg.Paused, nil
}

// Authority returns the stored authority
func (p *Protocol) Authority(sr protocol.StateReader) (address.Address, error) {
	var cfg vaultConfig
	if err := p.state(sr, _configKey, &cfg); err != nil {
		return nil, err
	}
	return address.FromString(cfg.Authority)
}

// ActiveSource returns the current yield source, nil when unset
func (p *Protocol) ActiveSource(sr protocol.StateReader) (address.Address, error) {
	var src activeSource
	if err := p.state(sr, _sourceKey, &src); err != nil {
		return nil, err
	}
	if src.Current == "" {
		return nil, nil
	}
	return address.FromString(src.Current)
}

// MigrationCount returns how many migrations have executed
func (p *Protocol) MigrationCount(sr protocol.StateReader) (uint64, error) {
	var src activeSource
	if err := p.state(sr, _sourceKey, &src); err != nil {
		return 0, err
	}
	return src.MigrationCount, nil
}

// LastMigration returns the timestamp of the latest migration
func (p *Protocol) LastMigration(sr protocol.StateReader) (time.Time, error) {
	var src activeSource
	if err := p.state(sr, _sourceKey, &src); err != nil {
		return time.Time{}, err
	}
	return src.LastMigration, nil
}

// SwitchSource points the vault at a new yield source and records the
// migration. Only the migration controller calls this; share balances and
// TotalShares are never touched.
func (p *Protocol) SwitchSource(ctx context.Context, sm protocol.StateManager, newSource address.Address, at time.Time) error {
	var src activeSource
	if err := p.state(sm, _sourceKey, &src); err != nil {
		return err
	}
	src.Current = newSource.String()
	src.LastMigration = at
	src.MigrationCount++
	return p.putState(sm, _sourceKey, &src)
}

// ResyncAssets books the externally-observed pooled value into TotalAssets
func (p *Protocol) ResyncAssets(ctx context.Context, sm protocol.StateManager, value *big.Int) error {
	var tot totals
	if err := p.state(sm, _totalsKey, &tot); err != nil {
		return err
	}
	tot.TotalAssets = new(big.Int).Set(value)
	return p.putState(sm, _totalsKey, &tot)
}
