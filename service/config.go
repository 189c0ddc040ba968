// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package service

import (
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/protocol/migration"
	"github.com/switchvault/switchvault-core/yieldsource"
)

// source kinds
const (
	SourceKindFixedRate = "fixedrate"
	SourceKindHTTP      = "http"
)

type (
	// SourceConfig declares one yield source instrument
	SourceConfig struct {
		// Name is the unique handle the source's address derives from
		Name string `yaml:"name"`
		// Kind selects the instrument implementation
		Kind string `yaml:"kind"`
		// RateBps is the fixed-rate instrument's annual yield
		RateBps uint64 `yaml:"rateBps"`
		// HaircutBps is the fixed-rate instrument's withdrawal loss
		HaircutBps uint64 `yaml:"haircutBps"`
		// HTTP configures the REST instrument
		HTTP yieldsource.HTTPConfig `yaml:"http"`
	}

	// GovernanceConfig seeds the governance parameter record at genesis
	GovernanceConfig struct {
		VotingDelay       uint64        `yaml:"votingDelay"`
		VotingPeriod      uint64        `yaml:"votingPeriod"`
		ProposalThreshold string        `yaml:"proposalThreshold"`
		Quorum            string        `yaml:"quorum"`
		TimelockDelay     time.Duration `yaml:"timelockDelay"`
		ExecutionGrace    time.Duration `yaml:"executionGrace"`
	}

	// Config is the host service configuration
	Config struct {
		// Authority is the address holding the admin role
		Authority string `yaml:"authority"`
		// MinDeposit is the smallest accepted deposit, in base units
		MinDeposit string `yaml:"minDeposit"`
		// InitialSource names the source the vault starts on
		InitialSource string `yaml:"initialSource"`
		// Sources is the initial whitelist
		Sources []SourceConfig `yaml:"sources"`
		// Migration holds the switch safety parameters
		Migration migration.Config `yaml:"migration"`
		// Governance seeds the governance parameters
		Governance GovernanceConfig `yaml:"governance"`
		// HeightInterval is the cadence the operation height advances at
		// when no operations arrive
		HeightInterval time.Duration `yaml:"heightInterval"`
		// PollInterval is the yield sampling cadence
		PollInterval time.Duration `yaml:"pollInterval"`
		// KeeperInterval is the cadence of due-upgrade execution checks
		KeeperInterval time.Duration `yaml:"keeperInterval"`
	}
)

// DefaultConfig is the default service configuration
var DefaultConfig = Config{
	MinDeposit:    "1",
	InitialSource: "simulated",
	Sources: []SourceConfig{
		{Name: "simulated", Kind: SourceKindFixedRate, RateBps: 510},
	},
	Migration: migration.DefaultConfig,
	Governance: GovernanceConfig{
		VotingDelay:       1,
		VotingPeriod:      120,
		ProposalThreshold: "100",
		Quorum:            "1000",
		TimelockDelay:     24 * time.Hour,
		ExecutionGrace:    7 * 24 * time.Hour,
	},
	HeightInterval: 10 * time.Second,
	PollInterval:   time.Minute,
	KeeperInterval: time.Minute,
}

// Validate checks the configuration for internal consistency
func (cfg Config) Validate() error {
	if cfg.Authority == "" {
		return errors.New("authority is not set")
	}
	if _, ok := new(big.Int).SetString(cfg.MinDeposit, 10); !ok {
		return errors.Errorf("invalid minimum deposit %q", cfg.MinDeposit)
	}
	if _, ok := new(big.Int).SetString(cfg.Governance.ProposalThreshold, 10); !ok {
		return errors.Errorf("invalid proposal threshold %q", cfg.Governance.ProposalThreshold)
	}
	if _, ok := new(big.Int).SetString(cfg.Governance.Quorum, 10); !ok {
		return errors.Errorf("invalid quorum %q", cfg.Governance.Quorum)
	}
	if cfg.Governance.VotingPeriod == 0 {
		return errors.New("voting period must be positive")
	}
	names := make(map[string]struct{}, len(cfg.Sources))
	for _, src := range cfg.Sources {
		if src.Name == "" {
			return errors.New("source name is not set")
		}
		if _, ok := names[src.Name]; ok {
			return errors.Errorf("duplicate source name %q", src.Name)
		}
		names[src.Name] = struct{}{}
		switch src.Kind {
		case SourceKindFixedRate:
		case SourceKindHTTP:
			if src.HTTP.BaseURL == "" {
				return errors.Errorf("source %q has no base URL", src.Name)
			}
		default:
			return errors.Errorf("unknown source kind %q", src.Kind)
		}
	}
	if _, ok := names[cfg.InitialSource]; !ok {
		return errors.Errorf("initial source %q is not declared", cfg.InitialSource)
	}
	return nil
}
