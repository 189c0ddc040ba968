// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package e2etest drives full depositor, migration, and governance scenarios
// through the assembled service.
package e2etest

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/switchvault/switchvault-core/db"
	"github.com/switchvault/switchvault-core/protocol/governance"
	"github.com/switchvault/switchvault-core/protocol/migration"
	"github.com/switchvault/switchvault-core/service"
	"github.com/switchvault/switchvault-core/test/identityset"
)

var _baseConfig = func() service.Config {
	cfg := service.DefaultConfig
	cfg.Authority = identityset.Address(0).String()
	cfg.MinDeposit = "100"
	cfg.InitialSource = "steady"
	cfg.Sources = []service.SourceConfig{
		{Name: "steady", Kind: service.SourceKindFixedRate, RateBps: 510},
		{Name: "boosted", Kind: service.SourceKindFixedRate, RateBps: 800},
		{Name: "risky", Kind: service.SourceKindFixedRate, RateBps: 1200, HaircutBps: 0},
	}
	cfg.Migration = migration.Config{MinDelay: 24 * time.Hour, MaxSlippageBps: 100}
	cfg.Governance = service.GovernanceConfig{
		VotingDelay:       1,
		VotingPeriod:      3,
		ProposalThreshold: "100",
		Quorum:            "1000",
		TimelockDelay:     24 * time.Hour,
		ExecutionGrace:    7 * 24 * time.Hour,
	}
	cfg.HeightInterval = 0
	cfg.PollInterval = 0
	cfg.KeeperInterval = 0
	return cfg
}()

func testConfig() service.Config {
	return deepcopy.Copy(_baseConfig).(service.Config)
}

func newService(t *testing.T, cfg service.Config) (*service.Service, *clock.Mock) {
	r := require.New(t)
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	svc, err := service.New(cfg, db.NewMemKVStore(), service.WithClock(clk))
	r.NoError(err)
	r.NoError(svc.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, svc.Stop(context.Background()))
	})
	return svc, clk
}

func TestDepositYieldWithdrawLifecycle(t *testing.T) {
	r := require.New(t)
	svc, clk := newService(t, testConfig())
	alice := identityset.Address(1)
	bob := identityset.Address(2)

	aliceShares, _, err := svc.Deposit(alice, big.NewInt(10000))
	r.NoError(err)
	r.Equal(big.NewInt(10000), aliceShares)
	bobShares, _, err := svc.Deposit(bob, big.NewInt(5000))
	r.NoError(err)
	r.Equal(big.NewInt(5000), bobShares)

	clk.Add(365 * 24 * time.Hour)

	// 510 bps over a year, split pro-rata
	aliceOut, _, err := svc.Withdraw(alice, aliceShares)
	r.NoError(err)
	r.Equal(big.NewInt(10510), aliceOut)
	bobOut, _, err := svc.Withdraw(bob, bobShares)
	r.NoError(err)
	r.Equal(big.NewInt(5255), bobOut)

	shares, err := svc.TotalShares()
	r.NoError(err)
	r.Zero(shares.Sign())
	assets, err := svc.TotalAssets()
	r.NoError(err)
	r.Zero(assets.Sign())
}

func TestPausedVaultRefusesTraffic(t *testing.T) {
	r := require.New(t)
	svc, _ := newService(t, testConfig())
	operator := identityset.Address(0)
	alice := identityset.Address(1)

	shares, _, err := svc.Deposit(alice, big.NewInt(10000))
	r.NoError(err)
	_, err = svc.Pause(operator)
	r.NoError(err)

	_, _, err = svc.Deposit(alice, big.NewInt(10000))
	r.Error(err)
	_, _, err = svc.Withdraw(alice, shares)
	r.Error(err)

	_, err = svc.Unpause(operator)
	r.NoError(err)
	_, _, err = svc.Withdraw(alice, shares)
	r.NoError(err)
}

func TestGovernanceDrivenMigration(t *testing.T) {
	r := require.New(t)
	svc, clk := newService(t, testConfig())
	alice := identityset.Address(1)
	bob := identityset.Address(2)
	filler := identityset.Address(9)

	_, _, err := svc.Deposit(alice, big.NewInt(10000))
	r.NoError(err)
	_, _, err = svc.Deposit(bob, big.NewInt(2000))
	r.NoError(err)

	target := service.SourceAddress("boosted")
	id, _, err := svc.Propose(alice, target, "chase the better rate")
	r.NoError(err)

	// voting opens one height after the proposal
	_, err = svc.CastVote(alice, id, governance.VoteFor, "")
	r.NoError(err)
	_, err = svc.CastVote(bob, id, governance.VoteAgainst, "too risky")
	r.NoError(err)

	// idle operations carry the height past the voting window
	for i := 0; i < 5; i++ {
		status, err := svc.ProposalStatus(id)
		r.NoError(err)
		if status != governance.StatusActive {
			break
		}
		_, _, err = svc.Deposit(filler, big.NewInt(100))
		r.NoError(err)
	}
	status, err := svc.ProposalStatus(id)
	r.NoError(err)
	r.Equal(governance.StatusSucceeded, status)

	_, err = svc.Queue(alice, id)
	r.NoError(err)

	// the timelock still holds
	_, err = svc.Execute(alice, id)
	r.Equal(governance.ErrTimelockNotExpired, errors.Cause(err))

	clk.Add(24*time.Hour + time.Second)
	_, err = svc.Execute(alice, id)
	r.NoError(err)

	active, err := svc.ActiveSource()
	r.NoError(err)
	r.Equal(target.String(), active.String())
	status, err = svc.ProposalStatus(id)
	r.NoError(err)
	r.Equal(governance.StatusExecuted, status)
}

func TestDefeatedProposalNeverExecutes(t *testing.T) {
	r := require.New(t)
	svc, _ := newService(t, testConfig())
	alice := identityset.Address(1)
	bob := identityset.Address(2)
	filler := identityset.Address(9)

	_, _, err := svc.Deposit(alice, big.NewInt(2000))
	r.NoError(err)
	_, _, err = svc.Deposit(bob, big.NewInt(5000))
	r.NoError(err)

	id, _, err := svc.Propose(alice, service.SourceAddress("boosted"), "")
	r.NoError(err)
	_, err = svc.CastVote(alice, id, governance.VoteFor, "")
	r.NoError(err)
	_, err = svc.CastVote(bob, id, governance.VoteAgainst, "")
	r.NoError(err)
	for i := 0; i < 5; i++ {
		_, _, err = svc.Deposit(filler, big.NewInt(100))
		r.NoError(err)
	}

	status, err := svc.ProposalStatus(id)
	r.NoError(err)
	r.Equal(governance.StatusDefeated, status)
	_, err = svc.Queue(alice, id)
	r.Equal(governance.ErrProposalNotSucceeded, errors.Cause(err))

	active, err := svc.ActiveSource()
	r.NoError(err)
	r.Equal(service.SourceAddress("steady").String(), active.String())
}

func TestScheduledUpgradeLifecycle(t *testing.T) {
	r := require.New(t)
	svc, clk := newService(t, testConfig())
	operator := identityset.Address(0)

	_, _, err := svc.Deposit(identityset.Address(1), big.NewInt(10000))
	r.NoError(err)

	target := service.SourceAddress("boosted")
	_, err = svc.ScheduleUpgrade(operator, target)
	r.NoError(err)
	pending, err := svc.PendingUpgrade()
	r.NoError(err)
	r.Equal(target.String(), pending.Target)

	// too early
	_, err = svc.ExecuteUpgrade(operator, nil)
	r.Equal(migration.ErrTimelockNotExpired, errors.Cause(err))

	clk.Add(24*time.Hour + time.Second)
	_, err = svc.ExecuteUpgrade(operator, nil)
	r.NoError(err)
	active, err := svc.ActiveSource()
	r.NoError(err)
	r.Equal(target.String(), active.String())

	// one-shot: the request is consumed
	_, err = svc.PendingUpgrade()
	r.Equal(migration.ErrNoUpgradeScheduled, errors.Cause(err))
}

func TestMigrationSlippageSafety(t *testing.T) {
	r := require.New(t)
	cfg := testConfig()
	// liquidating the starting source costs 200 bps, above the 100 bps ceiling
	cfg.Sources[0].HaircutBps = 200
	svc, clk := newService(t, cfg)
	operator := identityset.Address(0)

	_, _, err := svc.Deposit(identityset.Address(1), big.NewInt(10000))
	r.NoError(err)
	_, err = svc.ScheduleUpgrade(operator, service.SourceAddress("boosted"))
	r.NoError(err)
	clk.Add(24*time.Hour + time.Second)

	_, err = svc.ExecuteUpgrade(operator, nil)
	r.Equal(migration.ErrExceedsMaxSlippage, errors.Cause(err))

	// the vault stays where it was, with the book intact
	active, err := svc.ActiveSource()
	r.NoError(err)
	r.Equal(service.SourceAddress("steady").String(), active.String())
	total, err := svc.TotalAssets()
	r.NoError(err)
	r.Equal(big.NewInt(10000), total)
}
