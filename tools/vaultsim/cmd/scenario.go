// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package cmd

import (
	"context"
	"math/big"
	"time"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/db"
	"github.com/switchvault/switchvault-core/protocol/migration"
	"github.com/switchvault/switchvault-core/service"
	"github.com/switchvault/switchvault-core/test/identityset"
)

// Scenario describes one synthetic traffic run
type Scenario struct {
	// Days is the simulated horizon
	Days int `yaml:"days"`
	// Depositors is the number of synthetic accounts
	Depositors int `yaml:"depositors"`
	// Amount is each account's deposit in base units
	Amount string `yaml:"amount"`
	// RateBps is the starting source's annual yield
	RateBps uint64 `yaml:"rateBps"`
	// UpgradeRateBps is the migration target's annual yield, zero for no
	// migration
	UpgradeRateBps uint64 `yaml:"upgradeRateBps"`
	// UpgradeDay is the day the operator switches sources
	UpgradeDay int `yaml:"upgradeDay"`
	// HaircutBps is the starting source's withdrawal loss, felt at migration
	HaircutBps uint64 `yaml:"haircutBps"`
}

// DefaultScenario is a quarter of ten depositors riding one mid-run upgrade
var DefaultScenario = Scenario{
	Days:           90,
	Depositors:     10,
	Amount:         "1000000",
	RateBps:        510,
	UpgradeRateBps: 800,
	UpgradeDay:     45,
}

// Validate checks the scenario for internal consistency
func (sc Scenario) Validate() error {
	if sc.Days <= 0 {
		return errors.New("days must be positive")
	}
	if sc.Depositors <= 0 {
		return errors.New("depositors must be positive")
	}
	// account 0 is the operator
	if sc.Depositors >= identityset.Size() {
		return errors.Errorf("at most %d depositors", identityset.Size()-1)
	}
	if _, ok := new(big.Int).SetString(sc.Amount, 10); !ok {
		return errors.Errorf("invalid amount %q", sc.Amount)
	}
	if sc.UpgradeRateBps > 0 && (sc.UpgradeDay <= 0 || sc.UpgradeDay >= sc.Days) {
		return errors.New("upgrade day must fall inside the horizon")
	}
	return nil
}

// AccountResult is one depositor's outcome
type AccountResult struct {
	Account   string
	Deposited *big.Int
	Withdrawn *big.Int
}

// Result is the outcome of one scenario run
type Result struct {
	RateBps     uint64
	Accounts    []AccountResult
	TotalIn     *big.Int
	TotalOut    *big.Int
	FinalSource string
}

// Yield returns the realized gain over the run
func (r *Result) Yield() *big.Int {
	return new(big.Int).Sub(r.TotalOut, r.TotalIn)
}

// simulate drives a fresh in-memory service through the scenario. The
// progress callback, if set, fires once per simulated day.
func simulate(sc Scenario, progress func(day int)) (*Result, error) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))

	cfg := service.DefaultConfig
	cfg.Authority = identityset.Address(0).String()
	cfg.MinDeposit = "1"
	cfg.InitialSource = "base"
	cfg.Sources = []service.SourceConfig{
		{Name: "base", Kind: service.SourceKindFixedRate, RateBps: sc.RateBps, HaircutBps: sc.HaircutBps},
	}
	if sc.UpgradeRateBps > 0 {
		cfg.Sources = append(cfg.Sources,
			service.SourceConfig{Name: "upgrade", Kind: service.SourceKindFixedRate, RateBps: sc.UpgradeRateBps})
	}
	cfg.Migration = migration.Config{MinDelay: time.Hour, MaxSlippageBps: 10000}
	cfg.HeightInterval = 0
	cfg.PollInterval = 0
	cfg.KeeperInterval = 0

	svc, err := service.New(cfg, db.NewMemKVStore(), service.WithClock(clk))
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = svc.Stop(ctx)
	}()

	amount, _ := new(big.Int).SetString(sc.Amount, 10)
	totalIn := new(big.Int)
	for i := 1; i <= sc.Depositors; i++ {
		if _, _, err := svc.Deposit(identityset.Address(i), amount); err != nil {
			return nil, errors.Wrapf(err, "deposit %d failed", i)
		}
		totalIn.Add(totalIn, amount)
	}

	operator := identityset.Address(0)
	for day := 1; day <= sc.Days; day++ {
		clk.Add(24 * time.Hour)
		if sc.UpgradeRateBps > 0 && day == sc.UpgradeDay {
			if _, err := svc.SwitchNow(operator, service.SourceAddress("upgrade")); err != nil {
				return nil, errors.Wrap(err, "migration failed")
			}
		}
		if progress != nil {
			progress(day)
		}
	}

	res := &Result{RateBps: sc.RateBps, TotalIn: totalIn, TotalOut: new(big.Int)}
	for i := 1; i <= sc.Depositors; i++ {
		addr := identityset.Address(i)
		shares, err := svc.ShareBalance(addr)
		if err != nil {
			return nil, err
		}
		out, _, err := svc.Withdraw(addr, shares)
		if err != nil {
			return nil, errors.Wrapf(err, "withdraw %d failed", i)
		}
		res.Accounts = append(res.Accounts, AccountResult{
			Account:   addr.String(),
			Deposited: amount,
			Withdrawn: out,
		})
		res.TotalOut.Add(res.TotalOut, out)
	}
	active, err := svc.ActiveSource()
	if err != nil {
		return nil, err
	}
	res.FinalSource = active.String()
	return res, nil
}
