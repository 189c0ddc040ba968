// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package service

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/switchvault/switchvault-core/pkg/log"
	"github.com/switchvault/switchvault-core/protocol/migration"
)

var (
	_totalAssetsMtc = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "switchvault_total_assets",
		Help: "booked pooled balance",
	})
	_totalSharesMtc = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "switchvault_total_shares",
		Help: "outstanding share supply",
	})
	_externalValueMtc = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "switchvault_external_value",
		Help: "value reported by the active yield source",
	})
	_currentYieldMtc = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "switchvault_current_yield_bps",
		Help: "active source yield in basis points per year",
	})
)

func init() {
	prometheus.MustRegister(_totalAssetsMtc, _totalSharesMtc, _externalValueMtc, _currentYieldMtc)
}

// pollYield samples the book and the active instrument into the gauges.
// Sampling never mutates state; the external value gauge drifting above the
// booked balance is how accrued-but-unbooked yield shows up on a dashboard.
func (s *Service) pollYield() {
	ro, err := s.readOnly()
	if err != nil {
		return
	}
	assets, err := s.vault.TotalAssets(ro)
	if err != nil {
		log.L().Error("Failed to read total assets.", zap.Error(err))
		return
	}
	shares, err := s.vault.TotalShares(ro)
	if err != nil {
		log.L().Error("Failed to read total shares.", zap.Error(err))
		return
	}
	_totalAssetsMtc.Set(gaugeValue(assets))
	_totalSharesMtc.Set(gaugeValue(shares))

	active, err := s.vault.ActiveSource(ro)
	if err != nil || active == nil {
		return
	}
	src, err := s.directory.Resolve(active)
	if err != nil {
		log.L().Error("Active source has no registered instrument.", zap.String("source", active.String()), zap.Error(err))
		return
	}
	ctx := context.Background()
	value, err := src.ValueOf(ctx, s.vault.Address())
	if err != nil {
		log.L().Warn("Failed to sample the active source value.", zap.String("source", active.String()), zap.Error(err))
		return
	}
	yield, err := src.CurrentYield(ctx)
	if err != nil {
		log.L().Warn("Failed to sample the active source yield.", zap.String("source", active.String()), zap.Error(err))
		return
	}
	_externalValueMtc.Set(gaugeValue(value))
	_currentYieldMtc.Set(float64(yield))
}

// runKeeper executes a scheduled upgrade once its delay has elapsed, under
// the operator with a floor of the booked balance less the slippage ceiling
func (s *Service) runKeeper() {
	ro, err := s.readOnly()
	if err != nil {
		return
	}
	pending, err := s.migration.Pending(ro)
	if err != nil {
		if errors.Cause(err) != migration.ErrNoUpgradeScheduled {
			log.L().Error("Failed to read the pending upgrade.", zap.Error(err))
		}
		return
	}
	if s.clk.Now().Before(pending.ExecutableAt) {
		return
	}
	assets, err := s.vault.TotalAssets(ro)
	if err != nil {
		log.L().Error("Failed to read total assets.", zap.Error(err))
		return
	}
	// minOut = assets * (10000 - ceiling) / 10000
	minOut := new(big.Int).Mul(assets, big.NewInt(int64(10000-s.migration.MaxSlippageBps())))
	minOut.Div(minOut, big.NewInt(10000))

	receipt, err := s.ExecuteUpgrade(s.authority, minOut)
	if err != nil {
		log.L().Warn("Keeper failed to execute the scheduled upgrade.",
			zap.String("target", pending.Target), zap.Error(err))
		return
	}
	log.L().Info("Keeper executed the scheduled upgrade.",
		zap.String("target", pending.Target),
		zap.Uint64("height", receipt.Height))
}

func gaugeValue(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
