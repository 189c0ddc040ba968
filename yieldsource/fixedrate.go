// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package yieldsource

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"
)

const (
	_bpsDenominator = 10000
	_secondsPerYear = 31536000 // 365 days
)

// FixedRateSource is a deterministic in-memory instrument accruing simple
// interest at a fixed rate between interactions, driven by an injected
// clock. An optional haircut charges a fractional loss on every withdrawal
// to simulate cross-instrument slippage.
type FixedRateSource struct {
	mu          sync.Mutex
	clk         clock.Clock
	rateBps     uint64
	haircutBps  uint64
	balance     *big.Int
	lastAccrual time.Time
}

// FixedRateOption sets a parameter of the fixed rate source
type FixedRateOption func(*FixedRateSource)

// WithClock sets the clock the source accrues on, for testing
func WithClock(c clock.Clock) FixedRateOption {
	return func(s *FixedRateSource) {
		s.clk = c
	}
}

// WithHaircut charges the given fraction, in basis points, on every withdrawal
func WithHaircut(bps uint64) FixedRateOption {
	return func(s *FixedRateSource) {
		s.haircutBps = bps
	}
}

// NewFixedRateSource creates a fixed rate source yielding rateBps per year
func NewFixedRateSource(rateBps uint64, opts ...FixedRateOption) *FixedRateSource {
	s := &FixedRateSource{
		clk:     clock.New(),
		rateBps: rateBps,
		balance: big.NewInt(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastAccrual = s.clk.Now()
	return s
}

// Deposit places amount into the instrument
func (s *FixedRateSource) Deposit(_ context.Context, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("deposit amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accrue()
	s.balance.Add(s.balance, amount)
	return nil
}

// Withdraw takes amount out, charging the configured haircut
func (s *FixedRateSource) Withdraw(_ context.Context, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("withdraw amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accrue()
	if amount.Cmp(s.balance) > 0 {
		return nil, errors.Wrapf(ErrInsufficientFunds, "requested %s, holding %s", amount, s.balance)
	}
	s.balance.Sub(s.balance, amount)
	recovered := new(big.Int).Mul(amount, big.NewInt(_bpsDenominator-int64(s.haircutBps)))
	recovered.Div(recovered, big.NewInt(_bpsDenominator))
	return recovered, nil
}

// ValueOf reports the current accrued value. The instrument holds one
// pooled position, so the holder identity is not consulted.
func (s *FixedRateSource) ValueOf(_ context.Context, _ address.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accrue()
	return new(big.Int).Set(s.balance), nil
}

// CurrentYield reports the fixed rate
func (s *FixedRateSource) CurrentYield(_ context.Context) (uint64, error) {
	return s.rateBps, nil
}

// accrue folds the simple interest earned since the last interaction into
// the balance, callers must hold the lock
func (s *FixedRateSource) accrue() {
	now := s.clk.Now()
	elapsed := now.Sub(s.lastAccrual)
	s.lastAccrual = now
	if elapsed <= 0 || s.balance.Sign() == 0 || s.rateBps == 0 {
		return
	}
	interest := new(big.Int).Mul(s.balance, new(big.Int).SetUint64(s.rateBps))
	interest.Mul(interest, big.NewInt(int64(elapsed/time.Second)))
	interest.Div(interest, big.NewInt(_bpsDenominator*_secondsPerYear))
	s.balance.Add(s.balance, interest)
}
