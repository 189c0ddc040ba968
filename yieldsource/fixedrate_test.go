// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package yieldsource

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestFixedRateAccrual(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	clk := clock.NewMock()
	src := NewFixedRateSource(510, WithClock(clk))

	require.NoError(src.Deposit(ctx, big.NewInt(10000)))
	v, err := src.ValueOf(ctx, nil)
	require.NoError(err)
	require.Zero(big.NewInt(10000).Cmp(v))

	// one year at 510 bps accrues 510 units
	clk.Add(365 * 24 * time.Hour)
	v, err = src.ValueOf(ctx, nil)
	require.NoError(err)
	require.Zero(big.NewInt(10510).Cmp(v))

	rate, err := src.CurrentYield(ctx)
	require.NoError(err)
	require.Equal(uint64(510), rate)
}

func TestFixedRateWithdraw(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	clk := clock.NewMock()
	src := NewFixedRateSource(0, WithClock(clk))

	require.NoError(src.Deposit(ctx, big.NewInt(1000)))

	_, err := src.Withdraw(ctx, big.NewInt(1001))
	require.Equal(ErrInsufficientFunds, errors.Cause(err))

	recovered, err := src.Withdraw(ctx, big.NewInt(400))
	require.NoError(err)
	require.Zero(big.NewInt(400).Cmp(recovered))

	v, err := src.ValueOf(ctx, nil)
	require.NoError(err)
	require.Zero(big.NewInt(600).Cmp(v))
}

func TestFixedRateHaircut(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	src := NewFixedRateSource(0, WithClock(clock.NewMock()), WithHaircut(50))

	require.NoError(src.Deposit(ctx, big.NewInt(10000)))
	recovered, err := src.Withdraw(ctx, big.NewInt(10000))
	require.NoError(err)
	// 50 bps haircut keeps 99.5%
	require.Zero(big.NewInt(9950).Cmp(recovered))
}

func TestFixedRateGuards(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	src := NewFixedRateSource(100)

	require.Error(src.Deposit(ctx, big.NewInt(0)))
	require.Error(src.Deposit(ctx, nil))
	_, err := src.Withdraw(ctx, big.NewInt(-1))
	require.Error(err)
}
