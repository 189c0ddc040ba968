// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package vault

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/switchvault/switchvault-core/db"
	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/statestore"
	"github.com/switchvault/switchvault-core/test/identityset"
	"github.com/switchvault/switchvault-core/yieldsource"
)

type testVault struct {
	p     *Protocol
	store *statestore.StateStore
	dir   *yieldsource.Directory
	src   *yieldsource.FixedRateSource
	clk   *clock.Mock
}

func newTestVault(t *testing.T, rateBps uint64, opts ...yieldsource.FixedRateOption) *testVault {
	require := require.New(t)
	clk := clock.NewMock()
	opts = append([]yieldsource.FixedRateOption{yieldsource.WithClock(clk)}, opts...)
	src := yieldsource.NewFixedRateSource(rateBps, opts...)
	dir := yieldsource.NewDirectory()
	srcAddr := identityset.Address(10)
	require.NoError(dir.Register(srcAddr, src))

	p := NewProtocol(dir, Genesis{
		Authority:     identityset.Address(0),
		MinDeposit:    big.NewInt(100),
		InitialSource: srcAddr,
	})
	store := statestore.NewStateStore(db.NewMemKVStore())
	require.NoError(store.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(store.Stop(context.Background()))
	})

	ws, err := store.NewWorkingSet()
	require.NoError(err)
	require.NoError(p.CreateGenesisStates(context.Background(), ws))
	require.NoError(ws.Commit())
	return &testVault{p: p, store: store, dir: dir, src: src, clk: clk}
}

func (v *testVault) callCtx(caller int, roles ...protocol.Role) context.Context {
	return protocol.WithCallCtx(context.Background(), protocol.CallCtx{
		Caller: identityset.Address(caller),
		Roles:  roles,
	})
}

func (v *testVault) deposit(t *testing.T, caller int, amount int64) *big.Int {
	t.Helper()
	require := require.New(t)
	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	shares, _, err := v.p.Deposit(v.callCtx(caller), ws, big.NewInt(amount))
	require.NoError(err)
	require.NoError(ws.Commit())
	return shares
}

func (v *testVault) withdraw(t *testing.T, caller int, shares *big.Int) *big.Int {
	t.Helper()
	require := require.New(t)
	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	paid, _, err := v.p.Withdraw(v.callCtx(caller), ws, shares)
	require.NoError(err)
	require.NoError(ws.Commit())
	return paid
}

func TestGenesisOnce(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)

	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	err = v.p.CreateGenesisStates(context.Background(), ws)
	require.Equal(protocol.ErrAlreadyInitialized, errors.Cause(err))

	ro, err := v.store.ReadOnly()
	require.NoError(err)
	min, err := v.p.MinDeposit(ro)
	require.NoError(err)
	require.Zero(big.NewInt(100).Cmp(min))
	auth, err := v.p.Authority(ro)
	require.NoError(err)
	require.Equal(identityset.Address(0).String(), auth.String())
	active, err := v.p.ActiveSource(ro)
	require.NoError(err)
	require.Equal(identityset.Address(10).String(), active.String())
}

func TestBootstrapDepositPricesOneToOne(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)

	shares := v.deposit(t, 1, 10000)
	require.Zero(big.NewInt(10000).Cmp(shares))

	ro, err := v.store.ReadOnly()
	require.NoError(err)
	tot, err := v.p.TotalShares(ro)
	require.NoError(err)
	require.Zero(big.NewInt(10000).Cmp(tot))
	assets, err := v.p.TotalAssets(ro)
	require.NoError(err)
	require.Zero(big.NewInt(10000).Cmp(assets))
	bal, err := v.p.ShareBalance(ro, identityset.Address(1))
	require.NoError(err)
	require.Zero(big.NewInt(10000).Cmp(bal))
}

func TestDepositGuards(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)

	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	_, _, err = v.p.Deposit(v.callCtx(1), ws, big.NewInt(0))
	require.Equal(ErrZeroAmount, errors.Cause(err))
	_, _, err = v.p.Deposit(v.callCtx(1), ws, big.NewInt(-5))
	require.Equal(ErrZeroAmount, errors.Cause(err))
	_, _, err = v.p.Deposit(v.callCtx(1), ws, big.NewInt(99))
	require.Equal(ErrDepositTooSmall, errors.Cause(err))
}

func TestWithdrawGuards(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)
	v.deposit(t, 1, 1000)

	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	_, _, err = v.p.Withdraw(v.callCtx(1), ws, big.NewInt(0))
	require.Equal(ErrZeroAmount, errors.Cause(err))
	_, _, err = v.p.Withdraw(v.callCtx(1), ws, big.NewInt(1001))
	require.Equal(ErrInsufficientShares, errors.Cause(err))
	_, _, err = v.p.Withdraw(v.callCtx(2), ws, big.NewInt(1))
	require.Equal(ErrInsufficientShares, errors.Cause(err))
}

func TestPauseBlocksOperations(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)
	v.deposit(t, 1, 1000)

	// a caller without the admin role cannot pause
	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	_, err = v.p.Pause(v.callCtx(1), ws)
	require.Equal(protocol.ErrUnauthorized, errors.Cause(err))

	ws, err = v.store.NewWorkingSet()
	require.NoError(err)
	pauseLog, err := v.p.Pause(v.callCtx(0, protocol.RoleAdmin), ws)
	require.NoError(err)
	require.Equal([]byte{1}, pauseLog.Data)
	require.NoError(ws.Commit())

	ws, err = v.store.NewWorkingSet()
	require.NoError(err)
	_, _, err = v.p.Deposit(v.callCtx(1), ws, big.NewInt(500))
	require.Equal(ErrVaultPaused, errors.Cause(err))
	_, _, err = v.p.Withdraw(v.callCtx(1), ws, big.NewInt(500))
	require.Equal(ErrVaultPaused, errors.Cause(err))

	ws, err = v.store.NewWorkingSet()
	require.NoError(err)
	_, err = v.p.Unpause(v.callCtx(0, protocol.RoleAdmin), ws)
	require.NoError(err)
	require.NoError(ws.Commit())

	v.deposit(t, 1, 500)
}

func TestYieldAccruesToExistingHolders(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 510)

	shares := v.deposit(t, 1, 10000)
	require.Zero(big.NewInt(10000).Cmp(shares))

	// one year at 510 bps
	v.clk.Add(365 * 24 * time.Hour)

	paid := v.withdraw(t, 1, shares)
	require.Zero(big.NewInt(10510).Cmp(paid))

	ro, err := v.store.ReadOnly()
	require.NoError(err)
	tot, err := v.p.TotalShares(ro)
	require.NoError(err)
	require.Zero(tot.Sign())
}

func TestDepositPricesAgainstBookedTotals(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 1000)

	v.deposit(t, 1, 10000)
	v.clk.Add(365 * 24 * time.Hour) // pool is now worth 11000, book still says 10000

	// deposits never resync: pricing matches the preview against the book
	ro, err := v.store.ReadOnly()
	require.NoError(err)
	previewed, err := v.p.PreviewDeposit(ro, big.NewInt(2000))
	require.NoError(err)
	shares := v.deposit(t, 2, 2000)
	require.Zero(previewed.Cmp(shares))
	require.Zero(big.NewInt(2000).Cmp(shares))
}

func TestRoundTripWithinOneUnit(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)

	// a second holder makes the ratio non-trivial
	v.deposit(t, 2, 3333)

	amount := big.NewInt(7777)
	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	shares, _, err := v.p.Deposit(v.callCtx(1), ws, amount)
	require.NoError(err)
	require.NoError(ws.Commit())

	paid := v.withdraw(t, 1, shares)
	diff := new(big.Int).Sub(amount, paid)
	require.True(diff.Sign() >= 0, "payout must not exceed the deposit")
	require.True(diff.Cmp(big.NewInt(1)) <= 0, "rounding loss is at most one unit")
}

func TestShareSumMatchesTotal(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 250)

	v.deposit(t, 1, 5000)
	v.clk.Add(30 * 24 * time.Hour)
	v.deposit(t, 2, 2500)
	v.clk.Add(30 * 24 * time.Hour)
	v.withdraw(t, 1, big.NewInt(1200))
	v.deposit(t, 3, 900)

	ro, err := v.store.ReadOnly()
	require.NoError(err)
	tot, err := v.p.TotalShares(ro)
	require.NoError(err)
	sum := big.NewInt(0)
	for _, holder := range []int{1, 2, 3} {
		bal, err := v.p.ShareBalance(ro, identityset.Address(holder))
		require.NoError(err)
		sum.Add(sum, bal)
	}
	require.Zero(tot.Cmp(sum))
}

func TestFailedDepositLeavesNoTrace(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)
	v.deposit(t, 1, 1000)

	// point the vault at an unregistered source so the placement leg fails
	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	require.NoError(v.p.SwitchSource(context.Background(), ws, identityset.Address(11), time.Unix(100, 0)))
	require.NoError(ws.Commit())

	ws, err = v.store.NewWorkingSet()
	require.NoError(err)
	_, _, err = v.p.Deposit(v.callCtx(2), ws, big.NewInt(500))
	require.Equal(yieldsource.ErrUnknownSource, errors.Cause(err))
	// discard the set; the book is unchanged
	ro, err := v.store.ReadOnly()
	require.NoError(err)
	tot, err := v.p.TotalShares(ro)
	require.NoError(err)
	require.Zero(big.NewInt(1000).Cmp(tot))
	bal, err := v.p.ShareBalance(ro, identityset.Address(2))
	require.NoError(err)
	require.Zero(bal.Sign())
}

func TestPreviews(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)

	ro, err := v.store.ReadOnly()
	require.NoError(err)
	// empty vault previews 1:1
	shares, err := v.p.PreviewDeposit(ro, big.NewInt(777))
	require.NoError(err)
	require.Zero(big.NewInt(777).Cmp(shares))
	assets, err := v.p.PreviewWithdraw(ro, big.NewInt(777))
	require.NoError(err)
	require.Zero(assets.Sign())

	v.deposit(t, 1, 3000)
	ro, err = v.store.ReadOnly()
	require.NoError(err)
	shares, err = v.p.PreviewDeposit(ro, big.NewInt(1500))
	require.NoError(err)
	require.Zero(big.NewInt(1500).Cmp(shares))
	assets, err = v.p.PreviewWithdraw(ro, big.NewInt(1500))
	require.NoError(err)
	require.Zero(big.NewInt(1500).Cmp(assets))

	_, err = v.p.PreviewDeposit(ro, big.NewInt(0))
	require.Equal(ErrZeroAmount, errors.Cause(err))
	_, err = v.p.PreviewWithdraw(ro, big.NewInt(-1))
	require.Equal(ErrZeroAmount, errors.Cause(err))
}

func TestSwitchSourceBookkeeping(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)
	v.deposit(t, 1, 1000)

	at := time.Unix(1700000000, 0).UTC()
	next := identityset.Address(11)
	require.NoError(v.dir.Register(next, yieldsource.NewFixedRateSource(0)))

	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	require.NoError(v.p.SwitchSource(context.Background(), ws, next, at))
	require.NoError(ws.Commit())

	ro, err := v.store.ReadOnly()
	require.NoError(err)
	active, err := v.p.ActiveSource(ro)
	require.NoError(err)
	require.Equal(next.String(), active.String())
	count, err := v.p.MigrationCount(ro)
	require.NoError(err)
	require.Equal(uint64(1), count)
	last, err := v.p.LastMigration(ro)
	require.NoError(err)
	require.True(at.Equal(last))

	// shares are untouched by a migration
	tot, err := v.p.TotalShares(ro)
	require.NoError(err)
	require.Zero(big.NewInt(1000).Cmp(tot))
}

func TestResyncAssets(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)
	v.deposit(t, 1, 1000)

	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	require.NoError(v.p.ResyncAssets(context.Background(), ws, big.NewInt(1234)))
	require.NoError(ws.Commit())

	ro, err := v.store.ReadOnly()
	require.NoError(err)
	assets, err := v.p.TotalAssets(ro)
	require.NoError(err)
	require.Zero(big.NewInt(1234).Cmp(assets))
}

func TestSetMinDeposit(t *testing.T) {
	require := require.New(t)
	v := newTestVault(t, 0)

	ws, err := v.store.NewWorkingSet()
	require.NoError(err)
	require.Equal(protocol.ErrUnauthorized, errors.Cause(v.p.SetMinDeposit(v.callCtx(1), ws, big.NewInt(1))))
	require.NoError(v.p.SetMinDeposit(v.callCtx(0, protocol.RoleAdmin), ws, big.NewInt(500)))
	require.NoError(ws.Commit())

	ws, err = v.store.NewWorkingSet()
	require.NoError(err)
	_, _, err = v.p.Deposit(v.callCtx(1), ws, big.NewInt(499))
	require.Equal(ErrDepositTooSmall, errors.Cause(err))
}
