// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package migration

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/switchvault/switchvault-core/db"
	"github.com/switchvault/switchvault-core/protocol/vault"
	"github.com/switchvault/switchvault-core/statestore"
	"github.com/switchvault/switchvault-core/test/identityset"
	"github.com/switchvault/switchvault-core/test/mock/mock_yieldsource"
	"github.com/switchvault/switchvault-core/yieldsource"
)

// newFaultyTargetHarness boots a vault on a well-behaved source 10 with a
// mock instrument behind whitelisted target 11
func newFaultyTargetHarness(t *testing.T) (*testMigration, *yieldsource.FixedRateSource, *mock_yieldsource.MockSource) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	oldSrc := yieldsource.NewFixedRateSource(0)
	newSrc := mock_yieldsource.NewMockSource(ctrl)

	dir := yieldsource.NewDirectory()
	require.NoError(dir.Register(identityset.Address(10), oldSrc))
	require.NoError(dir.Register(identityset.Address(11), newSrc))

	vp := vault.NewProtocol(dir, vault.Genesis{
		Authority:     identityset.Address(0),
		MinDeposit:    big.NewInt(1),
		InitialSource: identityset.Address(10),
	})
	p := NewProtocol(vp, dir, DefaultConfig, []GenesisSource{
		{Address: identityset.Address(10), Name: "steady"},
		{Address: identityset.Address(11), Name: "faulty"},
	})

	store := statestore.NewStateStore(db.NewMemKVStore())
	require.NoError(store.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(store.Stop(context.Background()))
	})
	ws, err := store.NewWorkingSet()
	require.NoError(err)
	ctx := opCtx(adminCtx(), _t0)
	require.NoError(vp.CreateGenesisStates(ctx, ws))
	require.NoError(p.CreateGenesisStates(ctx, ws))
	require.NoError(ws.Commit())

	m := &testMigration{p: p, vp: vp, store: store, dir: dir}
	m.deposit(t, 1, 10000)
	return m, oldSrc, newSrc
}

func TestDepositFailureCompensatesOldSource(t *testing.T) {
	require := require.New(t)
	m, oldSrc, newSrc := newFaultyTargetHarness(t)
	holder := m.vp.Address()

	newSrc.EXPECT().Deposit(gomock.Any(), big.NewInt(10000)).Return(errors.New("instrument rejected the transfer"))

	ws, err := m.store.NewWorkingSet()
	require.NoError(err)
	_, err = m.p.SwitchNow(opCtx(adminCtx(), _t0), ws, identityset.Address(11))
	require.ErrorContains(err, "failed to place funds into the new source")
	// the working set is discarded, never committed

	// the liquidated balance went back into the old instrument
	value, err := oldSrc.ValueOf(context.Background(), holder)
	require.NoError(err)
	require.Equal(big.NewInt(10000), value)

	ro, err := m.store.ReadOnly()
	require.NoError(err)
	active, err := m.vp.ActiveSource(ro)
	require.NoError(err)
	require.Equal(identityset.Address(10).String(), active.String())
	total, err := m.vp.TotalAssets(ro)
	require.NoError(err)
	require.Equal(big.NewInt(10000), total)
}

func TestValuationFailureUnwindsIntoOldSource(t *testing.T) {
	require := require.New(t)
	m, oldSrc, newSrc := newFaultyTargetHarness(t)
	holder := m.vp.Address()

	newSrc.EXPECT().Deposit(gomock.Any(), big.NewInt(10000)).Return(nil)
	// first valuation fails the switch; the unwind then empties the target
	newSrc.EXPECT().ValueOf(gomock.Any(), gomock.Any()).Return(nil, errors.New("oracle offline"))
	newSrc.EXPECT().ValueOf(gomock.Any(), gomock.Any()).Return(big.NewInt(10000), nil)
	newSrc.EXPECT().Withdraw(gomock.Any(), big.NewInt(10000)).Return(big.NewInt(10000), nil)

	ws, err := m.store.NewWorkingSet()
	require.NoError(err)
	_, err = m.p.SwitchNow(opCtx(adminCtx(), _t0), ws, identityset.Address(11))
	require.ErrorContains(err, "failed to value the new source")

	value, err := oldSrc.ValueOf(context.Background(), holder)
	require.NoError(err)
	require.Equal(big.NewInt(10000), value)

	ro, err := m.store.ReadOnly()
	require.NoError(err)
	active, err := m.vp.ActiveSource(ro)
	require.NoError(err)
	require.Equal(identityset.Address(10).String(), active.String())
}
