// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package migration

import (
	"context"
	"time"

	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"

	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/state"
)

var (
	_indexKey = []byte("idx")

	_sourceKeyPrefix = []byte("s")
)

type (
	// sourceEntry is one whitelist member
	sourceEntry struct {
		Name    string
		Active  bool
		AddedAt time.Time
	}

	// sourceIndex lists whitelist members in insertion order; removal
	// deactivates the entry but keeps its index slot, so the first-added
	// tie-break stays stable across re-additions
	sourceIndex struct {
		Addresses []string
	}
)

func sourceKey(addr address.Address) []byte {
	return append(_sourceKeyPrefix, addr.Bytes()...)
}

func (p *Protocol) listState(sr protocol.StateReader, key []byte, value interface{}) error {
	_, err := sr.State(value, protocol.NamespaceOption(SourceListNamespace), protocol.KeyOption(key))
	return err
}

func (p *Protocol) putListState(sm protocol.StateManager, key []byte, value interface{}) error {
	_, err := sm.PutState(value, protocol.NamespaceOption(SourceListNamespace), protocol.KeyOption(key))
	return err
}

// SourceInfo is the externally-visible whitelist entry
type SourceInfo struct {
	Address string
	Name    string
	Active  bool
	AddedAt time.Time
}

// WhitelistSource adds a source to the whitelist, authority or governance
func (p *Protocol) WhitelistSource(ctx context.Context, sm protocol.StateManager, addr address.Address, name string) (*protocol.Log, error) {
	callCtx := protocol.MustGetCallCtx(ctx)
	if !callCtx.HasRole(protocol.RoleAdmin) && !callCtx.HasRole(protocol.RoleGovernance) {
		return nil, errors.Wrap(protocol.ErrUnauthorized, "whitelisting requires the admin or governance role")
	}
	var entry sourceEntry
	switch err := p.listState(sm, sourceKey(addr), &entry); errors.Cause(err) {
	case nil:
		if entry.Active {
			return nil, errors.Wrapf(ErrSourceAlreadyWhitelisted, "address = %s", addr.String())
		}
		// re-activate a previously removed source in place
		entry.Name = name
		entry.Active = true
		if err := p.putListState(sm, sourceKey(addr), &entry); err != nil {
			return nil, err
		}
	case state.ErrStateNotExist:
		var idx sourceIndex
		if err := p.listState(sm, _indexKey, &idx); err != nil {
			return nil, err
		}
		now := protocol.MustGetOpCtx(ctx).Timestamp
		if err := p.addSource(sm, addr, name, now, &idx); err != nil {
			return nil, err
		}
		if err := p.putListState(sm, _indexKey, &idx); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	rLog := protocol.NewReceiptLog(p.addr.String(), _eventSourceWhitelisted)
	rLog.AddAddress(addr)
	rLog.SetData([]byte(name))
	return rLog.Build(), nil
}

// addSource writes a fresh entry and appends it to the index
func (p *Protocol) addSource(sm protocol.StateManager, addr address.Address, name string, at time.Time, idx *sourceIndex) error {
	entry := sourceEntry{Name: name, Active: true, AddedAt: at}
	if err := p.putListState(sm, sourceKey(addr), &entry); err != nil {
		return err
	}
	idx.Addresses = append(idx.Addresses, addr.String())
	return nil
}

// RemoveSource deactivates a whitelist member, authority or governance. The
// currently active yield source cannot be removed.
func (p *Protocol) RemoveSource(ctx context.Context, sm protocol.StateManager, addr address.Address) (*protocol.Log, error) {
	callCtx := protocol.MustGetCallCtx(ctx)
	if !callCtx.HasRole(protocol.RoleAdmin) && !callCtx.HasRole(protocol.RoleGovernance) {
		return nil, errors.Wrap(protocol.ErrUnauthorized, "removal requires the admin or governance role")
	}
	var entry sourceEntry
	if err := p.listState(sm, sourceKey(addr), &entry); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return nil, errors.Wrapf(ErrSourceNotWhitelisted, "address = %s", addr.String())
		}
		return nil, err
	}
	if !entry.Active {
		return nil, errors.Wrapf(ErrSourceNotWhitelisted, "address = %s", addr.String())
	}
	current, err := p.vault.ActiveSource(sm)
	if err != nil {
		return nil, err
	}
	if current != nil && current.String() == addr.String() {
		return nil, errors.Wrapf(ErrSourceActive, "address = %s", addr.String())
	}
	entry.Active = false
	if err := p.putListState(sm, sourceKey(addr), &entry); err != nil {
		return nil, err
	}
	rLog := protocol.NewReceiptLog(p.addr.String(), _eventSourceRemoved)
	rLog.AddAddress(addr)
	return rLog.Build(), nil
}

// IsWhitelisted reports whether the address is an active whitelist member
func (p *Protocol) IsWhitelisted(sr protocol.StateReader, addr address.Address) (bool, error) {
	var entry sourceEntry
	if err := p.listState(sr, sourceKey(addr), &entry); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return false, nil
		}
		return false, err
	}
	return entry.Active, nil
}

// Sources lists the whitelist in insertion order
func (p *Protocol) Sources(sr protocol.StateReader) ([]SourceInfo, error) {
	var idx sourceIndex
	if err := p.listState(sr, _indexKey, &idx); err != nil {
		if errors.Cause(err) == state.ErrStateNotExist {
			return nil, nil
		}
		return nil, err
	}
	infos := make([]SourceInfo, 0, len(idx.Addresses))
	for _, addrStr := range idx.Addresses {
		addr, err := address.FromString(addrStr)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt index entry %s", addrStr)
		}
		var entry sourceEntry
		if err := p.listState(sr, sourceKey(addr), &entry); err != nil {
			return nil, err
		}
		infos = append(infos, SourceInfo{
			Address: addrStr,
			Name:    entry.Name,
			Active:  entry.Active,
			AddedAt: entry.AddedAt,
		})
	}
	return infos, nil
}

// BestSource returns the active whitelist member with the highest current
// yield. Equal rates resolve to the earliest-added member.
func (p *Protocol) BestSource(ctx context.Context, sr protocol.StateReader) (address.Address, uint64, error) {
	infos, err := p.Sources(sr)
	if err != nil {
		return nil, 0, err
	}
	var (
		best     address.Address
		bestRate uint64
	)
	for _, info := range infos {
		if !info.Active {
			continue
		}
		addr, err := address.FromString(info.Address)
		if err != nil {
			return nil, 0, err
		}
		src, err := p.directory.Resolve(addr)
		if err != nil {
			return nil, 0, err
		}
		rate, err := src.CurrentYield(ctx)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "failed to query yield of %s", info.Address)
		}
		if best == nil || rate > bestRate {
			best, bestRate = addr, rate
		}
	}
	if best == nil {
		return nil, 0, ErrNoEligibleSource
	}
	return best, bestRate, nil
}
