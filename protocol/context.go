// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package protocol

import (
	"context"
	"time"

	"github.com/iotexproject/iotex-address/address"

	"github.com/switchvault/switchvault-core/pkg/log"
)

type (
	// Role is an explicit capability attached to a call by the host service.
	// Protocols check roles instead of comparing caller identities.
	Role uint8

	// CallCtx provides the handlers with caller information
	CallCtx struct {
		// Caller is the identity invoking the operation
		Caller address.Address
		// Roles are the capabilities the service granted this call
		Roles []Role
	}

	// OpCtx provides the handlers with the operation's position in time:
	// the height assigned by the state store and the host clock reading
	OpCtx struct {
		Height    uint64
		Timestamp time.Time
	}
)

const (
	// RoleAdmin marks a call made by the stored authority
	RoleAdmin Role = iota + 1
	// RoleGovernance marks a call made by governance executing a proposal
	RoleGovernance
)

// HasRole returns whether the call carries the given role
func (c CallCtx) HasRole(r Role) bool {
	for _, role := range c.Roles {
		if role == r {
			return true
		}
	}
	return false
}

type (
	callCtxKey struct{}

	opCtxKey struct{}

	registryCtxKey struct{}
)

// WithCallCtx adds CallCtx into context
func WithCallCtx(ctx context.Context, c CallCtx) context.Context {
	return context.WithValue(ctx, callCtxKey{}, c)
}

// GetCallCtx gets CallCtx
func GetCallCtx(ctx context.Context) (CallCtx, bool) {
	c, ok := ctx.Value(callCtxKey{}).(CallCtx)
	return c, ok
}

// MustGetCallCtx must get CallCtx. If context doesn't exist, this function panics.
func MustGetCallCtx(ctx context.Context) CallCtx {
	c, ok := ctx.Value(callCtxKey{}).(CallCtx)
	if !ok {
		log.S().Panic("Miss call context")
	}
	return c
}

// WithOpCtx adds OpCtx into context
func WithOpCtx(ctx context.Context, o OpCtx) context.Context {
	return context.WithValue(ctx, opCtxKey{}, o)
}

// GetOpCtx gets OpCtx
func GetOpCtx(ctx context.Context) (OpCtx, bool) {
	o, ok := ctx.Value(opCtxKey{}).(OpCtx)
	return o, ok
}

// MustGetOpCtx must get OpCtx. If context doesn't exist, this function panics.
func MustGetOpCtx(ctx context.Context) OpCtx {
	o, ok := ctx.Value(opCtxKey{}).(OpCtx)
	if !ok {
		log.S().Panic("Miss operation context")
	}
	return o
}

// WithRegistry adds the protocol registry into context
func WithRegistry(ctx context.Context, reg *Registry) context.Context {
	return context.WithValue(ctx, registryCtxKey{}, reg)
}

// GetRegistry gets the protocol registry from context
func GetRegistry(ctx context.Context) (*Registry, bool) {
	reg, ok := ctx.Value(registryCtxKey{}).(*Registry)
	return reg, ok
}

// MustGetRegistry must get the protocol registry from context
func MustGetRegistry(ctx context.Context) *Registry {
	reg, ok := GetRegistry(ctx)
	if !ok {
		log.S().Panic("Miss registry context")
	}
	return reg
}
