// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package lifecycle manages the lifecycle of a group of components.
package lifecycle

import "context"

type (
	// Starter is a component that requires to start in its lifecycle.
	Starter interface {
		Start(context.Context) error
	}

	// Stopper is a component that requires to stop in its lifecycle.
	Stopper interface {
		Stop(context.Context) error
	}

	// StartStopper is a component that requires to start and stop in its lifecycle.
	StartStopper interface {
		Starter
		Stopper
	}

	// Lifecycle drives the registered components through start and stop, in
	// registration order on start and the same order on stop.
	Lifecycle struct {
		models []StartStopper
	}
)

// Add adds a component into the lifecycle.
func (lc *Lifecycle) Add(m StartStopper) { lc.models = append(lc.models, m) }

// AddModels adds multiple components into the lifecycle.
func (lc *Lifecycle) AddModels(ms ...StartStopper) { lc.models = append(lc.models, ms...) }

// OnStart starts the components. It fails on the first component error.
func (lc *Lifecycle) OnStart(ctx context.Context) error {
	for _, m := range lc.models {
		if err := m.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// OnStop stops the components. It fails on the first component error.
func (lc *Lifecycle) OnStop(ctx context.Context) error {
	for _, m := range lc.models {
		if err := m.Stop(ctx); err != nil {
			return err
		}
	}
	return nil
}
