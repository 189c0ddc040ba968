// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// vaultsim drives an in-memory vault service through synthetic depositor
// traffic to preview share pricing, yield accrual, and migration outcomes
// before touching a live deployment.
//
// Usage:
//   vaultsim run --scenario=./scenario.yaml
//   vaultsim sweep --scenario=./scenario.yaml --rates=300,510,800
package main

import (
	"os"

	"github.com/switchvault/switchvault-core/tools/vaultsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
