// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package cmd implements the vaultsim subcommands
package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"
)

var _scenarioPath string

var rootCmd = &cobra.Command{
	Use:   "vaultsim",
	Short: "Simulate vault deposit, yield, and migration flows in memory",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&_scenarioPath, "scenario", "", "scenario YAML path, defaults built in")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func loadScenario() (Scenario, error) {
	sc := DefaultScenario
	if _scenarioPath == "" {
		return sc, nil
	}
	raw, err := os.ReadFile(_scenarioPath)
	if err != nil {
		return sc, errors.Wrapf(err, "failed to read scenario %s", _scenarioPath)
	}
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return sc, errors.Wrap(err, "failed to parse scenario")
	}
	return sc, sc.Validate()
}
