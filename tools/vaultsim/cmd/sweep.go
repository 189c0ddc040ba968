// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"sort"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var _sweepRates []uint

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the scenario across several starting rates concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadScenario()
		if err != nil {
			return err
		}
		if len(_sweepRates) == 0 {
			return fmt.Errorf("no rates given")
		}

		results := make([]*Result, len(_sweepRates))
		var eg errgroup.Group
		for i, rate := range _sweepRates {
			variant := sc
			variant.RateBps = uint64(rate)
			eg.Go(func() error {
				res, err := simulate(variant, nil)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		sort.Slice(results, func(i, j int) bool { return results[i].RateBps < results[j].RateBps })

		tbl := table.New("RateBps", "TotalIn", "TotalOut", "Gain")
		for _, res := range results {
			tbl.AddRow(res.RateBps, res.TotalIn, res.TotalOut, res.Yield())
		}
		tbl.Print()
		return nil
	},
}

func init() {
	sweepCmd.Flags().UintSliceVar(&_sweepRates, "rates", []uint{300, 510, 800}, "starting rates to sweep, in bps")
}
