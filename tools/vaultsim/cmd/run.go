// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"math/big"

	"github.com/rodaine/table"
	progressbar "github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scenario and print per-account outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadScenario()
		if err != nil {
			return err
		}
		bar := progressbar.New(sc.Days)
		res, err := simulate(sc, func(int) {
			_ = bar.Add(1)
		})
		if err != nil {
			return err
		}
		fmt.Println()

		tbl := table.New("Account", "Deposited", "Withdrawn", "Gain")
		for _, acct := range res.Accounts {
			gain := new(big.Int).Sub(acct.Withdrawn, acct.Deposited)
			tbl.AddRow(acct.Account, acct.Deposited, acct.Withdrawn, gain)
		}
		tbl.Print()
		fmt.Printf("total in %s, total out %s, realized gain %s, final source %s\n",
			res.TotalIn, res.TotalOut, res.Yield(), res.FinalSource)
		return nil
	},
}
