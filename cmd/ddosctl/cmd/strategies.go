/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package cmd

import (
	"fmt"
	"sort"

	"github.com/named-data/ndnd/fw/fw"
	"github.com/spf13/cobra"
)

var CmdStrategies = &cobra.Command{
	Use:     "strategies",
	Short:   "List the forwarding strategies registered in this binary",
	GroupID: "config",
	Args:    cobra.NoArgs,
	Run:     runStrategies,
}

func runStrategies(cmd *cobra.Command, args []string) {
	names := fw.ListStrategyNames()
	sort.Strings(names)
	for _, name := range names {
		versions := fw.StrategyVersions[name]
		fmt.Printf("%s %v\n", name, versions)
	}
}
