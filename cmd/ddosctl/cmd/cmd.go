/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package cmd implements the ddosctl command-line tool: a small operator
// utility for validating DDoS strategy configuration and inspecting the
// strategies registered in the running binary.
package cmd

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var CmdDdosCtl = &cobra.Command{
	Use:     "ddosctl",
	Short:   "Operator tool for the NDN DDoS pushback mitigation strategy",
	Version: version,
}

func init() {
	CmdDdosCtl.AddGroup(&cobra.Group{ID: "config", Title: "Configuration:"})
	CmdDdosCtl.AddCommand(CmdValidate)
	CmdDdosCtl.AddCommand(CmdStrategies)
}
