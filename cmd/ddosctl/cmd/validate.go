/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package cmd

import (
	"fmt"
	"os"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/std/utils/toolutils"
	"github.com/spf13/cobra"
)

var CmdValidate = &cobra.Command{
	Use:     "validate CONFIG-FILE",
	Short:   "Validate a ddos_strategy configuration file",
	GroupID: "config",
	Args:    cobra.ExactArgs(1),
	RunE:    runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := core.LoadConfig(args[0])
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	p := toolutils.StatusPrinter{File: os.Stdout, Padding: 20}
	p.Print("router_role", cfg.Ddos.RouterRole)
	p.Print("tick_interval", cfg.Ddos.TickInterval)
	p.Print("default_revert_ticks", cfg.Ddos.DefaultRevertTicks)
	p.Print("max_buffer_per_face", cfg.Ddos.MaxBufferPerFace)
	fmt.Println("configuration OK")
	return nil
}
