// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package templates

import (
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const wrapLimit = 100

// ActsAsRootCommand sets help and usage functions that print wrapped descriptions and flags in groups.
// Subcommands inherit them, the help subcommand is hidden.
func ActsAsRootCommand(cmd *cobra.Command, g FlagGroups, envPrefix string) {
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetUsageFunc(func(c *cobra.Command) error {
		writeUsage(c.OutOrStderr(), c, g, envPrefix)
		return nil
	})
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		w := c.OutOrStdout()
		if d := description(c); d != "" {
			fmt.Fprintf(w, "%s\n\n", wordwrap.WrapString(d, wrapLimit))
		}
		writeUsage(w, c, g, envPrefix)
	})
}

// description returns the long description or the short one if there is none.
func description(c *cobra.Command) string {
	if d := strings.TrimSpace(c.Long); d != "" {
		return d
	}
	if c.Short != "" {
		return c.Short + "."
	}
	return ""
}

func writeUsage(w io.Writer, c *cobra.Command, g FlagGroups, envPrefix string) {
	fmt.Fprintf(w, "Usage: %s\n\n", c.UseLine())

	if c.Example != "" {
		fmt.Fprintf(w, "Examples:\n%s\n\n", c.Example)
	}

	if c.HasAvailableSubCommands() {
		fmt.Fprintf(w, "Commands:\n")
		for _, sc := range c.Commands() {
			if sc.IsAvailableCommand() {
				fmt.Fprintf(w, "  %-12s %s\n", sc.Name(), sc.Short)
			}
		}
		fmt.Fprintln(w)
	}

	for i, fs := range SplitFlagSet(g, c.Flags()) {
		if !fs.HasAvailableFlags() {
			continue
		}
		fmt.Fprintf(w, "%s:\n", g[i].Name)
		fs.VisitAll(func(f *pflag.Flag) {
			if !f.Hidden {
				fmt.Fprintf(w, "%s\n\n", flagHelp(f, envPrefix, wrapLimit))
			}
		})
	}
}
