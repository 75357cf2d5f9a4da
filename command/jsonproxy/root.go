// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"github.com/saucelabs/jsonproxy/command/ready"
	"github.com/saucelabs/jsonproxy/command/run"
	"github.com/saucelabs/jsonproxy/command/version"
	"github.com/saucelabs/jsonproxy/utils/cobrautil"
	"github.com/saucelabs/jsonproxy/utils/cobrautil/templates"
	"github.com/spf13/cobra"
)

const EnvPrefix = "JSON_PROXY"

func FlagGroups() templates.FlagGroups {
	return templates.FlagGroups{
		{
			Name: "Server options",
			Prefix: []string{
				"",
				"port",
				"address",
				"webroot",
				"html5mode",
			},
		},
		{
			Name: "Proxy options",
			Prefix: []string{
				"forward",
				"header",
				"gateway",
			},
		},
		{
			Name: "HTTP client options",
			Prefix: []string{
				"http",
				"connect-to",
				"insecure",
			},
		},
		{
			Name:   "API server options",
			Prefix: []string{"api"},
		},
		{
			Name:   "Logging options",
			Prefix: []string{"log"},
		},
		{
			Name: "Options",
			Prefix: []string{
				"config",
				"dry-run",
				"timeout",
			},
		},
	}
}

// Command returns the json-proxy root command, it runs the server.
func Command() *cobra.Command {
	cmd := run.Command()
	cmd.Use = "json-proxy [--port <port>] [--forward <pattern=target>]... [--gateway <host:port>] [webroot]"
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return cobrautil.BindAll(cmd, EnvPrefix, "")
	}
	cmd.SilenceUsage = true

	cmd.AddCommand(
		ready.Command(),
		version.Command(),
	)

	templates.ActsAsRootCommand(cmd, FlagGroups(), EnvPrefix)

	return cmd
}
