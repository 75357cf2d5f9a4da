// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package run

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/saucelabs/jsonproxy"
	"github.com/saucelabs/jsonproxy/utils/cobrautil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigFile = `{
  "server": {
    "port": 9000,
    "webroot": "$config_dir"
  },
  "proxy": {
    "forward": {
      "/api": "api.example.com",
      "/auth": "auth.example.com"
    },
    "headers": {
      "X-Env": "dev"
    }
  }
}`

func dryRun(t *testing.T, args ...string) *command {
	t.Helper()

	c := makeCommand()
	cmd := c.command()
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return cobrautil.BindAll(cmd, "JSON_PROXY", "")
	}
	cmd.SetArgs(append(args, "--dry-run", "--log-file", filepath.Join(t.TempDir(), "json-proxy.log")))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	require.NoError(t, cmd.Execute())
	return &c
}

func TestRunLayers(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "json-proxy.json")
	require.NoError(t, os.WriteFile(p, []byte(testConfigFile), 0o600))

	t.Setenv("JSON_PROXY_PORT", "9100")
	t.Setenv("JSON_PROXY_GATEWAY", "proxy.corp:3128")
	t.Setenv("JSON_PROXY_HEADER", "X-Env: staging")

	c := dryRun(t,
		"-c", p,
		"-p", "9200",
		"-f", "/api=localhost:3000",
		"--html5mode",
	)

	assert.Equal(t, ":9200", c.httpServerConfig.Addr)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, c.staticConfig.Webroot)
	assert.True(t, c.staticConfig.HTML5Mode)
	assert.Equal(t, jsonproxy.DefaultHTML5Entry, c.staticConfig.HTML5Entry)

	require.True(t, c.proxyConfig.Gateway.Enabled())
	assert.Equal(t, "proxy.corp", c.proxyConfig.Gateway.Host)

	rt, err := jsonproxy.NewRuleTable(c.proxyConfig.Forward, &c.proxyConfig.Rules)
	require.NoError(t, err)
	rules := rt.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "/api", rules[0].Pattern.Source)
	assert.Equal(t, "localhost", rules[0].Target.Host)
	assert.Equal(t, "/auth", rules[1].Pattern.Source)

	require.Len(t, c.proxyConfig.Headers, 1)
	assert.Equal(t, "X-Env: staging", c.proxyConfig.Headers[0].String())
}

func TestRunPositionalWebroot(t *testing.T) {
	dir := t.TempDir()
	c := dryRun(t, dir)
	assert.Equal(t, dir, c.staticConfig.Webroot)
	assert.Equal(t, ":8080", c.httpServerConfig.Addr)
}

func TestRunInvalidConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "json-proxy.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"forward": {"/api": "ftp://api.example.com"}}`), 0o600))

	c := makeCommand()
	cmd := c.command()
	cmd.SetArgs([]string{"-c", p, "--dry-run", "--log-file", filepath.Join(t.TempDir(), "json-proxy.log")})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	assert.Error(t, cmd.Execute())
}
