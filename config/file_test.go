// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	const content = `{
  "server": {
    "port": 9000,
    "address": "127.0.0.1",
    "webroot": "dist",
    "html5mode": true
  },
  "proxy": {
    "gateway": {
      "host": "proxy.corp",
      "port": 3128,
      "auth": "user:pass"
    },
    "forward": {
      "/api/users/(.*)": "users.example.com/v2/$1",
      "/api": "api.example.com",
      "/auth": {"protocol": "https:", "host": "auth.example.com", "port": 8443}
    },
    "headers": {
      "X-Team": "web",
      "Authorization": "{{req.path.startsWith('/api') ? 'Bearer x' : undefined}}"
    }
  }
}`

	c, err := Parse([]byte(content))
	require.NoError(t, err)

	assert.Equal(t, Server{
		Address:   "127.0.0.1",
		Port:      9000,
		Webroot:   "dist",
		HTML5Mode: true,
	}, c.Server)
	assert.Equal(t, "proxy.corp:3128", c.Proxy.Gateway)
	assert.Equal(t, "user:pass", c.Proxy.GatewayAuth)

	want := []string{
		"/api/users/(.*)=users.example.com/v2/$1",
		"/api=api.example.com",
		"/auth=https://auth.example.com:8443",
	}
	if diff := cmp.Diff(want, forwardStrings(c.Proxy.Forward)); diff != "" {
		t.Errorf("unexpected forward (-want +got):\n%s", diff)
	}
	assert.Equal(t, "https", c.Proxy.Forward[2].Resolved.Protocol)
	assert.Equal(t, 8443, c.Proxy.Forward[2].Resolved.Port)

	want = []string{
		"X-Team: web",
		"Authorization: {{req.path.startsWith('/api') ? 'Bearer x' : undefined}}",
	}
	if diff := cmp.Diff(want, headerStrings(c.Proxy.Headers)); diff != "" {
		t.Errorf("unexpected headers (-want +got):\n%s", diff)
	}
}

func TestParseFirstFormat(t *testing.T) {
	const content = `{
  "port": 9001,
  "webroot": "public",
  "html5mode": "/app.html",
  "gateway": "http://proxy.corp:3128",
  "forward": {
    "/b": "b.example.com",
    "/a": "a.example.com"
  },
  "headers": {
    "X-Env": "dev"
  }
}`

	c, err := Parse([]byte(content))
	require.NoError(t, err)

	assert.Equal(t, Server{
		Port:       9001,
		Webroot:    "public",
		HTML5Mode:  true,
		HTML5Entry: "/app.html",
	}, c.Server)
	assert.Equal(t, "http://proxy.corp:3128", c.Proxy.Gateway)
	assert.Equal(t, []string{"/b=b.example.com", "/a=a.example.com"}, forwardStrings(c.Proxy.Forward))
	assert.Equal(t, []string{"X-Env: dev"}, headerStrings(c.Proxy.Headers))
}

func TestParseServerKeysWin(t *testing.T) {
	const content = `{
  "port": 9001,
  "server": {"port": 9002}
}`

	c, err := Parse([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, 9002, c.Server.Port)
}

func TestParseHTML5ModeFalse(t *testing.T) {
	c, err := Parse([]byte(`{"server": {"html5mode": false}}`))
	require.NoError(t, err)
	assert.False(t, c.Server.HTML5Mode)
	assert.Empty(t, c.Server.HTML5Entry)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "invalid json",
			content: `{"proxy": `,
		},
		{
			name:    "forward not a mapping",
			content: `{"forward": ["/api"]}`,
		},
		{
			name:    "invalid pattern",
			content: `{"forward": {"/api/(": "api.example.com"}}`,
		},
		{
			name:    "invalid target",
			content: `{"forward": {"/api": "ftp://api.example.com"}}`,
		},
		{
			name:    "target object without host",
			content: `{"forward": {"/api": {"port": 8080}}}`,
		},
		{
			name:    "target list",
			content: `{"forward": {"/api": ["a", "b"]}}`,
		},
		{
			name:    "invalid header name",
			content: `{"headers": {"X Team": "web"}}`,
		},
		{
			name:    "html5mode object",
			content: `{"html5mode": {"entry": "/index.html"}}`,
		},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.content))
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestReadFileConfigDir(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(p, []byte(`{"webroot": "$config_dir/dist"}`), 0o600))

	c, err := ReadFile(p)
	require.NoError(t, err)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(abs, "dist"), c.Server.Webroot)
}

func TestReadFileError(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(p, []byte(`{"port": "http"}`), 0o600))

	_, err := ReadFile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot parse the config file")
}

func TestReadDefaultFileMissing(t *testing.T) {
	c, err := ReadDefaultFile(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Config{}, c)
}
