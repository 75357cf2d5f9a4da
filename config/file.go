// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/saucelabs/jsonproxy"
	"github.com/saucelabs/jsonproxy/header"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory if no file is given.
const DefaultFile = "json-proxy.json"

// ConfigDirToken in webroot is replaced with the directory of the config file.
const ConfigDirToken = "$config_dir"

// ReadFile reads a JSON or YAML config file.
// Forwarding rules and headers keep the order of the file.
// The top-level keys of the first file format (port, webroot, html5mode, gateway, forward, headers)
// are used when the corresponding server or proxy key is not set.
func ReadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("cannot parse the config file %q: %w", path, err)
	}

	if strings.Contains(c.Server.Webroot, ConfigDirToken) {
		dir, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		c.Server.Webroot = filepath.Clean(strings.ReplaceAll(c.Server.Webroot, ConfigDirToken, dir))
	}

	return c, nil
}

// ReadDefaultFile reads DefaultFile from dir, it returns an empty config if the file does not exist.
func ReadDefaultFile(dir string) (*Config, error) {
	c, err := ReadFile(filepath.Join(dir, DefaultFile))
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	return c, err
}

type fileServer struct {
	Port      int       `yaml:"port"`
	Address   string    `yaml:"address"`
	Webroot   string    `yaml:"webroot"`
	HTML5Mode html5Mode `yaml:"html5mode"`
}

type fileProxy struct {
	Gateway     gatewayValue `yaml:"gateway"`
	GatewayAuth string       `yaml:"gateway_auth"`
	Forward     orderedMap   `yaml:"forward"`
	Headers     orderedMap   `yaml:"headers"`
}

type file struct {
	Server *fileServer `yaml:"server"`
	Proxy  *fileProxy  `yaml:"proxy"`

	Port      int          `yaml:"port"`
	Webroot   string       `yaml:"webroot"`
	HTML5Mode html5Mode    `yaml:"html5mode"`
	Gateway   gatewayValue `yaml:"gateway"`
	Forward   orderedMap   `yaml:"forward"`
	Headers   orderedMap   `yaml:"headers"`
}

// Parse parses config file content.
func Parse(b []byte) (*Config, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	if f.Server == nil {
		f.Server = &fileServer{}
	}
	if f.Proxy == nil {
		f.Proxy = &fileProxy{}
	}

	s, p := f.Server, f.Proxy
	if s.Port == 0 {
		s.Port = f.Port
	}
	if s.Webroot == "" {
		s.Webroot = f.Webroot
	}
	if !s.HTML5Mode.Enabled {
		s.HTML5Mode = f.HTML5Mode
	}
	if p.Gateway.URL == "" {
		p.Gateway = f.Gateway
	}
	if p.Forward == nil {
		p.Forward = f.Forward
	}
	if p.Headers == nil {
		p.Headers = f.Headers
	}
	if p.GatewayAuth == "" {
		p.GatewayAuth = p.Gateway.Auth
	}

	c := &Config{
		Server: Server{
			Address:    s.Address,
			Port:       s.Port,
			Webroot:    s.Webroot,
			HTML5Mode:  s.HTML5Mode.Enabled,
			HTML5Entry: s.HTML5Mode.Entry,
		},
		Proxy: Proxy{
			Gateway:     p.Gateway.URL,
			GatewayAuth: p.GatewayAuth,
		},
	}

	var errs error
	for _, kv := range p.Forward {
		target, err := targetValue(&kv.Value)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("forward %q: %w", kv.Key, err))
			continue
		}
		spec, err := jsonproxy.NewForwardSpec(kv.Key, target)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		c.Proxy.Forward = append(c.Proxy.Forward, spec)
	}
	for _, kv := range p.Headers {
		var v string
		if err := kv.Value.Decode(&v); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("header %q: %w", kv.Key, err))
			continue
		}
		h, err := header.ParseHeader(kv.Key + ": " + v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("header %q: %w", kv.Key, err))
			continue
		}
		c.Proxy.Headers = header.Merge(c.Proxy.Headers, header.Headers{h})
	}
	if errs != nil {
		return nil, errs
	}

	return c, nil
}

type keyValue struct {
	Key   string
	Value yaml.Node
}

// orderedMap is a mapping decoded in document order.
type orderedMap []keyValue

func (m *orderedMap) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}

	res := make(orderedMap, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var key string
		if err := n.Content[i].Decode(&key); err != nil {
			return err
		}
		res = append(res, keyValue{Key: key, Value: *n.Content[i+1]})
	}
	*m = res

	return nil
}

type targetObject struct {
	Protocol string `yaml:"protocol"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Path     string `yaml:"path"`
	Auth     string `yaml:"auth"`
}

func (t targetObject) url() (string, error) {
	if t.Host == "" {
		return "", errors.New("missing host")
	}

	s := t.Host
	if t.Port != 0 {
		s = net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	}
	if t.Protocol != "" {
		s = strings.TrimSuffix(strings.TrimSuffix(t.Protocol, "//"), ":") + "://" + s
	}
	return s + t.Path, nil
}

// targetValue decodes a target given as a string or as an object with host, port and protocol.
func targetValue(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		err := n.Decode(&s)
		return s, err
	case yaml.MappingNode:
		var t targetObject
		if err := n.Decode(&t); err != nil {
			return "", err
		}
		return t.url()
	default:
		return "", fmt.Errorf("line %d: expected a string or an object", n.Line)
	}
}

type gatewayValue struct {
	URL  string
	Auth string
}

func (g *gatewayValue) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Decode(&g.URL)
	case yaml.MappingNode:
		var t targetObject
		if err := n.Decode(&t); err != nil {
			return err
		}
		u, err := t.url()
		if err != nil {
			return err
		}
		g.URL = u
		g.Auth = t.Auth
		return nil
	default:
		return fmt.Errorf("line %d: gateway: expected a string or an object", n.Line)
	}
}

// html5Mode is true, false or the entry file path.
type html5Mode struct {
	Enabled bool
	Entry   string
}

func (h *html5Mode) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: html5mode: expected a boolean or a path", n.Line)
	}

	if n.ShortTag() == "!!bool" {
		return n.Decode(&h.Enabled)
	}

	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	h.Enabled = s != ""
	h.Entry = s

	return nil
}
