// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package run

import (
	"fmt"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/saucelabs/jsonproxy"
	"github.com/saucelabs/jsonproxy/bind"
	"github.com/saucelabs/jsonproxy/config"
	"github.com/saucelabs/jsonproxy/internal/version"
	"github.com/saucelabs/jsonproxy/log"
	"github.com/saucelabs/jsonproxy/log/stdlog"
	"github.com/saucelabs/jsonproxy/middleware"
	"github.com/saucelabs/jsonproxy/runctx"
	"github.com/saucelabs/jsonproxy/utils/cobrautil"
	"github.com/spf13/cobra"
	"go.uber.org/goleak"
	"go.uber.org/multierr"
)

const promNs = "jsonproxy"

type command struct {
	promReg          *prometheus.Registry
	configFile       string
	cli              *config.Config
	httpServerConfig *jsonproxy.HTTPServerConfig
	staticConfig     *jsonproxy.StaticConfig
	proxyConfig      *jsonproxy.ProxyConfig
	connectTo        []jsonproxy.HostPortPair
	apiServerConfig  *jsonproxy.HTTPServerConfig
	logConfig        *log.Config

	dryRun bool
	goleak bool
}

func (c *command) runE(cmd *cobra.Command, args []string) (cmdErr error) {
	if f := c.logConfig.File; f != nil {
		defer f.Close()
	}
	onError, err := c.registerErrorsMetric()
	if err != nil {
		return fmt.Errorf("register errors metric: %w", err)
	}
	logger := stdlog.New(c.logConfig, stdlog.WithOnError(onError))

	defer func() {
		if cmdErr != nil {
			logger.Errorf("fatal error exiting: %s", cmdErr)
			cmd.SilenceErrors = true
		}
	}()

	logger.Infof("json-proxy %s (%s)", version.Version, version.Commit)

	if len(args) > 0 && c.cli.Server.Webroot == "" {
		c.cli.Server.Webroot = args[0]
	}

	fileCfg, err := c.readConfigFile(logger)
	if err != nil {
		return err
	}
	cfg := config.MergeAll(config.Default(), fileCfg, c.cli)
	if err := cfg.Build(c.httpServerConfig, c.staticConfig, c.proxyConfig); err != nil {
		return err
	}

	var configz string
	{
		d := cobrautil.FlagsDescriber{
			Format:          cobrautil.Plain,
			ShowChangedOnly: true,
			ShowHidden:      true,
			Redact:          []string{"gateway-auth"},
		}
		s, err := d.DescribeFlags(cmd.Flags())
		if err != nil {
			return err
		}
		if s != "" {
			logger.Infof("configuration\n%s", s)
		} else {
			logger.Infof("using default configuration")
		}

		d.ShowChangedOnly = false
		configz, err = d.DescribeFlags(cmd.Flags())
		if err != nil {
			return err
		}
		logger.Debugf("all configuration\n%s\n\n", configz)
	}

	if len(c.connectTo) > 0 {
		c.proxyConfig.Transport.RedirectFunc = jsonproxy.DialRedirectFromHostPortPairs(c.connectTo)
	}

	s, err := jsonproxy.NewStatic(c.staticConfig, logger.Named("static"))
	if err != nil {
		return err
	}
	p, err := jsonproxy.NewProxy(c.proxyConfig, logger.Named("proxy"))
	if err != nil {
		return err
	}
	defer p.Close()

	pm := middleware.NewPrometheus(c.promReg, promNs, middleware.WithCustomLabeler("rule", p.RouteLabel))
	h := pm.Wrap(p.Wrap(jsonproxy.AccessLog(logger.Named("static")).Wrap(s)))

	g := runctx.NewGroup()

	srv, err := jsonproxy.NewHTTPServer(c.httpServerConfig, h, logger.Named("server"))
	if err != nil {
		return err
	}
	g.Add(srv.Run)

	{
		if err := c.registerGoMaxProcsMetric(); err != nil {
			return fmt.Errorf("register GOMAXPROCS metrics: %w", err)
		}
		if err := c.registerProcMetrics(); err != nil {
			return fmt.Errorf("register process metrics: %w", err)
		}
		if err := c.registerVersionMetric(); err != nil {
			return fmt.Errorf("register version metric: %w", err)
		}

		if c.apiServerConfig.Addr != "" {
			a, err := jsonproxy.NewHTTPServer(c.apiServerConfig, jsonproxy.NewAPIHandler(c.promReg, srv, p, configz), logger.Named("api"))
			if err != nil {
				return err
			}
			g.Add(a.Run)
		}
	}

	if c.goleak {
		defer func() {
			if err := goleak.Find(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "goleak: %s", err)
				os.Exit(1)
			}
		}()
	}

	if c.dryRun {
		return nil
	}

	return g.Run()
}

// readConfigFile reads the file given with --config or the default file if it exists.
func (c *command) readConfigFile(logger log.Logger) (*config.Config, error) {
	if c.configFile != "" {
		logger.Infof("using config file %s", c.configFile)
		return config.ReadFile(c.configFile)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.ReadDefaultFile(wd)
}

func (c *command) registerErrorsMetric() (func(name string), error) {
	m := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNs,
		Name:      "errors_total",
		Help:      "Number of errors",
	}, []string{"name"})

	if err := c.promReg.Register(m); err != nil {
		return nil, err
	}

	return func(name string) {
		m.WithLabelValues(name).Inc()
	}, nil
}

func (c *command) registerGoMaxProcsMetric() error {
	return c.promReg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "go_env",
		Name:      "gomaxprocs",
		Help:      "Number of maximum goroutines that can be executed simultaneously",
	}, func() float64 {
		return float64(runtime.GOMAXPROCS(0))
	}))
}

func (c *command) registerProcMetrics() error {
	return multierr.Combine(
		// Note that ProcessCollector is only available in Linux and Windows.
		c.promReg.Register(collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{Namespace: promNs})),
		c.promReg.Register(collectors.NewGoCollector()),
	)
}

func (c *command) registerVersionMetric() error {
	return c.promReg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: promNs,
		Name:      "version",
		Help:      "json-proxy version, value is always 1",
		ConstLabels: prometheus.Labels{
			"version": version.Version,
			"commit":  version.Commit,
			"time":    version.Time,
		},
	}, func() float64 {
		return 1
	}))
}

func Command() *cobra.Command {
	c := makeCommand()
	return c.command()
}

func (c *command) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run [--port <port>] [--forward <pattern=target>]... [--gateway <host:port>] [webroot]",
		Short:   "Serve local files and forward matching requests to remote targets",
		Long:    long,
		Example: example,
		Args:    cobra.MaximumNArgs(1),
		RunE:    c.runE,
	}

	fs := cmd.Flags()
	bind.ConfigFile(fs, &c.configFile)
	bind.ServerConfig(fs, &c.cli.Server)
	bind.ProxyConfig(fs, &c.cli.Proxy)
	bind.RuleTableConfig(fs, &c.proxyConfig.Rules)
	bind.ConnectTo(fs, &c.connectTo)
	bind.HTTPTransportConfig(fs, &c.proxyConfig.Transport)
	bind.APIServerConfig(fs, c.apiServerConfig)
	bind.LogConfig(fs, c.logConfig)

	bind.AutoMarkFlagFilename(cmd)

	fs.BoolVar(&c.dryRun, "dry-run", false, "Validate the configuration and exit.")
	fs.BoolVar(&c.goleak, "goleak", false, "enable goleak")

	bind.MarkFlagHidden(cmd,
		"goleak",
	)

	return cmd
}

func makeCommand() command {
	c := command{
		promReg:          prometheus.NewRegistry(),
		cli:              &config.Config{},
		httpServerConfig: jsonproxy.DefaultHTTPServerConfig(),
		staticConfig:     jsonproxy.DefaultStaticConfig(),
		proxyConfig:      jsonproxy.DefaultProxyConfig(),
		apiServerConfig:  jsonproxy.DefaultHTTPServerConfig(),
		logConfig:        log.DefaultConfig(),
	}
	c.proxyConfig.PromRegistry = c.promReg
	c.proxyConfig.PromNamespace = promNs
	c.apiServerConfig.Addr = ""

	return c
}

const long = `Serve local files and forward requests matching the --forward rules to remote targets.
Forwarded requests keep their method, headers and body, the path is rewritten according to the rule.
Requests can be relayed through a corporate proxy (gateway), and headers can be added or computed per request.
Upstream connection errors are returned as JSON, for example {"error":500,"message":"..."}.
Options are read from json-proxy.json in the working directory or the file given with --config,
and can be overridden with JSON_PROXY_* environment variables and flags.
`

const example = `  # Serve the current directory and forward /api to a backend
  json-proxy -f "/api=localhost:3000"

  # Rewrite paths with pattern groups
  json-proxy -f "/api/users/(.*)=users.example.com/v2/$1" -f "/api=api.example.com"

  # Forward through a corporate proxy with credentials
  json-proxy -g proxy.corp:3128 --gateway-auth user:password -f "/api=api.example.com"

  # Single page application with a custom entry file
  json-proxy --html5mode=/app.html ./dist
`
