// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"os"
	"strconv"
	"strings"

	"github.com/mmatczuk/anyflag"
	"github.com/saucelabs/jsonproxy"
	"github.com/saucelabs/jsonproxy/config"
	"github.com/saucelabs/jsonproxy/header"
	"github.com/saucelabs/jsonproxy/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func ConfigFile(fs *pflag.FlagSet, configFile *string) {
	fs.StringVarP(configFile,
		"config", "c", *configFile, "<path>"+
			"Configuration file to load options from, JSON or YAML. "+
			"If not specified, "+config.DefaultFile+" is read from the working directory if it exists. "+
			"The following precedence order of configuration sources is used: command flags, environment variables, config file, default values. ")
}

// ServerConfig binds server flags to cfg.
// Unset flags leave cfg fields zero, so that they do not override lower configuration layers.
func ServerConfig(fs *pflag.FlagSet, cfg *config.Server) {
	fs.IntVarP(&cfg.Port,
		"port", "p", cfg.Port, "<port>"+
			"The port to listen on. ")
	fs.Lookup("port").DefValue = strconv.Itoa(config.DefaultPort)

	fs.StringVar(&cfg.Address,
		"address", cfg.Address, "<host>"+
			"The address to listen on. "+
			"If empty, the server will listen on all available interfaces. ")

	fs.StringVar(&cfg.Webroot,
		"webroot", cfg.Webroot, "<dir>"+
			"Directory to serve local files from, the default is the working directory. "+
			"It can also be given as the first positional argument. ")

	fs.Var(&html5ModeFlag{cfg: cfg},
		"html5mode", "[=<path>]"+
			"Serve the entry file instead of 404 for paths that match no local file. "+
			"The entry file is "+jsonproxy.DefaultHTML5Entry+" unless a path is given. ")
	fs.Lookup("html5mode").NoOptDefVal = "true"
}

// html5ModeFlag enables html5 mode, a value other than true or false sets the entry file.
type html5ModeFlag struct {
	cfg *config.Server
}

func (f *html5ModeFlag) String() string {
	if f.cfg == nil || !f.cfg.HTML5Mode {
		return "false"
	}
	if f.cfg.HTML5Entry != "" {
		return f.cfg.HTML5Entry
	}
	return "true"
}

func (f *html5ModeFlag) Set(val string) error {
	switch strings.ToLower(val) {
	case "true", "1":
		f.cfg.HTML5Mode = true
	case "false", "0":
		f.cfg.HTML5Mode = false
	default:
		f.cfg.HTML5Mode = true
		f.cfg.HTML5Entry = val
	}
	return nil
}

func (f *html5ModeFlag) Type() string {
	return "html5mode"
}

func ProxyConfig(fs *pflag.FlagSet, cfg *config.Proxy) {
	Forward(fs, &cfg.Forward)
	RequestHeaders(fs, &cfg.Headers)

	fs.VarP(anyflag.NewValueWithRedact[string](cfg.Gateway, &cfg.Gateway, identity, jsonproxy.RedactGatewayURL),
		"gateway", "g", "[protocol://][username:password@]host[:port]"+
			"Corporate proxy to relay forwarded requests through. "+
			"Requests are sent with the absolute URL as the request target and the X-Forwarded-Url header. "+
			"If the port number is not specified, it is assumed to be 80 for http and 443 for https. ")

	fs.VarP(anyflag.NewValueWithRedact[string](cfg.GatewayAuth, &cfg.GatewayAuth, identity, redactAuth),
		"gateway-auth", "", "<username:password>"+
			"Basic authentication credentials for the gateway, they override the credentials in the gateway URL. ")
}

func identity(val string) (string, error) {
	return val, nil
}

func redactAuth(val string) string {
	if val == "" {
		return ""
	}
	ui, err := jsonproxy.ParseUserInfo(val)
	if err != nil || ui == nil {
		return "xxxxx"
	}
	return jsonproxy.RedactUserinfo(ui)
}

func Forward(fs *pflag.FlagSet, forward *[]jsonproxy.ForwardSpec) {
	fs.VarP(anyflag.NewSliceValue[jsonproxy.ForwardSpec](*forward, forward, jsonproxy.ParseForwardSpec),
		"forward", "f", "<pattern=target>"+
			"Forward requests with a path matching the pattern to the target. "+
			"The pattern is a case-insensitive regular expression matched against the start of the request path. "+
			"The target is [protocol://]host[:port][/path], the path may reference pattern groups with $1 to $9 or the whole match with $&. "+
			"If the path has no reference, the matched request path is appended. "+
			"Rules are tried in order, the first match wins. "+
			"The flag can be specified multiple times. "+
			"Example: -f \"/api/users/(.*)=users.example.com/v2/$1\" -f \"/api=localhost:3000\". ")
}

func RequestHeaders(fs *pflag.FlagSet, headers *header.Headers) {
	fs.VarP(anyflag.NewSliceValueWithRedact[header.Header](*headers, (*[]header.Header)(headers), header.ParseHeader, RedactHeader),
		"header", "H", "<header>"+
			"Add or remove HTTP headers on forwarded requests. "+
			"Use the format \"name: value\" to add a header, "+
			"\"name: {{expression}}\" to compute the value with a JavaScript expression over the req object, "+
			"\"name;\" to set the header to empty value, "+
			"\"-name\" to remove the header, "+
			"\"-name*\" to remove headers by prefix. "+
			"A Host header changes the host sent to the target. "+
			"The flag can be specified multiple times. "+
			"Example: -H \"Authorization: Bearer token\" -H \"-Cookie\". ")
}

func RuleTableConfig(fs *pflag.FlagSet, cfg *jsonproxy.RuleTableConfig) {
	fs.BoolVar(&cfg.Anchored,
		"forward-anchor", cfg.Anchored,
		"Match forwarding patterns at the start of the request path only. ")

	mergeModes := []jsonproxy.MergeMode{
		jsonproxy.MergeReplace,
		jsonproxy.MergeAppend,
	}
	fs.Var(anyflag.NewValue[jsonproxy.MergeMode](cfg.Merge, &cfg.Merge, anyflag.EnumParser[jsonproxy.MergeMode](mergeModes...)),
		"forward-merge", "<replace|append>"+
			"What to do when a rule with the same pattern is configured again, for example in the config file and on the command line. "+
			"Setting this to replace changes the target of the existing rule keeping its position. "+
			"Setting this to append adds the rule at the end, the first rule still wins. ")
}

func ConnectTo(fs *pflag.FlagSet, connectTo *[]jsonproxy.HostPortPair) {
	fs.Var(anyflag.NewSliceValue[jsonproxy.HostPortPair](*connectTo, connectTo, jsonproxy.ParseHostPortPair),
		"connect-to", "<host1:port1:host2:port2>"+
			"For a request to the given host1:port1 pair, connect to host2:port2 instead. "+
			"This option is useful when the development DNS does not resolve a target host. "+
			"The flag can be specified multiple times. ")
}

func HTTPTransportConfig(fs *pflag.FlagSet, cfg *jsonproxy.HTTPTransportConfig) {
	fs.DurationVar(&cfg.DialTimeout,
		"http-dial-timeout", cfg.DialTimeout,
		"The maximum amount of time a dial will wait for a connect to complete. "+
			"With or without a timeout, the operating system may impose its own earlier timeout. For instance, TCP timeouts are often around 3 minutes. ")

	fs.DurationVar(&cfg.TLSHandshakeTimeout,
		"http-tls-handshake-timeout", cfg.TLSHandshakeTimeout,
		"The maximum amount of time waiting to wait for a TLS handshake. Zero means no limit.")

	fs.DurationVar(&cfg.IdleConnTimeout,
		"http-idle-conn-timeout", cfg.IdleConnTimeout,
		"The maximum amount of time an idle (keep-alive) connection will remain idle before closing itself. "+
			"Zero means no limit. ")

	fs.DurationVar(&cfg.ResponseHeaderTimeout,
		"http-response-header-timeout", cfg.ResponseHeaderTimeout,
		"The amount of time to wait for a server's response headers after fully writing the request (including its body, if any)."+
			"This time does not include the time to read the response body. "+
			"Zero means no limit. ")

	fs.BoolVar(&cfg.InsecureSkipVerify, "insecure", cfg.InsecureSkipVerify,
		"Don't verify the target's certificate chain and host name. "+
			"Enable to work with self-signed certificates. ")
}

func APIServerConfig(fs *pflag.FlagSet, cfg *jsonproxy.HTTPServerConfig) {
	fs.StringVar(&cfg.Addr,
		"api-address", cfg.Addr, "<host:port>"+
			"The API server address to listen on, it serves metrics, health and configuration endpoints. "+
			"If empty, the API server is disabled. ")
}

func LogConfig(fs *pflag.FlagSet, cfg *log.Config) {
	fs.Var(NewFileFlag(&cfg.File, openLogFile),
		"log-file", "<path>"+
			"Path to the log file, if empty, logs to stdout. ")

	logLevel := []log.Level{
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
		log.DebugLevel,
	}
	fs.Var(anyflag.NewValue[log.Level](cfg.Level, &cfg.Level, anyflag.EnumParser[log.Level](logLevel...)),
		"log-level", "<error|warn|info|debug>"+
			"Log level. ")
}

func openLogFile(val string) (*os.File, error) {
	return OpenFileParser(os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600, 0o700)(val)
}

func MarkFlagHidden(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.Flags().MarkHidden(name); err != nil {
			panic(err)
		}
	}
}

func AutoMarkFlagFilename(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.HasPrefix(f.Usage, "<path") ||
			strings.HasSuffix(f.Name, "-file") {
			MarkFlagFilename(cmd, f.Name)
		}
	})
}

func MarkFlagFilename(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagFilename(name); err != nil {
			panic(err)
		}
	}
}
