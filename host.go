// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

type HostPort struct {
	Host string
	Port string
}

func (hp HostPort) Validate() error {
	if hp.Host == "" {
		return errors.New("missing host")
	}
	if hp.Port == "" {
		return errors.New("missing port")
	}

	if net.ParseIP(hp.Host) == nil {
		if _, err := normalizeHost(hp.Host); err != nil {
			return err
		}
	}

	if _, err := strconv.ParseUint(hp.Port, 10, 16); err != nil {
		return fmt.Errorf("invalid port %q", hp.Port)
	}

	return nil
}

func (hp HostPort) String() string {
	return net.JoinHostPort(hp.Host, hp.Port)
}

// HostPortPair redirects connections to Src to Dst.
type HostPortPair struct {
	Src, Dst HostPort
}

func (p HostPortPair) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", p.Src.Host, p.Src.Port, p.Dst.Host, p.Dst.Port)
}

func (p HostPortPair) Validate() error {
	if err := p.Src.Validate(); err != nil {
		return fmt.Errorf("src: %w", err)
	}
	if err := p.Dst.Validate(); err != nil {
		return fmt.Errorf("dst: %w", err)
	}

	return nil
}

var hostPortPairRe = func() *regexp.Regexp {
	const (
		dns = `[.\w\-]+`
		ip4 = `[.0-9]+`
		ip6 = `\[[:0-9a-fA-F]+\]`
	)
	return regexp.MustCompile(`^(` + dns + `|` + ip4 + `|` + ip6 + `):(\d+):(` + dns + `|` + ip4 + `|` + ip6 + `):(\d+)$`)
}()

// ParseHostPortPair parses HOST1:PORT1:HOST2:PORT2 string into HostPortPair.
// HOST1:PORT1 is the source, HOST2:PORT2 is the destination.
// IPv6 addresses must be enclosed in square brackets.
func ParseHostPortPair(val string) (HostPortPair, error) {
	m := hostPortPairRe.FindStringSubmatch(val)
	if m == nil {
		return HostPortPair{}, errors.New("expected src_host:src_port:dst_host:dst_port")
	}

	r := strings.NewReplacer("[", "", "]", "")

	hpp := HostPortPair{
		Src: HostPort{Host: strings.ToLower(r.Replace(m[1])), Port: m[2]},
		Dst: HostPort{Host: r.Replace(m[3]), Port: m[4]},
	}

	return hpp, hpp.Validate()
}

// DialRedirectFunc returns the address to dial instead of address.
type DialRedirectFunc func(address string) string

// DialRedirectFromHostPortPairs returns a DialRedirectFunc that redirects connections according to the pairs.
// The first matching pair wins.
func DialRedirectFromHostPortPairs(pairs []HostPortPair) DialRedirectFunc {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		src := p.Src.String()
		if _, ok := m[src]; !ok {
			m[src] = p.Dst.String()
		}
	}

	return func(address string) string {
		if dst, ok := m[strings.ToLower(address)]; ok {
			return dst
		}
		return address
	}
}
