// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

type DescribeFormat int

const (
	Plain DescribeFormat = iota
	JSON
	YAML
)

const redacted = "xxxxx"

// FlagsDescriber renders the effective flag values, it is used to log the configuration
// and to serve it from the API server.
type FlagsDescriber struct {
	Format          DescribeFormat
	ShowChangedOnly bool
	ShowHidden      bool
	// Redact replaces non-empty values of the named flags.
	Redact []string
}

func (d FlagsDescriber) DescribeFlags(fs *pflag.FlagSet) (string, error) {
	values := make(map[string]any, fs.NFlag())
	fs.VisitAll(func(f *pflag.Flag) {
		if d.skip(f) {
			return
		}
		values[f.Name] = d.value(f)
	})

	switch d.Format {
	case Plain:
		return describePlain(values), nil
	case JSON:
		b, err := json.Marshal(values)
		return string(b), err
	case YAML:
		return describeYAML(values)
	default:
		return "", errors.New("unknown format")
	}
}

func (d FlagsDescriber) skip(f *pflag.Flag) bool {
	return f.Name == "help" ||
		f.Hidden && !d.ShowHidden ||
		!f.Changed && d.ShowChangedOnly
}

type sliceValue interface {
	GetSlice() []string
}

func (d FlagsDescriber) value(f *pflag.Flag) any {
	if slices.Contains(d.Redact, f.Name) && f.Value.String() != "" {
		return redacted
	}
	if f.Value.Type() == "bool" {
		return f.Value.String() == "true"
	}
	if sv, ok := f.Value.(sliceValue); ok {
		if d.Format == Plain {
			return strings.Join(sv.GetSlice(), ",")
		}
		return sv.GetSlice()
	}
	return f.Value.String()
}

func describePlain(values map[string]any) string {
	keys := maps.Keys(values)
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		switch v := values[k].(type) {
		case bool:
			if v {
				sb.WriteString("true")
			} else {
				sb.WriteString("false")
			}
		case string:
			sb.WriteString(v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func describeYAML(values map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(values); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
