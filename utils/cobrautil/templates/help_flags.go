// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package templates

import (
	"strings"
	"unicode"

	"github.com/mitchellh/go-wordwrap"
	"github.com/saucelabs/jsonproxy/utils/cobrautil"
	"github.com/spf13/pflag"
)

// usageIndent is subtracted from the wrap limit for flag descriptions.
const usageIndent = 10

// flagHelp returns the help entry of a flag, the heading line followed by the description
// wrapped at limit and indented with a tab.
//
// Usage strings may start with the value syntax, e.g. "<host:port>The API server address.",
// the syntax ends at the first upper case letter outside of <> and [] brackets.
func flagHelp(f *pflag.Flag, envPrefix string, limit uint) string {
	var sb strings.Builder

	if f.Shorthand != "" {
		sb.WriteString("  -" + f.Shorthand + ", --" + f.Name)
	} else {
		sb.WriteString("      --" + f.Name)
	}

	syntax, usage := splitUsage(f)
	if syntax != "" {
		sb.WriteString(" " + syntax)
	}
	if def := flagDefault(f); def != "" {
		sb.WriteString(" (default " + def + ")")
	}
	if envPrefix != "" {
		sb.WriteString(" (env " + cobrautil.EnvName(envPrefix, f.Name) + ")")
	}
	sb.WriteString(":")

	if f.Deprecated != "" {
		usage += " (DEPRECATED: " + f.Deprecated + ")"
	}
	if usage != "" {
		sb.WriteString("\n\t")
		sb.WriteString(strings.ReplaceAll(wordwrap.WrapString(usage, limit-usageIndent), "\n", "\n\t"))
	}

	return sb.String()
}

func splitUsage(f *pflag.Flag) (syntax, usage string) {
	name, usage := pflag.UnquoteUsage(f)
	if f.Value.Type() == "bool" {
		return "", strings.TrimSpace(usage)
	}

	if i := syntaxEnd(usage); i > 0 {
		return usage[:i], strings.TrimSpace(usage[i:])
	}
	if name == "" || name == "string" {
		name = "value"
	}
	return "<" + name + ">", strings.TrimSpace(usage)
}

// syntaxEnd returns the length of the value syntax prefix of usage or 0 if there is none.
func syntaxEnd(usage string) int {
	if !strings.HasPrefix(usage, "<") && !strings.HasPrefix(usage, "[") {
		return 0
	}

	depth := 0
	for i, r := range usage {
		switch {
		case r == '<' || r == '[':
			depth++
		case r == '>' || r == ']':
			depth--
		case depth == 0 && unicode.IsUpper(r):
			return i
		}
	}
	return len(usage)
}

func flagDefault(f *pflag.Flag) string {
	switch f.DefValue {
	case "", "[]", "0", "0s", "false":
		return ""
	}
	if f.Value.Type() == "string" {
		return "'" + f.DefValue + "'"
	}
	return f.DefValue
}
