// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ruleset

import (
	"errors"
	"regexp"
)

// Pattern is a case-insensitive request path pattern.
// Source is the pattern text as configured, it identifies a rule across configuration sources.
type Pattern struct {
	Source   string
	Anchored bool

	re *regexp.Regexp
}

var ErrEmptyPattern = errors.New("empty pattern")

// CompilePattern compiles source as a case-insensitive regular expression.
// If anchored is true the expression must match at the start of the path.
func CompilePattern(source string, anchored bool) (*Pattern, error) {
	if source == "" {
		return nil, ErrEmptyPattern
	}

	expr := "(?i)"
	if anchored {
		expr += "^"
	}
	re, err := regexp.Compile(expr + source)
	if err != nil {
		return nil, err
	}

	return &Pattern{
		Source:   source,
		Anchored: anchored,
		re:       re,
	}, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
func MustCompilePattern(source string) *Pattern {
	p, err := CompilePattern(source, true)
	if err != nil {
		panic(err)
	}
	return p
}

// Match returns true if the pattern matches s.
func (p *Pattern) Match(s string) bool {
	return p.re.MatchString(s)
}

// Replace replaces the leftmost match in s with template expanded against the match.
// The unmatched prefix and suffix are kept.
// It returns s and false if there is no match.
func (p *Pattern) Replace(s, template string) (string, bool) {
	m := p.re.FindStringSubmatchIndex(s)
	if m == nil {
		return s, false
	}
	return s[:m[0]] + Expand(template, s, m) + s[m[1]:], true
}

// ExpandMatch expands template against the leftmost match in s.
// It returns an empty string and false if there is no match.
func (p *Pattern) ExpandMatch(s, template string) (string, bool) {
	m := p.re.FindStringSubmatchIndex(s)
	if m == nil {
		return "", false
	}
	return Expand(template, s, m), true
}

// NumGroups returns the number of capture groups in the pattern.
func (p *Pattern) NumGroups() int {
	return p.re.NumSubexp()
}

func (p *Pattern) String() string {
	return p.Source
}
