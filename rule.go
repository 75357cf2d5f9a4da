// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/saucelabs/jsonproxy/ruleset"
	"go.uber.org/multierr"
)

// ForwardSpec is a forwarding rule as configured, before it is compiled.
// If Resolved is set, Target is informational and Resolved is used as is.
type ForwardSpec struct {
	Pattern  string
	Target   string
	Resolved *Target
}

// ParseForwardSpec parses "pattern=target", the pattern ends at the first '='.
// The target is resolved to report errors early.
func ParseForwardSpec(val string) (ForwardSpec, error) {
	pattern, target, ok := strings.Cut(val, "=")
	if !ok || pattern == "" || target == "" {
		return ForwardSpec{}, &InvalidRuleError{Pattern: val, Err: errors.New("expected pattern=target")}
	}
	return NewForwardSpec(pattern, target)
}

// NewForwardSpec validates pattern and target and returns ForwardSpec with the target resolved.
func NewForwardSpec(pattern, target string) (ForwardSpec, error) {
	if _, err := ruleset.CompilePattern(pattern, true); err != nil {
		return ForwardSpec{}, &InvalidRuleError{Pattern: pattern, Err: err}
	}
	t, err := ParseTarget(target)
	if err != nil {
		return ForwardSpec{}, &InvalidRuleError{Pattern: pattern, Err: err}
	}
	return ForwardSpec{Pattern: pattern, Target: target, Resolved: t}, nil
}

func (s ForwardSpec) String() string {
	return s.Pattern + "=" + s.Target
}

// ForwardRule forwards requests with a path matching Pattern to Target.
type ForwardRule struct {
	Pattern *ruleset.Pattern
	Target  *Target
}

// InvalidRuleError is returned when a forwarding rule cannot be compiled.
type InvalidRuleError struct {
	Pattern string
	Err     error
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("cannot parse the forwarding rule %q: %s", e.Pattern, e.Err)
}

func (e *InvalidRuleError) Unwrap() error {
	return e.Err
}

// CompileForwardRule compiles the pattern and resolves the target of the spec.
func CompileForwardRule(spec ForwardSpec, anchored bool) (*ForwardRule, error) {
	p, err := ruleset.CompilePattern(spec.Pattern, anchored)
	if err != nil {
		return nil, &InvalidRuleError{Pattern: spec.Pattern, Err: err}
	}

	t := spec.Resolved
	if t == nil {
		t, err = ParseTarget(spec.Target)
		if err != nil {
			return nil, &InvalidRuleError{Pattern: spec.Pattern, Err: err}
		}
	}

	return &ForwardRule{Pattern: p, Target: t}, nil
}

// Rewrite returns the request URI sent upstream.
// The matched part of the escaped path is replaced with the path of the expanded target template,
// the unmatched suffix is kept, then the template query and the raw query are appended.
func (r *ForwardRule) Rewrite(escapedPath, rawQuery string) string {
	pathTpl, queryTpl, hasQuery := strings.Cut(r.Target.Template, "?")
	s, _ := r.Pattern.Replace(escapedPath, pathTpl)
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	if hasQuery {
		q, _ := r.Pattern.ExpandMatch(escapedPath, queryTpl)
		s += "?" + q
	}
	if rawQuery != "" {
		if strings.Contains(s, "?") {
			s += "&" + rawQuery
		} else {
			s += "?" + rawQuery
		}
	}
	return s
}

func (r *ForwardRule) String() string {
	return r.Pattern.Source + " --> " + r.Target.Addr()
}

// MergeMode specifies what happens when a rule with the same pattern text is added again.
type MergeMode string

const (
	// MergeReplace replaces the target of the existing rule keeping its position.
	MergeReplace MergeMode = "replace"
	// MergeAppend appends the rule, the first one still wins when matching.
	MergeAppend MergeMode = "append"
)

func (m MergeMode) String() string {
	return string(m)
}

// MergeRules returns lower with upper rules added according to mode.
// Neither lower nor upper is modified.
func MergeRules(lower, upper []*ForwardRule, mode MergeMode) []*ForwardRule {
	res := make([]*ForwardRule, len(lower), len(lower)+len(upper))
	copy(res, lower)

	for _, u := range upper {
		if mode == MergeReplace {
			if i := indexOfPattern(res, u.Pattern.Source); i >= 0 {
				res[i] = &ForwardRule{Pattern: res[i].Pattern, Target: u.Target}
				continue
			}
		}
		res = append(res, u)
	}

	return res
}

func indexOfPattern(rules []*ForwardRule, source string) int {
	for i := range rules {
		if rules[i].Pattern.Source == source {
			return i
		}
	}
	return -1
}

type RuleTableConfig struct {
	// Anchored anchors patterns at the start of the request path.
	Anchored bool
	// Merge is the policy for rules with the same pattern text.
	Merge MergeMode
}

func DefaultRuleTableConfig() *RuleTableConfig {
	return &RuleTableConfig{
		Anchored: true,
		Merge:    MergeReplace,
	}
}

func (c *RuleTableConfig) Validate() error {
	switch c.Merge {
	case MergeReplace, MergeAppend:
		return nil
	default:
		return fmt.Errorf("unknown merge mode %q", c.Merge)
	}
}

// RuleTable is an ordered list of forwarding rules, it is read-only.
type RuleTable struct {
	rules []*ForwardRule
}

// NewRuleTable compiles the specs in order and merges them according to cfg.
// If any spec is invalid, all errors are returned and no table is built.
func NewRuleTable(specs []ForwardSpec, cfg *RuleTableConfig) (*RuleTable, error) {
	if cfg == nil {
		cfg = DefaultRuleTableConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		rules []*ForwardRule
		errs  error
	)
	for _, s := range specs {
		r, err := CompileForwardRule(s, cfg.Anchored)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		rules = MergeRules(rules, []*ForwardRule{r}, cfg.Merge)
	}
	if errs != nil {
		return nil, errs
	}

	return &RuleTable{rules: rules}, nil
}

// Match returns the first rule matching the escaped request path.
func (t *RuleTable) Match(escapedPath string) (*ForwardRule, bool) {
	if t == nil {
		return nil, false
	}
	for _, r := range t.rules {
		if r.Pattern.Match(escapedPath) {
			return r, true
		}
	}
	return nil, false
}

// Rules returns a copy of the rules in table order.
func (t *RuleTable) Rules() []*ForwardRule {
	res := make([]*ForwardRule, len(t.rules))
	copy(res, t.rules)
	return res
}

// Index returns the position of the rule with the pattern text or -1.
func (t *RuleTable) Index(pattern string) int {
	return indexOfPattern(t.rules, pattern)
}

func (t *RuleTable) Len() int {
	return len(t.rules)
}
