// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ruleset

import (
	"strings"
)

// WholeMatch is the template token substituted with the entire match.
const WholeMatch = "$&"

// Expand substitutes tokens in template with parts of src selected by match,
// where match is a submatch index slice as returned by regexp.FindStringSubmatchIndex.
//
// Supported tokens:
//   - $$ inserts a literal $,
//   - $& inserts the entire match,
//   - $` inserts the part of src preceding the match,
//   - $' inserts the part of src following the match,
//   - $n and $nn insert the n-th capture group (1-99).
//
// A group number larger than the number of groups is not a token and is copied literally,
// two digit numbers fall back to one digit if the two digit group does not exist.
// A group that did not participate in the match expands to an empty string.
func Expand(template, src string, match []int) string {
	if !strings.Contains(template, "$") {
		return template
	}

	groups := len(match)/2 - 1

	var sb strings.Builder
	sb.Grow(len(template) + len(src))

	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' || i+1 == len(template) {
			sb.WriteByte(c)
			continue
		}

		switch next := template[i+1]; {
		case next == '$':
			sb.WriteByte('$')
			i++
		case next == '&':
			sb.WriteString(src[match[0]:match[1]])
			i++
		case next == '`':
			sb.WriteString(src[:match[0]])
			i++
		case next == '\'':
			sb.WriteString(src[match[1]:])
			i++
		case isDigit(next):
			n, width := groupNumber(template[i+1:], groups)
			if n == 0 {
				sb.WriteByte(c)
				continue
			}
			if s, e := match[2*n], match[2*n+1]; s >= 0 && e >= 0 {
				sb.WriteString(src[s:e])
			}
			i += width
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}

// groupNumber parses a one or two digit group reference at the start of s.
// It returns 0 if s does not reference an existing group.
func groupNumber(s string, groups int) (n, width int) {
	if len(s) >= 2 && isDigit(s[1]) {
		if nn := int(s[0]-'0')*10 + int(s[1]-'0'); nn >= 1 && nn <= groups {
			return nn, 2
		}
	}
	if n := int(s[0] - '0'); n >= 1 && n <= groups {
		return n, 1
	}
	return 0, 0
}

// HasBackreference reports whether template contains a capture group reference ($1-$99)
// or the whole match token.
func HasBackreference(template string) bool {
	for i := 0; i+1 < len(template); i++ {
		if template[i] != '$' {
			continue
		}
		switch next := template[i+1]; {
		case next == '$':
			i++
		case next == '&':
			return true
		case next >= '1' && next <= '9':
			return true
		case next == '0' && i+2 < len(template) && isDigit(template[i+2]) && template[i+2] != '0':
			return true
		}
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
