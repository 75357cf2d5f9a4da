// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"net/url"
	"testing"
)

func TestParseUserInfo(t *testing.T) {
	tests := []struct {
		input string
		user  string
		pass  string
		err   bool
	}{
		{input: "user:pass", user: "user", pass: "pass"},
		{input: "user:pa:ss", user: "user", pass: "pa:ss"},
		{input: "user", err: true},
		{input: ":pass", err: true},
		{input: "user:", err: true},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(tc.input, func(t *testing.T) {
			ui, err := ParseUserInfo(tc.input)
			if tc.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if ui.Username() != tc.user {
				t.Errorf("expected user %q, got %q", tc.user, ui.Username())
			}
			if p, _ := ui.Password(); p != tc.pass {
				t.Errorf("expected password %q, got %q", tc.pass, p)
			}
		})
	}

	if ui, err := ParseUserInfo(""); ui != nil || err != nil {
		t.Fatalf("expected nil, got %v %v", ui, err)
	}
}

func TestRedactUserinfo(t *testing.T) {
	if got := RedactUserinfo(url.UserPassword("user", "secret")); got != "user:xxxxx" {
		t.Errorf("unexpected %q", got)
	}
	if got := RedactUserinfo(url.User("user")); got != "user" {
		t.Errorf("unexpected %q", got)
	}
	if got := RedactUserinfo(nil); got != "" {
		t.Errorf("unexpected %q", got)
	}
}
