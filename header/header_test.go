// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package header

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		input    string
		expected Header
	}{
		{
			input: "-RemoveMe",
			expected: Header{
				Name:   "RemoveMe",
				Action: Remove,
			},
		},
		{
			input: "-RemoveMeByPrefix*",
			expected: Header{
				Name:   "RemoveMeByPrefix",
				Action: RemoveByPrefix,
			},
		},
		{
			input: "EmptyMe;",
			expected: Header{
				Name:   "EmptyMe",
				Action: Empty,
			},
		},
		{
			input:    "SetMe:value",
			expected: NewHeader("SetMe", Literal("value")),
		},
		{
			input:    "SetMe: value",
			expected: NewHeader("SetMe", Literal("value")),
		},
		{
			input:    "SetMe: value: value",
			expected: NewHeader("SetMe", Literal("value: value")),
		},
		{
			input: `SetMe: value
`,
			expected: NewHeader("SetMe", Literal("value")),
		},
		{
			input:    "iv-user=johndoe",
			expected: NewHeader("iv-user", Literal("johndoe")),
		},
		{
			input:    "X-Query=a=b",
			expected: NewHeader("X-Query", Literal("a=b")),
		},
	}
	for i := range tests {
		tc := &tests[i]
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseHeader(tc.input)
			if err != nil {
				t.Errorf("ParseHeader() error = %v", err)
			}
			if diff := cmp.Diff(got, tc.expected); diff != "" {
				t.Errorf("ParseHeader() diff = %v", diff)
			}
		})
	}
}

func TestParseHeaderScript(t *testing.T) {
	h, err := ParseHeader("X-Token: {{ req.path === '/token' ? 'secret' : undefined }}")
	if err != nil {
		t.Fatal(err)
	}
	if h.Name != "X-Token" || h.Action != Set {
		t.Fatalf("unexpected header %+v", h)
	}
	if _, ok := h.Value.(*Script); !ok {
		t.Fatalf("expected script value, got %T", h.Value)
	}
	if got, want := h.String(), "X-Token: {{req.path === '/token' ? 'secret' : undefined}}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseHeaderError(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "empty",
			input: "",
		},
		{
			name:  "remove invalid name",
			input: "-(@Me)",
		},
		{
			name:  "add invalid name",
			input: "@Me: value",
		},
		{
			name: "add invalid value",
			input: `AddMe: value
value2`,
		},
		{
			name:  "invalid script",
			input: "X-Token: {{ req.url === }}",
		},
	}

	for i := range tests {
		tc := &tests[i]
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHeader(tc.input)
			t.Log(err)
			if err == nil {
				t.Errorf("ParseHeader() error = %v", err)
			}
		})
	}
}

func TestHeadersModifyRequest(t *testing.T) {
	in := httptest.NewRequest(http.MethodGet, "/pull/15/token", http.NoBody)
	out := in.Clone(in.Context())
	out.Header.Set("X-Remove", "1")
	out.Header.Set("X-Drop-A", "1")
	out.Header.Set("X-Drop-B", "1")
	out.Header.Set("Via", "http://127.0.0.1:8080")

	hs := Headers{
		{Name: "X-Remove", Action: Remove},
		{Name: "X-Drop-", Action: RemoveByPrefix},
		{Name: "X-Empty", Action: Empty},
		NewHeader("X-Static", Literal("static")),
		NewHeader("Via", Literal("custom")),
		NewHeader("X-Path", Func(func(req *http.Request) (string, bool) {
			return req.URL.Path, true
		})),
		NewHeader("X-Absent", Func(func(req *http.Request) (string, bool) {
			return "", false
		})),
	}
	hs.ModifyRequest(out, in)

	expected := http.Header{
		"X-Empty":  []string{""},
		"X-Static": []string{"static"},
		"Via":      []string{"custom"},
		"X-Path":   []string{"/pull/15/token"},
	}
	if diff := cmp.Diff(expected, out.Header); diff != "" {
		t.Fatal(diff)
	}
}

func TestMerge(t *testing.T) {
	lower := Headers{
		NewHeader("X-A", Literal("a")),
		NewHeader("X-B", Literal("b")),
	}
	upper := Headers{
		NewHeader("x-a", Literal("A")),
		NewHeader("X-C", Literal("c")),
	}

	got := Merge(lower, upper)
	expected := Headers{
		NewHeader("x-a", Literal("A")),
		NewHeader("X-B", Literal("b")),
		NewHeader("X-C", Literal("c")),
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatal(diff)
	}
	if lower[0].Value != Literal("a") {
		t.Fatal("Merge modified lower")
	}
}

func TestRemoveHeadersByPrefix(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		header   http.Header
		expected http.Header
	}{
		{
			name:   "smoke",
			prefix: http.CanonicalHeaderKey("RemoveMe"),
			header: http.Header{
				http.CanonicalHeaderKey("Remo"):             nil,
				http.CanonicalHeaderKey("RemoveMeByPrefix"): nil,
				http.CanonicalHeaderKey("RemoveMeBy"):       nil,
				http.CanonicalHeaderKey("RemoveMe"):         nil,
				http.CanonicalHeaderKey("DontRemoveMe"):     nil,
			},
			expected: http.Header{
				http.CanonicalHeaderKey("Remo"):         nil,
				http.CanonicalHeaderKey("DontRemoveMe"): nil,
			},
		},
	}

	for i := range tests {
		tc := &tests[i]
		t.Run(tc.name, func(t *testing.T) {
			h := tc.header.Clone()
			removeHeadersByPrefix(h, tc.prefix)

			if diff := cmp.Diff(h, tc.expected); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}
