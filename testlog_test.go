// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/saucelabs/jsonproxy/log"
)

// testLogger records log lines as "LEVEL message".
type testLogger struct {
	mu    sync.Mutex
	lines []string
}

var _ log.Logger = (*testLogger)(nil)

func (l *testLogger) logf(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *testLogger) Errorf(format string, args ...any) { l.logf("ERROR", format, args...) }
func (l *testLogger) Warnf(format string, args ...any)  { l.logf("WARN", format, args...) }
func (l *testLogger) Infof(format string, args ...any)  { l.logf("INFO", format, args...) }
func (l *testLogger) Debugf(format string, args ...any) { l.logf("DEBUG", format, args...) }

// Lines returns lines with the prefix.
func (l *testLogger) Lines(prefix string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var res []string
	for _, s := range l.lines {
		if strings.HasPrefix(s, prefix) {
			res = append(res, s)
		}
	}
	return res
}
