// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package stdlog

import (
	"io"
	"log"
	"os"

	flog "github.com/saucelabs/jsonproxy/log"
)

func Default() *Logger {
	return New(flog.DefaultConfig())
}

// Option is a function that modifies the Logger.
type Option func(*Logger)

func New(cfg *flog.Config, opts ...Option) *Logger {
	var w io.Writer = os.Stdout
	if cfg.File != nil {
		w = cfg.File
	}

	l := &Logger{
		log:   log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.LUTC),
		level: cfg.Level,
	}
	l.setPrefixes()

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Logger implements the log.Logger interface using the standard log package.
type Logger struct {
	log   *log.Logger
	name  string
	level flog.Level

	errorPfx string
	warnPfx  string
	infoPfx  string
	debugPfx string

	decorate func(string) string
	onError  func(name string)
}

var _ flog.Logger = (*Logger)(nil)

// Named returns a copy of the logger that prefixes every message with the name.
// Options are applied to the copy only.
func (sl Logger) Named(name string, opts ...Option) *Logger { //nolint:gocritic // we pass by value to get a copy
	sl.name = name
	sl.setPrefixes()

	for _, opt := range opts {
		opt(&sl)
	}

	return &sl
}

func (sl *Logger) setPrefixes() {
	name := sl.name
	if name != "" {
		name = "[" + name + "] "
	}

	sl.errorPfx = name + "[ERROR] "
	sl.warnPfx = name + "[WARN] "
	sl.infoPfx = name + "[INFO] "
	sl.debugPfx = name + "[DEBUG] "
}

func (sl *Logger) Errorf(format string, args ...any) {
	if sl.onError != nil {
		sl.onError(sl.name)
	}
	sl.printf(flog.ErrorLevel, sl.errorPfx, format, args...)
}

func (sl *Logger) Warnf(format string, args ...any) {
	sl.printf(flog.WarnLevel, sl.warnPfx, format, args...)
}

func (sl *Logger) Infof(format string, args ...any) {
	sl.printf(flog.InfoLevel, sl.infoPfx, format, args...)
}

func (sl *Logger) Debugf(format string, args ...any) {
	sl.printf(flog.DebugLevel, sl.debugPfx, format, args...)
}

func (sl *Logger) printf(level flog.Level, pfx, format string, args ...any) {
	if sl.level < level {
		return
	}
	if sl.decorate != nil {
		format = sl.decorate(format)
	}
	sl.log.Printf(pfx+format, args...)
}

// Unwrap returns the underlying log.Logger pointer.
func (sl *Logger) Unwrap() *log.Logger {
	return sl.log
}
