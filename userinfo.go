// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"errors"
	"net/url"
	"strings"
)

// ParseUserInfo parses a user:password string into *url.Userinfo.
// Username and password cannot be empty.
func ParseUserInfo(val string) (*url.Userinfo, error) {
	if val == "" {
		return nil, nil //nolint:nilnil // nil is a valid value for Userinfo in URL
	}

	u, p, ok := strings.Cut(val, ":")
	if !ok {
		return nil, errors.New("expected username:password")
	}
	ui := url.UserPassword(u, p)
	if err := validatedUserInfo(ui); err != nil {
		return nil, err
	}

	return ui, nil
}

func validatedUserInfo(ui *url.Userinfo) error {
	if ui == nil {
		return nil
	}
	if ui.Username() == "" {
		return errors.New("username cannot be empty")
	}
	if p, _ := ui.Password(); p == "" {
		return errors.New("password cannot be empty")
	}

	return nil
}

func RedactUserinfo(ui *url.Userinfo) string {
	if ui == nil {
		return ""
	}
	if _, has := ui.Password(); has {
		return ui.Username() + ":xxxxx"
	}
	return ui.Username()
}
