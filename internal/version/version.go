// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package version

// Values are set at build time with -ldflags "-X".
var (
	Version = "devel"
	Time    = "unknown"
	Commit  = "unknown"
)
