/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version carries build information.
package version

import "fmt"

// Version is the current version of Lava Byte Radio.
// This is set at build time via ldflags:
//
//	-X github.com/DOMyLinc/lavabyteradio-sub000/internal/version.Version=X.Y.Z
var Version = "0.3.0"

// Commit is the git revision the binary was built from, set via
// ldflags alongside Version.
var Commit = "unknown"

// String returns a human readable version line.
func String() string {
	return fmt.Sprintf("lavaradio %s (%s)", Version, Commit)
}
