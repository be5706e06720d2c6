// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"strings"
)

const notAvailable = "N/A"

// AppBuildInfo is the build metadata injected with -ldflags. Fields left
// empty by the build read as "N/A".
type AppBuildInfo struct {
	version string
	date    string
	commit  string
}

func NewAppBuildInfo(version, date, commit string) AppBuildInfo {
	return AppBuildInfo{
		version: strings.TrimSpace(version),
		date:    strings.TrimSpace(date),
		commit:  strings.TrimSpace(commit),
	}
}

func (a AppBuildInfo) BuildVersion() string { return orNotAvailable(a.version) }

func (a AppBuildInfo) BuildDate() string { return orNotAvailable(a.date) }

func (a AppBuildInfo) BuildCommit() string { return orNotAvailable(a.commit) }

// Stamped reports whether the linker provided a version. Backups record
// the binary version only in that case.
func (a AppBuildInfo) Stamped() bool { return a.version != "" }

// String is the banner printed by the binaries at startup.
func (a AppBuildInfo) String() string {
	return fmt.Sprintf("Build version: %s\nBuild date: %s\nBuild commit: %s",
		a.BuildVersion(), a.BuildDate(), a.BuildCommit())
}

func orNotAvailable(v string) string {
	if v == "" {
		return notAvailable
	}
	return v
}
