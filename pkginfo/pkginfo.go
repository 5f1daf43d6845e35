// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package pkginfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// set at link time with -ldflags "-X github.com/penny-vault/nsedata/pkginfo.Version=..."
var (
	BuildDate  string
	CommitHash string
	Version    string
)

// Build describes the running nsedata binary
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Current returns the build information of the running binary. Binaries
// built without link flags report version "dev".
func Current() Build {
	version := Version
	if version == "" {
		version = "dev"
	}

	return Build{
		Version:   version,
		Commit:    CommitHash,
		Date:      BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (build Build) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Version", build.Version)
	e.Str("Commit", build.Commit)
	e.Str("BuildDate", build.Date)
	e.Str("GoVersion", build.GoVersion)
}

// UserAgent identifies nsedata in outgoing HTTP requests
func UserAgent() string {
	return fmt.Sprintf("nsedata/%s (+https://github.com/penny-vault/nsedata)", Current().Version)
}

// BuildVersionString returns a version info string suitable for printing on the command line
func BuildVersionString() string {
	build := Current()
	return fmt.Sprintf(`nsedata %s %s

Build Date: %s
Commit: %s
Built with: %s`, build.Version, build.Platform, build.Date, build.Commit, build.GoVersion)
}

// GetDependencyList returns the module path and version of every dependency
// linked into the binary, sorted, each of the form `path="version"`
func GetDependencyList() []string {
	deps := []string{}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		log.Error().Msg("could not get package build info")
		return deps
	}

	for _, dep := range buildInfo.Deps {
		version := dep.Version
		if dep.Replace != nil {
			version = fmt.Sprintf("%s => %s", dep.Version, dep.Replace.Path)
		}
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, version))
	}

	sort.Strings(deps)
	return deps
}
