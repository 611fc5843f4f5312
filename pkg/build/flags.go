// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded at link time:
//
//	go build -ldflags "-X sculptor/pkg/build.buildName=sculptor \
//	  -X sculptor/pkg/build.buildVersion=v0.3.0 ..."
//
// Development builds carry no ldflags; they report "dev" values.
package build

import (
	"errors"
	"fmt"
)

// Description is the one-line summary shown by the CLI.
const Description = "Real-time stereo conditioning with mid/side, phase offset and level meters"

const devValue = "dev"

// Info is the build metadata.
type Info struct {
	Name    string `json:"name"`
	Time    string `json:"time"`
	Commit  string `json:"commit"`
	Version string `json:"version"`
}

// String renders the version line printed by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Set by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = Info{
		Name:    "sculptor",
		Time:    devValue,
		Commit:  devValue,
		Version: devValue,
	}
)

// Initialize copies the ldflags values into Info. Every missing value is
// reported in the returned error; present values are applied either way,
// so callers may log the error and continue.
func Initialize() error {
	var errs []error
	apply := func(dst *string, v, flag string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = v
	}

	apply(&buildInfo.Name, buildName, "BuildName")
	apply(&buildInfo.Time, buildTime, "BuildTime")
	apply(&buildInfo.Commit, buildCommit, "BuildCommit")
	apply(&buildInfo.Version, buildVersion, "BuildVersion")

	return errors.Join(errs...)
}

// Get returns the build metadata.
func Get() Info {
	return buildInfo
}
