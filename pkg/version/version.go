// Package version reports the build identity of the pathfollow binary.
// The variables are overridden at link time:
//
//	-ldflags "-X github.com/Sumatoshi-tech/pathfollow/pkg/version.Version=v1.2.3"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the release version of the binary.
var Version = "dev"

// Commit is the Git hash the binary was built from.
var Commit = "<unknown>"

// Date is the build date.
var Date = "<unknown>"

// moduleVersion reads the main module version stamped by go install.
func moduleVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return ""
	}

	return info.Main.Version
}

// Resolved returns Version, falling back to the module version of a
// go-installed binary.
func Resolved() string {
	if Version != "dev" {
		return Version
	}

	if mv := moduleVersion(); mv != "" {
		return mv
	}

	return Version
}

// String formats the full build identity.
func String() string {
	return fmt.Sprintf("pathfollow %s (commit %s, built %s, %s/%s)",
		Resolved(), Commit, Date, runtime.GOOS, runtime.GOARCH)
}
