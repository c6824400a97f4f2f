package version

import "runtime/debug"

const devVersion = "v0.1.0"

// Version is the cg release. It is a var so release builds can set it:
//
//	go build -ldflags "-X github.com/vanderheijden86/casegraph/pkg/version.Version=v0.3.0" ./cmd/cg
var Version = devVersion

// String returns Version, or the module version recorded by `go install`
// when Version was left at its default in a dev build.
func String() string {
	if Version != devVersion {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}
