// Package version carries the build-time version string, in the
// registry's own style (version/version.go) so it can be overwritten by
// linker flags at build time.
package version

// mainpkg is the project's canonical import path.
var mainpkg = "github.com/metalad-go/metalad"

// versionString is the version of the binary currently running. Replaced
// by linker flags during a release build; the value here is used for a
// plain `go build`/`go install`.
var versionString = "v0.0.0+unknown"

// revision is filled with the VCS revision at link time.
var revision = ""

// String formats the package's identity the way a --version flag prints
// it.
func String() string {
	if revision == "" {
		return mainpkg + " " + versionString
	}
	return mainpkg + " " + versionString + " (" + revision + ")"
}
