// Package version exposes the build-time version stamp.
package version

// version is set at build time via -ldflags.
var version = ""

// Value returns the stamped version, or a development placeholder.
func Value() string {
	if version == "" {
		return "v0.0.0-dev"
	}
	return version
}
