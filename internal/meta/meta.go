// Package meta holds build metadata set through -ldflags.
package meta

var (
	// Version is the release version, injected at build time.
	Version string
	// UserAgent identifies tagwatch to registries.
	UserAgent string
)

func init() {
	if Version == "" {
		Version = "v0.0.0-unknown"
	}

	UserAgent = "tagwatch/" + Version
}
