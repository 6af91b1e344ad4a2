// Package version carries build metadata, set at link time:
//
//	go build -ldflags "-X github.com/banshee-data/stockgrid/internal/version.Version=v0.3.0"
package version

var (
	// Version is the release tag of the binary.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
