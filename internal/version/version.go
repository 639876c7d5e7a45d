// Package version provides build and version information for DynamicSeg.
package version

// Version is the current release version of DynamicSeg.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/DynamicSeg/internal/version.Version=x.y.z"
var Version = "1.0.0"
