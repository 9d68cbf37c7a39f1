// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X github.com/codebymarcos/vbox/internal/version.Version=1.0.0 \
//	                   -X github.com/codebymarcos/vbox/internal/version.Commit=$(git rev-parse HEAD) \
//	                   -X github.com/codebymarcos/vbox/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the application.
	Version = "dev"

	// Commit is the git commit SHA at build time.
	Commit = "unknown"

	// BuildDate is the date when the binary was built.
	BuildDate = "unknown"
)

// String renders the version block printed by "vbox version".
func String() string {
	return fmt.Sprintf("vbox %s\n  Commit:     %s\n  Build Date: %s\n", Version, Commit, BuildDate)
}
