// Package version holds build metadata injected at link time:
//
//	go build -ldflags "-X github.com/ndewijer/portfolio-valuation/internal/version.Version=1.2.0"
package version

// Version is the application version.
var Version = "dev"
