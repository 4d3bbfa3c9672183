// Package buildinfo carries version metadata stamped at link time, e.g.
//
//	go build -ldflags "-X github.com/finsplit-dev/finsplit/internal/buildinfo.Version=v0.3.0" ./cmd/finsplit
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
