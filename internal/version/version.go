package version

// Build metadata, injected through -ldflags at release time. The zero
// values identify a local development build.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)
