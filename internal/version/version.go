package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/arthur-debert/mkincludes/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/arthur-debert/mkincludes/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/arthur-debert/mkincludes/internal/version.Date={{.Date}}
)

// String returns the version line printed by --version.
func String() string {
	return Version + " (commit " + Commit + ", built " + Date + ")"
}
