// Package version holds build-time version info injected via ldflags.
//
// Set at compile time:
//
//	go build -ldflags "-X github.com/NicolasHaas/gomoku/pkg/version.tag=v1.0.0
//	  -X github.com/NicolasHaas/gomoku/pkg/version.commit=abc1234
//	  -X github.com/NicolasHaas/gomoku/pkg/version.date=2026-01-01"
package version

// Populated by -ldflags "-X ...". Local builds keep the defaults.
var (
	tag    = ""
	commit = "unknown"
	date   = "unknown"
)

// String returns the tag, the commit, or "dev".
func String() string {
	if tag != "" {
		return tag
	}
	if commit != "unknown" {
		return commit
	}
	return "dev"
}

// Full also includes the commit and build date when known.
func Full() string {
	switch {
	case tag != "":
		return tag + " (" + commit + ") built " + date
	case commit != "unknown":
		return commit + " built " + date
	default:
		return "dev"
	}
}
