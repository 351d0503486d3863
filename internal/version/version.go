// Package version carries the build stamp shared by the cli, gui and tui
// front ends and by the storage clients.
package version

import "strings"

// Version and BuildTime are overridden with -ldflags "-X" at release time.
var (
	Version   = "v0.4.0-dev"
	BuildTime = "unknown"
)

// azure rejects application IDs longer than this.
const maxAppIDLen = 24

// String is the one-line form printed by "objectdesk version".
func String() string {
	return "objectdesk " + Version + " (built " + BuildTime + ")"
}

// AppID identifies objectdesk to the storage services, e.g. "objectdesk/v0.4.0".
// Spaces are replaced and the result is capped so both SDKs accept it.
func AppID() string {
	id := "objectdesk/" + strings.ReplaceAll(strings.TrimSpace(Version), " ", "-")
	if len(id) > maxAppIDLen {
		id = id[:maxAppIDLen]
	}
	return id
}
