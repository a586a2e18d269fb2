// Package version holds the swesrc build version.
package version

// Version is set at build time:
//
//	go build -ldflags "-X github.com/dis-maja/swesrc/internal/version.Version=1.2.0"
var Version = "dev"

// UserAgent is the User-Agent header sent to bookDB.
func UserAgent() string {
	return "swesrc/" + Version
}
