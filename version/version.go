// Package version tells builds apart: a release version stamped at build
// time, or the VCS revision the binary was built from.
package version

import "runtime/debug"

// Version is set at build time:
// go build -ldflags "-X github.com/kaikuaudio/kaiku/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision from the build info, with a -dirty suffix
// when the working tree had local changes. Empty when built without VCS
// info.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	modified := false
	for _, setting := range info.Settings {
		if setting.Key == "vcs.modified" && setting.Value == "true" {
			modified = true
			break
		}
	}
	for _, setting := range info.Settings {
		if setting.Key != "vcs.revision" {
			continue
		}
		hash := setting.Value
		if len(hash) > 7 {
			hash = hash[:7]
		}
		if modified {
			return hash + "-dirty"
		}
		return hash
	}
	return ""
}()

// VersionOrHash is what the CLI prints: the stamped version when there is
// one, the revision hash otherwise.
var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()
