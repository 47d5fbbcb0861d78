package server

import (
	"github.com/Masterminds/semver/v3"
)

// Version is the server release.
const Version = "0.1.0"

// ApiVersion is the wire contract version clients announce in ClientVersionHeader.
const ApiVersion = "0.1.0"

const ClientVersionHeader = "X-Interview-Client-Version"

// clients sharing the minor API version are accepted
var versionConstraint *semver.Constraints

func init() {
	var err error
	versionConstraint, err = semver.NewConstraint("~" + ApiVersion)
	if err != nil {
		panic(err)
	}
}

// IsVersionCompatible reports whether a client built against version can talk
// to this server. Invalid version strings are incompatible.
func IsVersionCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return versionConstraint.Check(v)
}
