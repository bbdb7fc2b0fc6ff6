package model

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"assetrepo/internal/jsonbind"
)

// Supported range of WlpInformation.WlpInformationVersion. Assets written by
// this module carry CurrentWlpInformationVersion.
const (
	MinWlpInformationVersion     = "1.0"
	MaxWlpInformationVersion     = "2.0"
	CurrentWlpInformationVersion = "1.0"
)

var wlpInformationConstraint = mustConstraint(">= " + MinWlpInformationVersion + ", < " + MaxWlpInformationVersion)

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// ValidateWlpInformationVersion accepts an empty version or one whose
// major.minor lies inside the supported range. Further segments and
// prerelease suffixes are ignored. Anything else is a
// *jsonbind.BadVersionError.
func ValidateWlpInformationVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(majorMinor(version))
	if err == nil && wlpInformationConstraint.Check(v) {
		return nil
	}
	return &jsonbind.BadVersionError{
		BadVersion: version,
		MinVersion: MinWlpInformationVersion,
		MaxVersion: MaxWlpInformationVersion,
	}
}

// majorMinor trims version to its first two dot-separated segments, each cut
// at the first non-digit.
func majorMinor(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	for i, p := range parts {
		end := strings.IndexFunc(p, func(r rune) bool { return r < '0' || r > '9' })
		if end == 0 {
			return version
		}
		if end > 0 {
			parts[i] = p[:end]
		}
	}
	return strings.Join(parts, ".")
}
