package semver

import (
	"fmt"
	"strings"

	xsemver "golang.org/x/mod/semver"
)

const invalidVersionTemplateConstant = "invalid semantic version %q"

// Version is a parsed semantic version ordered by standard semver
// precedence (golang.org/x/mod/semver.Compare), ignoring build metadata for
// ordering purposes as the semver specification requires.
type Version struct {
	canonical string
	original  string
}

// Parse parses a semantic version such as "1.1.0", "1.1.0-alpha.1", or
// "1.1.0+build.3". The "v" prefix golang.org/x/mod/semver requires is added
// and stripped transparently.
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	prefixed := trimmed
	if !strings.HasPrefix(prefixed, "v") {
		prefixed = "v" + prefixed
	}
	if !xsemver.IsValid(prefixed) {
		return Version{}, fmt.Errorf(invalidVersionTemplateConstant, raw)
	}
	return Version{canonical: xsemver.Canonical(prefixed), original: trimmed}, nil
}

// MustParse parses raw and panics on failure; intended for literals in tests
// and built-in fixtures, never for untrusted input.
func MustParse(raw string) Version {
	version, parseError := Parse(raw)
	if parseError != nil {
		panic(parseError)
	}
	return version
}

// String renders the version without the internal "v" prefix, matching the
// package-ecosystem convention the rest of the engine's data model uses.
func (version Version) String() string {
	return strings.TrimPrefix(version.canonical, "v")
}

// IsZero reports whether this is the zero Version (never produced by Parse).
func (version Version) IsZero() bool {
	return version.canonical == ""
}

// Compare returns -1, 0, or 1 as version is less than, equal to, or greater
// than other, under full semver precedence (prerelease included, build
// metadata excluded).
func (version Version) Compare(other Version) int {
	return xsemver.Compare(version.canonical, other.canonical)
}

// Less reports whether version orders strictly before other.
func (version Version) Less(other Version) bool {
	return version.Compare(other) < 0
}

// Equal reports whether version and other have identical precedence, which
// may hold even if their original build metadata differed.
func (version Version) Equal(other Version) bool {
	return version.Compare(other) == 0
}
