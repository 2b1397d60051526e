package semver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/semver"
)

func TestParseAndCompare(testInstance *testing.T) {
	testInstance.Parallel()

	lower, lowerError := semver.Parse("0.1.0")
	require.NoError(testInstance, lowerError)

	higher, higherError := semver.Parse("0.13.0")
	require.NoError(testInstance, higherError)

	require.True(testInstance, lower.Less(higher))
	require.False(testInstance, higher.Less(lower))
	require.True(testInstance, lower.Equal(semver.MustParse("0.1.0")))
}

func TestParseRejectsGarbage(testInstance *testing.T) {
	testInstance.Parallel()

	_, parseError := semver.Parse("not-a-version")
	require.Error(testInstance, parseError)
}

func TestPrereleaseOrdering(testInstance *testing.T) {
	testInstance.Parallel()

	pre := semver.MustParse("1.0.0-alpha")
	release := semver.MustParse("1.0.0")

	require.True(testInstance, pre.Less(release))
}

func TestBuildMetadataIgnoredForPrecedence(testInstance *testing.T) {
	testInstance.Parallel()

	withBuild := semver.MustParse("1.0.0+build.7")
	withoutBuild := semver.MustParse("1.0.0")

	require.True(testInstance, withBuild.Equal(withoutBuild))
}

func TestStringRoundTrip(testInstance *testing.T) {
	testInstance.Parallel()

	version := semver.MustParse("1.1.0")
	require.Equal(testInstance, "1.1.0", version.String())
}
