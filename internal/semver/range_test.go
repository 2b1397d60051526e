package semver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/semver"
)

func TestParseRangeContains(testInstance *testing.T) {
	testInstance.Parallel()

	versionRange, parseError := semver.ParseRange(">=1.0, <3.0")
	require.NoError(testInstance, parseError)

	require.True(testInstance, versionRange.Contains(semver.MustParse("2.0.0")))
	require.True(testInstance, versionRange.Contains(semver.MustParse("1.0.0")))
	require.False(testInstance, versionRange.Contains(semver.MustParse("3.0.0")))
	require.False(testInstance, versionRange.Contains(semver.MustParse("0.9.0")))
}

func TestParseRangeExactMatch(testInstance *testing.T) {
	testInstance.Parallel()

	versionRange, parseError := semver.ParseRange("2.0.0")
	require.NoError(testInstance, parseError)

	require.True(testInstance, versionRange.Contains(semver.MustParse("2.0.0")))
	require.False(testInstance, versionRange.Contains(semver.MustParse("2.0.1")))
}

func TestEmptyRangeContainsEverything(testInstance *testing.T) {
	testInstance.Parallel()

	versionRange, parseError := semver.ParseRange("")
	require.NoError(testInstance, parseError)

	require.True(testInstance, versionRange.Contains(semver.MustParse("0.0.1")))
}

func TestParseRangeRejectsMalformedConstraint(testInstance *testing.T) {
	testInstance.Parallel()

	_, parseError := semver.ParseRange(">=not-a-version")
	require.Error(testInstance, parseError)
}
