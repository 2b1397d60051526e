package difforacle_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/difforacle"
	"github.com/vetkit/vetkit/internal/semver"
)

type stubOracle struct {
	calls int
	cost  int
	err   error
}

func (oracle *stubOracle) EstimateCost(context.Context, string, *semver.Version, semver.Version) (int, error) {
	oracle.calls++
	return oracle.cost, oracle.err
}

func TestCachingOracleCachesSuccessfulEstimate(testInstance *testing.T) {
	testInstance.Parallel()

	underlying := &stubOracle{cost: 42}
	fileSystem := afero.NewMemMapFs()
	caching := difforacle.NewCachingOracle(underlying, fileSystem, "/cache")

	from := semver.MustParse("0.1.0")
	to := semver.MustParse("0.4.0")

	firstCost, firstError := caching.EstimateCost(context.Background(), "base64", &from, to)
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, 42, firstCost)
	require.Equal(testInstance, 1, underlying.calls)

	secondCost, secondError := caching.EstimateCost(context.Background(), "base64", &from, to)
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, 42, secondCost)
	require.Equal(testInstance, 1, underlying.calls, "second call must be served from cache without invoking the underlying oracle")
}

func TestCachingOracleDoesNotCacheFailures(testInstance *testing.T) {
	testInstance.Parallel()

	underlying := &stubOracle{err: context.DeadlineExceeded}
	fileSystem := afero.NewMemMapFs()
	caching := difforacle.NewCachingOracle(underlying, fileSystem, "/cache")

	to := semver.MustParse("1.1.0")

	_, firstError := caching.EstimateCost(context.Background(), "autocfg", nil, to)
	require.Error(testInstance, firstError)

	underlying.err = nil
	underlying.cost = 7

	secondCost, secondError := caching.EstimateCost(context.Background(), "autocfg", nil, to)
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, 7, secondCost)
	require.Equal(testInstance, 2, underlying.calls)
}

func TestCachingOracleDistinguishesFullFromDelta(testInstance *testing.T) {
	testInstance.Parallel()

	underlying := &stubOracle{cost: 10}
	fileSystem := afero.NewMemMapFs()
	caching := difforacle.NewCachingOracle(underlying, fileSystem, "/cache")

	to := semver.MustParse("1.1.0")
	from := semver.MustParse("1.0.0")

	_, fullError := caching.EstimateCost(context.Background(), "autocfg", nil, to)
	require.NoError(testInstance, fullError)

	underlying.cost = 99
	deltaCost, deltaError := caching.EstimateCost(context.Background(), "autocfg", &from, to)
	require.NoError(testInstance, deltaError)
	require.Equal(testInstance, 99, deltaCost)
	require.Equal(testInstance, 2, underlying.calls)
}
