package suggester

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vetkit/vetkit/internal/difforacle"
	"github.com/vetkit/vetkit/internal/semver"
)

const defaultOracleConcurrencyConstant = 8

// costRequest is one (package, action) pair whose cost the oracle must
// estimate.
type costRequest struct {
	packageName string
	action      Action
}

// key returns a comparable, deterministic identifier for the request, used
// to deduplicate requests before dispatch (Action embeds a *semver.Version,
// which is not itself comparable across otherwise-equal requests).
func (request costRequest) key() string {
	from := ""
	if request.action.From != nil {
		from = request.action.From.String()
	}
	return request.packageName + "|" + from + "|" + request.action.To.String()
}

type costResult struct {
	cost       int
	diagnostic error
}

// evaluateCosts dispatches requests to oracle with at most concurrencyLimit
// in flight at once, via an errgroup-bounded worker pool. Duplicate
// requests (same package/action, which happens often across criteria
// sharing the same bridging delta) are only dispatched once. An oracle
// failure never aborts the batch; it is recorded as a diagnostic against
// that single request so the caller can omit the candidate and keep going.
func evaluateCosts(executionContext context.Context, oracle difforacle.Oracle, requests []costRequest, concurrencyLimit int) map[string]costResult {
	if concurrencyLimit <= 0 {
		concurrencyLimit = defaultOracleConcurrencyConstant
	}

	seen := make(map[string]bool)
	deduped := make([]costRequest, 0, len(requests))
	for _, request := range requests {
		key := request.key()
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, request)
	}

	results := make(map[string]costResult, len(deduped))
	var resultsMutex sync.Mutex

	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(concurrencyLimit)

	for _, request := range deduped {
		request := request
		group.Go(func() error {
			var from *semver.Version
			if request.action.Kind == ActionDelta {
				from = request.action.From
			}

			cost, oracleError := oracle.EstimateCost(groupContext, request.packageName, from, request.action.To)

			resultsMutex.Lock()
			results[request.key()] = costResult{cost: cost, diagnostic: oracleError}
			resultsMutex.Unlock()

			return nil
		})
	}

	_ = group.Wait()

	return results
}
