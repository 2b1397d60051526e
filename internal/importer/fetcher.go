// Package importer fetches named peer organizations' audit files over
// HTTP, concurrently and cancellably, so their audits can be merged into
// the local store with provenance. A fetch failure for one peer never
// aborts the run; it degrades to the last cached copy and a diagnostic.
package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vetkit/vetkit/internal/auditfile"
)

const (
	defaultFetchTimeoutConstant      = 30 * time.Second
	defaultFetchConcurrencyConstant  = 4

	fetchStartedMessageConstant   = "fetching peer audits"
	fetchFailedMessageConstant    = "peer audit fetch failed, falling back to cached copy"
	fetchSucceededMessageConstant = "fetched peer audits"

	importNameLogKeyConstant = "import_name"
	sourceURLLogKeyConstant  = "source_url"

	frozenModeErrorTemplateConstant     = "import %q: network access forbidden by --frozen"
	lockedModeErrorTemplateConstant     = "import %q: new fetch forbidden by --locked and no cached copy is available"
	unexpectedStatusTemplateConstant    = "unexpected HTTP status %d fetching %s"
	httpFetchFailedTemplateConstant     = "import %q: failed to fetch %s: %w"
	parseFailedTemplateConstant         = "import %q: failed to parse fetched audits: %w"
)

// PeerSource names one peer organization's audit file and where to fetch
// it from.
type PeerSource struct {
	Name string
	URL  string
}

// RunOptions mirrors the CLI's --locked/--frozen flags, consulted only by
// the import fetcher, never the resolver.
type RunOptions struct {
	// Locked forbids fetching anything not already cached.
	Locked bool
	// Frozen forbids any network access at all, cached or not.
	Frozen bool
}

// Diagnostic records one peer's fetch outcome when it did not produce a
// fresh document.
type Diagnostic struct {
	ImportName string
	Cause      error
}

// HTTPFetcher abstracts the network call so tests can substitute a fake
// without touching the real network.
type HTTPFetcher interface {
	FetchBytes(executionContext context.Context, url string) ([]byte, error)
}

// DefaultHTTPFetcher fetches a URL with net/http and a bounded timeout.
type DefaultHTTPFetcher struct {
	client *http.Client
}

// NewDefaultHTTPFetcher constructs the production HTTPFetcher.
func NewDefaultHTTPFetcher() *DefaultHTTPFetcher {
	return &DefaultHTTPFetcher{client: &http.Client{Timeout: defaultFetchTimeoutConstant}}
}

// FetchBytes performs a GET request and returns the response body.
func (fetcher *DefaultHTTPFetcher) FetchBytes(executionContext context.Context, url string) ([]byte, error) {
	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, url, nil)
	if requestError != nil {
		return nil, requestError
	}

	response, responseError := fetcher.client.Do(request)
	if responseError != nil {
		return nil, responseError
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(unexpectedStatusTemplateConstant, response.StatusCode, url)
	}

	return io.ReadAll(response.Body)
}

// Fetcher fetches and parses every configured peer's audit file.
type Fetcher struct {
	http        HTTPFetcher
	logger      *zap.Logger
	concurrency int
}

// NewFetcher constructs a Fetcher. httpFetcher and logger may be nil to
// select defaults (production HTTP client, no-op logger).
func NewFetcher(httpFetcher HTTPFetcher, logger *zap.Logger, concurrency int) *Fetcher {
	if httpFetcher == nil {
		httpFetcher = NewDefaultHTTPFetcher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrencyConstant
	}
	return &Fetcher{http: httpFetcher, logger: logger, concurrency: concurrency}
}

// FetchAll fetches every source concurrently, bounded by the Fetcher's
// configured concurrency. cached holds the last known-good parsed document
// per import name, used as a fallback when a fetch fails or is forbidden.
// A failed or forbidden fetch for one peer never aborts the others; it
// produces a Diagnostic and, if a cached copy exists, falls back to it.
func (fetcher *Fetcher) FetchAll(executionContext context.Context, sources []PeerSource, cached map[string]auditfile.AuditsDocument, options RunOptions) (map[string]auditfile.AuditsDocument, []Diagnostic) {
	results := make(map[string]auditfile.AuditsDocument, len(sources))
	diagnostics := make([]Diagnostic, 0)

	type outcome struct {
		name     string
		document auditfile.AuditsDocument
		ok       bool
		cause    error
	}

	outcomes := make(chan outcome, len(sources))

	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(fetcher.concurrency)

	for _, source := range sources {
		source := source
		group.Go(func() error {
			document, fetchError := fetcher.fetchOne(groupContext, source, cached, options)
			if fetchError != nil {
				outcomes <- outcome{name: source.Name, ok: false, cause: fetchError}
				return nil
			}
			outcomes <- outcome{name: source.Name, document: document, ok: true}
			return nil
		})
	}

	_ = group.Wait()
	close(outcomes)

	for result := range outcomes {
		if result.ok {
			results[result.name] = result.document
			continue
		}
		if cachedDocument, found := cached[result.name]; found {
			results[result.name] = cachedDocument
		}
		diagnostics = append(diagnostics, Diagnostic{ImportName: result.name, Cause: result.cause})
	}

	return results, diagnostics
}

func (fetcher *Fetcher) fetchOne(executionContext context.Context, source PeerSource, cached map[string]auditfile.AuditsDocument, options RunOptions) (auditfile.AuditsDocument, error) {
	fetcher.logger.Debug(fetchStartedMessageConstant,
		zap.String(importNameLogKeyConstant, source.Name),
		zap.String(sourceURLLogKeyConstant, source.URL))

	if options.Frozen {
		return auditfile.AuditsDocument{}, fmt.Errorf(frozenModeErrorTemplateConstant, source.Name)
	}
	if options.Locked {
		cachedDocument, found := cached[source.Name]
		if !found {
			return auditfile.AuditsDocument{}, fmt.Errorf(lockedModeErrorTemplateConstant, source.Name)
		}
		return cachedDocument, nil
	}

	data, fetchError := fetcher.http.FetchBytes(executionContext, source.URL)
	if fetchError != nil {
		fetcher.logger.Warn(fetchFailedMessageConstant, zap.String(importNameLogKeyConstant, source.Name), zap.Error(fetchError))
		return auditfile.AuditsDocument{}, fmt.Errorf(httpFetchFailedTemplateConstant, source.Name, source.URL, fetchError)
	}

	document, parseError := auditfile.ParseAudits(data)
	if parseError != nil {
		return auditfile.AuditsDocument{}, fmt.Errorf(parseFailedTemplateConstant, source.Name, parseError)
	}

	fetcher.logger.Debug(fetchSucceededMessageConstant, zap.String(importNameLogKeyConstant, source.Name))
	return document, nil
}
