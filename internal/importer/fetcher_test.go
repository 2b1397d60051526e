package importer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/auditfile"
	"github.com/vetkit/vetkit/internal/importer"
)

const samplePeerAuditsConstant = `
[[audits.autocfg]]
version = "1.1.0"
criteria = "safe-to-deploy"
`

type stubHTTPFetcher struct {
	byURL map[string][]byte
	errByURL map[string]error
}

func (fetcher *stubHTTPFetcher) FetchBytes(_ context.Context, url string) ([]byte, error) {
	if fetchError, found := fetcher.errByURL[url]; found {
		return nil, fetchError
	}
	return fetcher.byURL[url], nil
}

func TestFetchAllSucceedsForEveryPeer(testInstance *testing.T) {
	testInstance.Parallel()

	httpFetcher := &stubHTTPFetcher{byURL: map[string][]byte{
		"https://peer-a.example/audits.toml": []byte(samplePeerAuditsConstant),
		"https://peer-b.example/audits.toml": []byte(samplePeerAuditsConstant),
	}}

	fetcher := importer.NewFetcher(httpFetcher, nil, 2)

	results, diagnostics := fetcher.FetchAll(context.Background(), []importer.PeerSource{
		{Name: "peer-a", URL: "https://peer-a.example/audits.toml"},
		{Name: "peer-b", URL: "https://peer-b.example/audits.toml"},
	}, nil, importer.RunOptions{})

	require.Empty(testInstance, diagnostics)
	require.Len(testInstance, results, 2)
	require.Len(testInstance, results["peer-a"].Audits["autocfg"], 1)
}

func TestFetchAllFallsBackToCacheOnFailure(testInstance *testing.T) {
	testInstance.Parallel()

	httpFetcher := &stubHTTPFetcher{errByURL: map[string]error{
		"https://peer-a.example/audits.toml": errors.New("connection refused"),
	}}

	cachedDocument, parseError := auditfile.ParseAudits([]byte(samplePeerAuditsConstant))
	require.NoError(testInstance, parseError)

	fetcher := importer.NewFetcher(httpFetcher, nil, 1)

	results, diagnostics := fetcher.FetchAll(context.Background(), []importer.PeerSource{
		{Name: "peer-a", URL: "https://peer-a.example/audits.toml"},
	}, map[string]auditfile.AuditsDocument{"peer-a": cachedDocument}, importer.RunOptions{})

	require.Len(testInstance, diagnostics, 1)
	require.Equal(testInstance, "peer-a", diagnostics[0].ImportName)
	require.Len(testInstance, results["peer-a"].Audits["autocfg"], 1)
}

func TestFetchAllRespectsFrozenMode(testInstance *testing.T) {
	testInstance.Parallel()

	httpFetcher := &stubHTTPFetcher{byURL: map[string][]byte{
		"https://peer-a.example/audits.toml": []byte(samplePeerAuditsConstant),
	}}

	fetcher := importer.NewFetcher(httpFetcher, nil, 1)

	results, diagnostics := fetcher.FetchAll(context.Background(), []importer.PeerSource{
		{Name: "peer-a", URL: "https://peer-a.example/audits.toml"},
	}, nil, importer.RunOptions{Frozen: true})

	require.Empty(testInstance, results)
	require.Len(testInstance, diagnostics, 1)
}

func TestFetchAllLockedUsesCacheWithoutNetworkCall(testInstance *testing.T) {
	testInstance.Parallel()

	httpFetcher := &stubHTTPFetcher{errByURL: map[string]error{
		"https://peer-a.example/audits.toml": errors.New("should not be called"),
	}}

	cachedDocument, parseError := auditfile.ParseAudits([]byte(samplePeerAuditsConstant))
	require.NoError(testInstance, parseError)

	fetcher := importer.NewFetcher(httpFetcher, nil, 1)

	results, diagnostics := fetcher.FetchAll(context.Background(), []importer.PeerSource{
		{Name: "peer-a", URL: "https://peer-a.example/audits.toml"},
	}, map[string]auditfile.AuditsDocument{"peer-a": cachedDocument}, importer.RunOptions{Locked: true})

	require.Empty(testInstance, diagnostics)
	require.Len(testInstance, results["peer-a"].Audits["autocfg"], 1)
}
