package difforacle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/vetkit/vetkit/internal/semver"
)

const (
	cacheFileNameConstant      = "costs.json"
	lockFileNameConstant       = "costs.json.lock"
	lockPollIntervalConstant   = 20 * time.Millisecond
	lockDefaultTimeoutConstant = 5 * time.Second

	lockTimedOutTemplateConstant  = "diff oracle cache: timed out acquiring lock on %q after %s"
	readCacheTemplateConstant     = "diff oracle cache: failed to read %q: %w"
	decodeCacheTemplateConstant   = "diff oracle cache: failed to decode %q: %w"
	encodeCacheTemplateConstant   = "diff oracle cache: failed to encode cache: %w"
	writeCacheTemplateConstant    = "diff oracle cache: failed to write %q: %w"
)

// CachingOracle wraps an underlying Oracle with a content-addressed,
// file-locked on-disk cache keyed by (package, from, to). Concurrent vet
// processes serialize on the lock file while reading or updating the
// cache; in-process callers share a mutex so concurrent EstimateCost calls
// from the same suggester run never race on the same cache file.
type CachingOracle struct {
	underlying Oracle
	fileSystem afero.Fs
	directory  string
	lockPath   string

	processMutex sync.Mutex
}

// NewCachingOracle wraps underlying with a disk cache rooted at directory.
// fileSystem is injectable for tests; production callers pass
// afero.NewOsFs().
func NewCachingOracle(underlying Oracle, fileSystem afero.Fs, directory string) *CachingOracle {
	return &CachingOracle{
		underlying: underlying,
		fileSystem: fileSystem,
		directory:  directory,
		lockPath:   filepath.Join(directory, lockFileNameConstant),
	}
}

type cacheRecord struct {
	PackageName string `json:"package_name"`
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
	Cost        int    `json:"cost"`
}

// EstimateCost returns the cached cost for the triple if present; otherwise
// it asks the underlying oracle, persists the result under an exclusive
// advisory lock, and returns it. A fetch failure from the underlying oracle
// is never cached.
func (oracle *CachingOracle) EstimateCost(executionContext context.Context, packageName string, fromVersion *semver.Version, toVersion semver.Version) (int, error) {
	oracle.processMutex.Lock()
	defer oracle.processMutex.Unlock()

	key := makeCostKey(packageName, fromVersion, toVersion)

	unlock, lockError := oracle.acquireLock(executionContext)
	if lockError != nil {
		return 0, lockError
	}
	defer unlock()

	records, readError := oracle.readRecords()
	if readError != nil {
		return 0, readError
	}

	if record, found := records[key]; found {
		return record.Cost, nil
	}

	cost, oracleError := oracle.underlying.EstimateCost(executionContext, packageName, fromVersion, toVersion)
	if oracleError != nil {
		return 0, oracleError
	}

	records[key] = cacheRecord{
		PackageName: packageName,
		FromVersion: key.fromVersion,
		ToVersion:   key.toVersion,
		Cost:        cost,
	}
	if writeError := oracle.writeRecords(records); writeError != nil {
		return cost, writeError
	}

	return cost, nil
}

func (oracle *CachingOracle) acquireLock(executionContext context.Context) (func(), error) {
	if mkdirError := oracle.fileSystem.MkdirAll(oracle.directory, 0o755); mkdirError != nil {
		return nil, mkdirError
	}

	deadline := time.Now().Add(lockDefaultTimeoutConstant)
	for {
		file, createError := oracle.fileSystem.OpenFile(oracle.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if createError == nil {
			_ = file.Close()
			return func() { _ = oracle.fileSystem.Remove(oracle.lockPath) }, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf(lockTimedOutTemplateConstant, oracle.lockPath, lockDefaultTimeoutConstant)
		}

		select {
		case <-executionContext.Done():
			return nil, executionContext.Err()
		case <-time.After(lockPollIntervalConstant):
		}
	}
}

func (oracle *CachingOracle) readRecords() (map[costKey]cacheRecord, error) {
	path := filepath.Join(oracle.directory, cacheFileNameConstant)

	data, readError := afero.ReadFile(oracle.fileSystem, path)
	if os.IsNotExist(readError) {
		return make(map[costKey]cacheRecord), nil
	}
	if readError != nil {
		return nil, fmt.Errorf(readCacheTemplateConstant, path, readError)
	}

	var stored []cacheRecord
	if decodeError := json.Unmarshal(data, &stored); decodeError != nil {
		return nil, fmt.Errorf(decodeCacheTemplateConstant, path, decodeError)
	}

	records := make(map[costKey]cacheRecord, len(stored))
	for _, record := range stored {
		key := costKey{packageName: record.PackageName, fromVersion: record.FromVersion, toVersion: record.ToVersion}
		records[key] = record
	}
	return records, nil
}

func (oracle *CachingOracle) writeRecords(records map[costKey]cacheRecord) error {
	stored := make([]cacheRecord, 0, len(records))
	for _, record := range records {
		stored = append(stored, record)
	}

	data, encodeError := json.MarshalIndent(stored, "", "  ")
	if encodeError != nil {
		return fmt.Errorf(encodeCacheTemplateConstant, encodeError)
	}

	path := filepath.Join(oracle.directory, cacheFileNameConstant)
	if writeError := afero.WriteFile(oracle.fileSystem, path, data, 0o644); writeError != nil {
		return fmt.Errorf(writeCacheTemplateConstant, path, writeError)
	}
	return nil
}
