// Package repocache persists per-repository extraction results keyed by a
// ref-state fingerprint, so unchanged repositories skip the history walk.
package repocache

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gitpulse/gitpulse/internal/extract"
	"github.com/gitpulse/gitpulse/pkg/persist"
)

// cacheDirName is the cache directory under the analysis output directory.
const cacheDirName = ".cache"

// indexBasename is the process-wide cache index file (JSON extension added
// by the codec).
const indexBasename = "commits_cache"

// dataSuffix is appended to the repository name for its data file basename.
const dataSuffix = "_commits"

// dirPerm is the permission for created cache directories.
const dirPerm = 0o750

// Entry is one repository's cache index record.
type Entry struct {
	Fingerprint string `json:"fingerprint"`
	Timestamp   string `json:"timestamp"`
	CommitCount int    `json:"commit_count"`
}

// Cache is the process-wide result cache. The in-memory index is shared
// across workers; mutations are serialized by a single mutex held only for
// map access, never across file I/O or subprocess calls.
type Cache struct {
	dir       string
	dataCodec persist.Codec
	logger    *slog.Logger

	mu    sync.Mutex
	index map[string]Entry
}

// Open creates the cache directory under outputDir and loads the existing
// index. An unreadable or unparseable index is treated as empty (cache miss
// for everyone), never as an error.
func Open(outputDir string, dataCodec persist.Codec, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Join(outputDir, cacheDirName)

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return nil, err
	}

	cache := &Cache{
		dir:       dir,
		dataCodec: dataCodec,
		logger:    logger,
		index:     make(map[string]Entry),
	}

	loadErr := persist.LoadState(dir, indexBasename, persist.NewJSONCodec(), &cache.index)
	if loadErr != nil {
		if !os.IsNotExist(unwrapPathError(loadErr)) {
			logger.Warn("could not load cache index, starting empty", slog.String("error", loadErr.Error()))
		}

		cache.index = make(map[string]Entry)
	}

	return cache, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Entry returns the index entry for a repository, if present.
func (c *Cache) Entry(repoName string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index[repoName]

	return entry, ok
}

// IsValid reports whether the stored fingerprint matches the live one and the
// per-repository data file still exists. An empty live fingerprint is never
// valid: unknown repository state forces re-analysis.
func (c *Cache) IsValid(repoName, liveFingerprint string) bool {
	if liveFingerprint == "" {
		return false
	}

	entry, ok := c.Entry(repoName)
	if !ok || entry.Fingerprint != liveFingerprint {
		return false
	}

	_, statErr := os.Stat(c.dataPath(repoName))

	return statErr == nil
}

// Load reads the cached record list for a repository. Any read or parse
// failure is a cache miss, logged and never fatal.
func (c *Cache) Load(repoName string) ([]extract.CommitRecord, bool) {
	var records []extract.CommitRecord

	err := persist.LoadState(c.dir, repoName+dataSuffix, c.dataCodec, &records)
	if err != nil {
		if !os.IsNotExist(unwrapPathError(err)) {
			c.logger.Warn("could not load cached data, treating as miss",
				slog.String("repository", repoName),
				slog.String("error", err.Error()))
		}

		return nil, false
	}

	return records, true
}

// Store writes the repository's data file, then updates its index entry.
// A data-file write failure leaves the index untouched so the stale entry
// cannot vouch for records that were never written. Index entries for other
// repositories are never affected.
func (c *Cache) Store(repoName, fingerprint string, records []extract.CommitRecord) {
	err := persist.SaveState(c.dir, repoName+dataSuffix, c.dataCodec, records)
	if err != nil {
		c.logger.Warn("could not save cache data",
			slog.String("repository", repoName),
			slog.String("error", err.Error()))

		return
	}

	c.mu.Lock()
	c.index[repoName] = Entry{
		Fingerprint: fingerprint,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		CommitCount: len(records),
	}
	c.mu.Unlock()
}

// PersistIndex flushes the whole index to disk. Called once per run to avoid
// write amplification under concurrency; a failure is logged, not fatal.
func (c *Cache) PersistIndex() {
	c.mu.Lock()
	snapshot := make(map[string]Entry, len(c.index))
	for name, entry := range c.index {
		snapshot[name] = entry
	}
	c.mu.Unlock()

	err := persist.SaveState(c.dir, indexBasename, persist.NewJSONCodec(), snapshot)
	if err != nil {
		c.logger.Warn("could not save cache index", slog.String("error", err.Error()))
	}
}

// dataPath returns the per-repository data file path.
func (c *Cache) dataPath(repoName string) string {
	return filepath.Join(c.dir, repoName+dataSuffix+c.dataCodec.Extension())
}

// unwrapPathError digs the os-level error out of a wrapped persist error so
// missing files can be distinguished from corrupt ones.
func unwrapPathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr
	}

	return err
}
