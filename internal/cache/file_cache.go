// Package cache persists tier resolutions keyed by identifier and decode version.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierwatch-backend/internal/artifact"
	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
	"github.com/goodnatureofminers/tierwatch-backend/pkg/safe"
)

// ErrNotCacheable is returned by Put for resolutions that are not fully decided.
var ErrNotCacheable = errors.New("resolution is not cacheable")

// Status is the outcome of a cache lookup.
type Status string

const (
	StatusHit Status = "hit"
	// StatusStale means an entry exists under another decode version.
	StatusStale Status = "stale"
	StatusMiss  Status = "miss"
)

type document struct {
	artifact.Header
	Entries map[string]model.TierResolution `json:"entries"`
}

// storedEntry accepts the current entry shape and the legacy object shape
// that used "block" and had no decode version.
type storedEntry struct {
	Tier          model.Tier   `json:"tier"`
	MatchedBlock  *uint64      `json:"matchedBlock"`
	Block         *uint64      `json:"block"`
	Method        model.Method `json:"method"`
	DecodeVersion string       `json:"decodeVersion"`
	ResolvedAt    time.Time    `json:"resolvedAt"`
	Error         *string      `json:"error"`
	Reason        model.Reason `json:"reason"`
}

// FileCache is a ResolutionCache backed by a single JSON document. Every Put
// rewrites the document atomically under a writer lock.
type FileCache struct {
	mu      sync.RWMutex
	path    string
	version string
	entries map[model.Identifier]model.TierResolution
	metrics Metrics
	logger  *zap.Logger
}

// Open loads the cache at path, migrating legacy shapes. A missing file yields an empty cache.
func Open(logger *zap.Logger, path, version string, metrics Metrics) (*FileCache, error) {
	if version == "" || version == model.UnknownVersion {
		return nil, fmt.Errorf("invalid decode version %q", version)
	}
	c := &FileCache{
		path:    path,
		version: version,
		entries: make(map[model.Identifier]model.TierResolution),
		metrics: metrics,
		logger:  logger,
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("reading cache %s: %w", path, err)
	}

	migrated, err := c.decode(b)
	if err != nil {
		return nil, fmt.Errorf("decoding cache %s: %w", path, err)
	}
	if migrated > 0 {
		metrics.ObserveMigrated(migrated)
	}
	logger.Info("resolution cache loaded",
		zap.String("path", path),
		zap.Int("entries", len(c.entries)),
		zap.Int("migrated", migrated))
	return c, nil
}

func (c *FileCache) decode(b []byte) (int, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return 0, err
	}

	raw := top
	if _, ok := top["schema"]; ok {
		var doc struct {
			artifact.Header
			Entries map[string]json.RawMessage `json:"entries"`
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return 0, err
		}
		if err := doc.Check(artifact.SchemaTierResolutions, artifact.TierResolutionsVersion); err != nil {
			return 0, err
		}
		raw = doc.Entries
	}

	migrated := 0
	for key, value := range raw {
		id, err := safe.ParseUint64(key)
		if err != nil {
			c.logger.Warn("skipping cache entry with invalid identifier", zap.String("key", key))
			continue
		}
		res, legacy, err := migrateEntry(model.Identifier(id), value)
		if err != nil {
			c.logger.Warn("skipping unreadable cache entry", zap.String("key", key), zap.Error(err))
			continue
		}
		if legacy {
			migrated++
		}
		c.entries[res.Identifier] = res
	}
	return migrated, nil
}

// migrateEntry converts one stored value into a TierResolution. Bare tiers,
// "unknown" strings and objects without a decode version are legacy shapes;
// they get UnknownVersion so they never match a real version.
func migrateEntry(id model.Identifier, raw json.RawMessage) (model.TierResolution, bool, error) {
	res := model.TierResolution{Identifier: id, Method: model.MethodNone}
	if len(raw) == 0 {
		return res, false, errors.New("empty entry")
	}

	if raw[0] != '{' {
		if err := json.Unmarshal(raw, &res.Tier); err != nil {
			return res, false, err
		}
		res.DecodeVersion = model.UnknownVersion
		return res, true, nil
	}

	var e storedEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return res, false, err
	}
	res.Tier = e.Tier
	res.MatchedBlock = e.MatchedBlock
	if res.MatchedBlock == nil {
		res.MatchedBlock = e.Block
	}
	if e.Method != "" {
		res.Method = e.Method
	}
	res.ResolvedAt = e.ResolvedAt
	res.Error = e.Error
	res.Reason = e.Reason
	res.DecodeVersion = e.DecodeVersion
	if res.DecodeVersion == "" {
		res.DecodeVersion = model.UnknownVersion
		return res, true, nil
	}
	return res, false, nil
}

// Version returns the decode version entries must carry to be hits.
func (c *FileCache) Version() string {
	return c.version
}

// Lookup returns the entry for id and whether it belongs to the current version.
func (c *FileCache) Lookup(id model.Identifier) (model.TierResolution, Status) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res, ok := c.entries[id]
	switch {
	case !ok:
		return model.TierResolution{}, StatusMiss
	case res.DecodeVersion != c.version:
		return res, StatusStale
	default:
		return res, StatusHit
	}
}

// Get returns the entry for id only when it was produced by the current decode version.
func (c *FileCache) Get(id model.Identifier) (model.TierResolution, bool) {
	res, status := c.Lookup(id)
	if status != StatusHit {
		return model.TierResolution{}, false
	}
	return res, true
}

// Put stores res and rewrites the cache file before returning. Resolutions
// with an error or from another decode version are rejected.
func (c *FileCache) Put(id model.Identifier, res model.TierResolution) error {
	if !res.Cacheable() || res.DecodeVersion != c.version {
		return fmt.Errorf("%w: identifier %d version %q", ErrNotCacheable, id, res.DecodeVersion)
	}
	res.Identifier = id

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, existed := c.entries[id]
	c.entries[id] = res

	started := time.Now()
	err := artifact.WriteJSON(c.path, c.documentLocked())
	c.metrics.ObserveWrite(err, started)
	if err != nil {
		if existed {
			c.entries[id] = prev
		} else {
			delete(c.entries, id)
		}
		return fmt.Errorf("writing cache entry %d: %w", id, err)
	}
	return nil
}

// All returns every stored entry, of any version, sorted by identifier.
func (c *FileCache) All() []model.TierResolution {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.TierResolution, 0, len(c.entries))
	for _, res := range c.entries {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

// Len returns the number of stored entries.
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *FileCache) documentLocked() document {
	doc := document{
		Header:  artifact.Header{Schema: artifact.SchemaTierResolutions, SchemaVersion: artifact.TierResolutionsVersion},
		Entries: make(map[string]model.TierResolution, len(c.entries)),
	}
	for id, res := range c.entries {
		doc.Entries[id.String()] = res
	}
	return doc
}
