// Package regexcache keeps a process-wide snapshot of all regex redirect
// rules, compiled and in stored order. The snapshot is rebuilt lazily from
// the store after invalidation; readers never observe a partial rebuild and
// never block on a store round-trip while a previous snapshot exists.
package regexcache

import (
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"urltracker/internal/model"
)

// Source is the store subset the cache rebuilds from.
type Source interface {
	FindAllRegex() ([]model.Redirect, error)
}

// Entry is one compiled regex rule. Patterns are anchored: a rule matches
// whole normalized paths, never substrings.
type Entry struct {
	Rule    model.Redirect
	Pattern *regexp.Regexp
}

// snapshot records the cache version it was built against. It is current
// only while that version still matches the cache's counter; an Invalidate
// during the rebuild bumps the counter and the snapshot stays stale.
type snapshot struct {
	entries []Entry
	version uint64
}

// Cache is safe for concurrent use. Exactly one rebuild is in flight at a
// time; concurrent readers during a rebuild are served the previous
// (possibly stale) snapshot.
type Cache struct {
	source Source
	logger *logrus.Entry

	mu      sync.Mutex // rebuild guard
	version atomic.Uint64
	snap    atomic.Pointer[snapshot]
}

// New creates a Cache over source. The first Snapshot call triggers a build.
func New(source Source, logger *logrus.Entry) *Cache {
	return &Cache{
		source: source,
		logger: logger.WithField("component", "regex-cache"),
	}
}

// Snapshot returns the current ordered sequence of compiled regex rules.
// Triggers a rebuild when the cache is stale or empty; if a rebuild is
// already in flight and a previous snapshot exists, that one is returned
// instead of blocking.
func (c *Cache) Snapshot() []Entry {
	s := c.snap.Load()
	if s != nil && s.version == c.version.Load() {
		return s.entries
	}

	if c.mu.TryLock() {
		defer c.mu.Unlock()
		return c.rebuildLocked()
	}

	// Rebuild in flight elsewhere. Bounded staleness beats blocking.
	if s != nil {
		return s.entries
	}

	// No snapshot at all: wait for the in-flight rebuild.
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildLocked()
}

// rebuildLocked returns a fresh snapshot, rebuilding if needed. Caller holds mu.
func (c *Cache) rebuildLocked() []Entry {
	// The version is captured before the store read. An Invalidate landing
	// after the read bumps the counter, so the snapshot built from that read
	// stays stale and the next Snapshot call rebuilds again.
	v := c.version.Load()

	// Re-check: another goroutine may have rebuilt while we waited for mu.
	if s := c.snap.Load(); s != nil && s.version == v {
		return s.entries
	}

	rules, err := c.source.FindAllRegex()
	if err != nil {
		c.logger.Errorf("Rebuild failed, serving previous snapshot: %v", err)
		if s := c.snap.Load(); s != nil {
			return s.entries
		}
		return nil
	}

	entries := make([]Entry, 0, len(rules))
	for _, rule := range rules {
		if rule.SourceRegex == nil || *rule.SourceRegex == "" {
			continue
		}
		pattern, err := regexp.Compile(anchor(*rule.SourceRegex))
		if err != nil {
			c.logger.Warnf("Skipping rule id=%d with invalid pattern %q: %v", rule.ID, *rule.SourceRegex, err)
			continue
		}
		entries = append(entries, Entry{Rule: rule, Pattern: pattern})
	}

	c.snap.Store(&snapshot{entries: entries, version: v})
	return entries
}

// Invalidate marks the current snapshot stale. The next Snapshot call
// rebuilds, including one already in flight: a rebuild that read the store
// before this call stores its result as stale, never as fresh.
func (c *Cache) Invalidate() {
	c.version.Add(1)
}

// anchor wraps a pattern so it matches the whole path.
func anchor(pattern string) string {
	return "^(?:" + pattern + ")$"
}
