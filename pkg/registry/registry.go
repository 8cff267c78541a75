// Package registry answers "which versions of this package could these
// frameworks use" for the updater.
//
// A [Source] lists every version a feed publishes. [Memo] sits in front of
// a Source, filters by prerelease flag and framework set, and guarantees
// that concurrent identical requests reach the feed once.
package registry

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/refbump/pkg/cache"
	"github.com/matzehuels/refbump/pkg/observability"
	"github.com/matzehuels/refbump/pkg/version"
)

// Source lists every published version of a package.
type Source interface {
	Versions(ctx context.Context, id string) ([]version.Candidate, error)
}

// Memo memoises Source lookups per package and filtered results per
// (package, prerelease, framework set). It is safe for concurrent use.
type Memo struct {
	source Source
	keyer  cache.Keyer
	logger *log.Logger

	fetches singleflight.Group
	filters singleflight.Group

	mu       sync.RWMutex
	raw      map[string][]version.Candidate
	filtered map[string][]version.Candidate
}

// NewMemo wraps source. A nil logger discards output.
func NewMemo(source Source, logger *log.Logger) *Memo {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Memo{
		source:   source,
		keyer:    cache.NewDefaultKeyer(),
		logger:   logger,
		raw:      make(map[string][]version.Candidate),
		filtered: make(map[string][]version.Candidate),
	}
}

// GetVersions returns the listed candidates of id that every framework can
// consume. Prereleases are dropped unless includePrerelease is set.
func (m *Memo) GetVersions(ctx context.Context, id string, frameworks []string, includePrerelease bool) ([]version.Candidate, error) {
	key := m.keyer.VersionsKey(id, includePrerelease, frameworks)

	m.mu.RLock()
	cached, ok := m.filtered[key]
	m.mu.RUnlock()
	if ok {
		observability.Cache().OnCacheHit(ctx, "versions")
		return cached, nil
	}
	observability.Cache().OnCacheMiss(ctx, "versions")

	v, err, _ := m.filters.Do(key, func() (any, error) {
		all, err := m.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		out := version.FilterCompatible(all, frameworks)
		if !includePrerelease {
			out = stableOnly(out)
		}

		m.mu.Lock()
		m.filtered[key] = out
		m.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]version.Candidate), nil
}

// fetch loads every version of id once per Memo.
func (m *Memo) fetch(ctx context.Context, id string) ([]version.Candidate, error) {
	key := strings.ToLower(strings.TrimSpace(id))

	m.mu.RLock()
	all, ok := m.raw[key]
	m.mu.RUnlock()
	if ok {
		return all, nil
	}

	v, err, _ := m.fetches.Do(key, func() (any, error) {
		start := time.Now()
		all, err := m.source.Versions(ctx, id)
		observability.Update().OnRegistryQuery(ctx, id, len(all), time.Since(start), err)
		if err != nil {
			return nil, err
		}
		m.logger.Debug("fetched versions", "package", id, "count", len(all), "elapsed", time.Since(start).Round(time.Millisecond))

		m.mu.Lock()
		m.raw[key] = all
		m.mu.Unlock()
		return all, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]version.Candidate), nil
}

func stableOnly(cands []version.Candidate) []version.Candidate {
	out := make([]version.Candidate, 0, len(cands))
	for _, c := range cands {
		v, err := version.Parse(c.Version)
		if err == nil && v.IsPrerelease() {
			continue
		}
		out = append(out, c)
	}
	return out
}
