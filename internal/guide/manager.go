// SPDX-License-Identifier: MIT

// Package guide orchestrates the EPG pipeline: per-source cache-or-download,
// streaming parse, single-writer merge into an atomically swapped index, and
// point-in-time queries against that index.
package guide

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mraffaele/guida/internal/cache"
	"github.com/mraffaele/guida/internal/epg"
	"github.com/mraffaele/guida/internal/fetch"
	"github.com/mraffaele/guida/internal/log"
	"github.com/mraffaele/guida/internal/metrics"
)

// NoInfoTitle is the sentinel for "channel known, nothing scheduled now".
const NoInfoTitle = "No Info Available"

// Config wires a Manager.
type Config struct {
	Sources    []epg.Source
	Store      *cache.Store
	Client     *fetch.Client
	Normalizer *epg.Normalizer
	// Window is the forward retention horizon passed to the parser.
	Window time.Duration
	// FuzzyMax is the maximum edit distance for name-based channel
	// resolution. Zero disables fuzzy matching.
	FuzzyMax int
	// Concurrency bounds parallel source loads. Zero means 4.
	Concurrency int
}

// Manager owns the merged guide index. Queries are lock-free reads against
// the installed snapshot and safe to call concurrently with LoadAll.
type Manager struct {
	cfg  Config
	norm *epg.Normalizer
	now  func() time.Time

	current   atomic.Pointer[index]
	installMu sync.Mutex
	lastGen   uint64 // generation assigned to the most recent load
}

// NowInfo is the answer to a "what is airing now" query.
type NowInfo struct {
	Title string    `json:"title"`
	Desc  string    `json:"desc,omitempty"`
	Start time.Time `json:"start,omitempty"`
	Stop  time.Time `json:"stop,omitempty"`
}

// Stats summarises the installed index.
type Stats struct {
	Generation int64 `json:"generation"`
	Channels   int   `json:"channels"`
	Programs   int   `json:"programs"`
}

func New(cfg Config) *Manager {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	norm := cfg.Normalizer
	if norm == nil {
		norm, _ = epg.NewNormalizer(nil)
	}
	return &Manager{cfg: cfg, norm: norm, now: func() time.Time { return time.Now().UTC() }}
}

type sourceResult struct {
	channels map[string]epg.ChannelInfo
	programs map[string][]epg.Program
	ok       bool
}

// LoadAll rebuilds the guide from every enabled source. Sources fetch and
// parse concurrently; the merge is serialized in registry order so channel
// metadata conflicts resolve deterministically. A source failure is logged
// and skipped, never fatal. The result replaces the installed index only if
// no newer load finished in the meantime. Returns true iff at least one
// source contributed.
func (m *Manager) LoadAll(ctx context.Context, forceRefresh bool) bool {
	ctx = log.ContextWithJobID(ctx, uuid.NewString())
	logger := log.WithComponentFromContext(ctx, "guide")
	started := m.now()

	m.installMu.Lock()
	m.lastGen++
	gen := m.lastGen
	sources := make([]epg.Source, len(m.cfg.Sources))
	copy(sources, m.cfg.Sources)
	m.installMu.Unlock()

	logger.Info().
		Str("event", "load.start").
		Uint64("generation", gen).
		Bool("force", forceRefresh).
		Msg("loading all sources")

	results := make([]sourceResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, src := range sources {
		if !src.Enabled {
			continue
		}
		i, src := i, src
		g.Go(func() error {
			channels, programs, err := m.loadSource(gctx, src, forceRefresh)
			if err != nil {
				metrics.IncSourceLoad(src.Name, "failure")
				logger.Error().Err(err).
					Str("source", src.Name).
					Str("event", "load.source_failed").
					Msg("source skipped for this cycle")
				return nil // a dead source must not abort its siblings
			}
			metrics.IncSourceLoad(src.Name, "success")
			results[i] = sourceResult{channels: channels, programs: programs, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	// Single-writer merge, in registry order.
	ix := emptyIndex()
	ix.generation = gen
	ix.builtAt = started
	success := false
	for i, res := range results {
		if !res.ok {
			continue
		}
		ix.merge(res.channels, res.programs)
		success = true
		logger.Debug().
			Str("source", sources[i].Name).
			Int("channels", len(res.channels)).
			Msg("source merged")
	}
	ix.buildNameIndex()

	if !success {
		logger.Error().Str("event", "load.failed").Msg("no source contributed")
		return false
	}

	m.install(ix)
	logger.Info().
		Str("event", "load.success").
		Uint64("generation", gen).
		Int("channels", len(ix.channels)).
		Int("programs", ix.programCount()).
		Dur("elapsed", m.now().Sub(started)).
		Msg("guide index rebuilt")
	return true
}

// install swaps in the new snapshot unless a newer generation already landed;
// a superseded load's result is discarded rather than clobbering fresher data.
func (m *Manager) install(ix *index) {
	m.installMu.Lock()
	defer m.installMu.Unlock()
	if cur := m.current.Load(); cur != nil && cur.generation >= ix.generation {
		logger := log.WithComponent("guide")
		logger.Warn().
			Uint64("stale_generation", ix.generation).
			Uint64("installed_generation", cur.generation).
			Msg("discarding superseded load result")
		return
	}
	m.current.Store(ix)
	metrics.RecordGuide(ix.generation, len(ix.channels), ix.programCount(),
		m.now().Sub(ix.builtAt).Seconds())
}

// loadSource produces one source's records: fresh cache if allowed, otherwise
// download, persist, parse. On total download failure it falls back to a
// stale cache entry rather than dropping the source outright.
func (m *Manager) loadSource(ctx context.Context, src epg.Source, forceRefresh bool) (map[string]epg.ChannelInfo, map[string][]epg.Program, error) {
	logger := log.WithComponentFromContext(ctx, "guide")

	var body []byte
	if !forceRefresh {
		if cached, ok := m.cfg.Store.Get(src.Name); ok {
			metrics.IncCacheResult("hit")
			logger.Debug().Str("source", src.Name).Msg("using cached document")
			body = cached
		}
	}

	if body == nil {
		metrics.IncCacheResult("miss")
		fetched, err := m.cfg.Client.Fetch(ctx, src)
		if err != nil {
			stale, ok := m.cfg.Store.GetAny(src.Name)
			if !ok {
				return nil, nil, err
			}
			metrics.IncCacheResult("stale_fallback")
			logger.Warn().Err(err).
				Str("source", src.Name).
				Str("event", "load.stale_fallback").
				Msg("download failed, serving stale cache")
			body = stale
		} else {
			body = fetched
			if err := m.cfg.Store.Put(src.Name, body); err != nil {
				// A read-only or full cache dir degrades to network-only.
				metrics.IncCacheWriteError()
				logger.Warn().Err(err).Str("source", src.Name).Msg("cache write failed")
			}
		}
	}

	return epg.Parse(bytes.NewReader(body), epg.ParseOptions{
		Now:        m.now(),
		Window:     m.cfg.Window,
		Allow:      m.allowSet(src),
		Normalizer: m.norm,
	})
}

func (m *Manager) allowSet(src epg.Source) map[string]struct{} {
	if len(src.Allow) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(src.Allow))
	for _, name := range src.Allow {
		set[m.norm.Normalize(name)] = struct{}{}
	}
	return set
}

// snapshot returns the installed index, or an empty one before the first load.
func (m *Manager) snapshot() *index {
	if ix := m.current.Load(); ix != nil {
		return ix
	}
	return emptyIndex()
}

// CurrentProgram answers "what is airing now" for a channel. The second
// return is false when the channel is unknown; a known but idle channel gets
// the NoInfoTitle sentinel instead.
func (m *Manager) CurrentProgram(channelID, normName string) (NowInfo, bool) {
	ix := m.snapshot()
	id := m.resolve(ix, channelID, normName)
	if id == "" {
		metrics.IncQuery("now", "unknown")
		return NowInfo{}, false
	}
	if prog, ok := ix.current(id, m.now()); ok {
		metrics.IncQuery("now", "hit")
		return NowInfo{Title: prog.Title, Desc: prog.Desc, Start: prog.Start, Stop: prog.Stop}, true
	}
	metrics.IncQuery("now", "no_info")
	return NowInfo{Title: NoInfoTitle}, true
}

// Upcoming returns up to count programmes starting after now, soonest first.
func (m *Manager) Upcoming(channelID string, count int) []epg.Program {
	out := m.snapshot().upcoming(channelID, m.now(), count)
	if len(out) == 0 {
		metrics.IncQuery("next", "no_info")
	} else {
		metrics.IncQuery("next", "hit")
	}
	return out
}

// resolve maps a query to a channel id: direct id first, then the normalized
// name index, then a bounded fuzzy search over it.
func (m *Manager) resolve(ix *index, channelID, normName string) string {
	if ix.knows(channelID) {
		return channelID
	}
	if normName == "" {
		return ""
	}
	if id, ok := epg.FindBest(normName, ix.nameToID, m.cfg.FuzzyMax); ok {
		return id
	}
	return ""
}

// ResolveName finds a channel id for a raw display name using the normalized
// join key and fuzzy fallback.
func (m *Manager) ResolveName(name string) (string, bool) {
	ix := m.snapshot()
	return epg.FindBest(m.norm.Normalize(name), ix.nameToID, m.cfg.FuzzyMax)
}

// Channel returns the merged metadata for a channel id.
func (m *Manager) Channel(channelID string) (epg.ChannelInfo, bool) {
	info, ok := m.snapshot().channels[channelID]
	return info, ok
}

// Stats describes the installed snapshot.
func (m *Manager) Stats() Stats {
	ix := m.snapshot()
	return Stats{
		Generation: int64(ix.generation),
		Channels:   len(ix.channels),
		Programs:   ix.programCount(),
	}
}

// Ready reports whether at least one load has completed.
func (m *Manager) Ready() bool {
	return m.current.Load() != nil
}

// SetSources replaces the source registry for subsequent loads. Used by the
// daemon's config hot reload; the installed index is untouched until the next
// LoadAll.
func (m *Manager) SetSources(sources []epg.Source) {
	m.installMu.Lock()
	m.cfg.Sources = append([]epg.Source(nil), sources...)
	m.installMu.Unlock()
}

// Run refreshes the guide on a fixed interval until ctx is cancelled. The
// initial load happens immediately.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	logger := log.WithComponentFromContext(ctx, "guide")
	m.LoadAll(ctx, false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !m.LoadAll(ctx, false) {
				logger.Warn().Str("event", "load.cycle_failed").Msg("periodic refresh produced no data")
			}
		case <-ctx.Done():
			return
		}
	}
}
