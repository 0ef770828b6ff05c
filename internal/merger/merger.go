// SPDX-License-Identifier: MIT

// Package merger downloads every configured EPG source and serializes one
// canonical, deterministic XMLTV document scoped to the downstream channel
// catalog. Unlike the guide pipeline it keeps programmes verbatim (no
// relevance window) so third-party players receive the full schedule.
package merger

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/google/renameio/v2"

	"github.com/mraffaele/guida/internal/cache"
	"github.com/mraffaele/guida/internal/epg"
	"github.com/mraffaele/guida/internal/fetch"
	"github.com/mraffaele/guida/internal/log"
	"github.com/mraffaele/guida/internal/metrics"
)

// GeneratorName is stamped into the output's generator-info-name attribute.
const GeneratorName = "guida-epg-merger"

// Merger reuses the downloader and disk cache of the guide pipeline but
// writes a flat output file instead of building a query index.
type Merger struct {
	store  *cache.Store
	client *fetch.Client
	norm   *epg.Normalizer
}

func New(store *cache.Store, client *fetch.Client, norm *epg.Normalizer) *Merger {
	if norm == nil {
		norm, _ = epg.NewNormalizer(nil)
	}
	return &Merger{store: store, client: client, norm: norm}
}

type progKey struct {
	channel string
	start   string
}

// Merge processes sources in the given fixed order, deduplicates channels by
// id (first source wins) and programmes by (channel, start) (first occurrence
// wins, even when titles differ), and writes the result atomically. When
// allowedIDs is non-empty only those channel identifiers survive. Returns
// false only if every source failed.
func (m *Merger) Merge(ctx context.Context, outputPath string, sources []epg.Source, allowedIDs map[string]struct{}) bool {
	logger := log.WithComponentFromContext(ctx, "merger")

	channels := make(map[string]epg.Channel)
	programmes := make(map[progKey]epg.Programme)
	loaded := 0

	for _, src := range sources {
		body, err := m.loadSource(ctx, src)
		if err != nil {
			logger.Warn().Err(err).
				Str("source", src.Name).
				Str("event", "merge.source_skipped").
				Msg("source skipped")
			continue
		}

		addedCh, addedProg, err := m.collect(body, src, allowedIDs, channels, programmes)
		if err != nil {
			logger.Error().Err(err).
				Str("source", src.Name).
				Str("event", "merge.parse_failed").
				Msg("source contributed no records")
			continue
		}
		loaded++
		logger.Info().
			Str("source", src.Name).
			Int("channels", addedCh).
			Int("programmes", addedProg).
			Msg("source merged")
	}

	if loaded == 0 {
		metrics.IncMergeFailure()
		logger.Error().Str("event", "merge.failed").Msg("no source loaded")
		return false
	}

	if err := m.write(outputPath, channels, programmes); err != nil {
		metrics.IncMergeFailure()
		logger.Error().Err(err).Str("event", "merge.write_failed").Msg("output write failed")
		return false
	}

	metrics.RecordMerge(len(channels), len(programmes))
	logger.Info().
		Str("event", "merge.success").
		Str("path", outputPath).
		Int("channels", len(channels)).
		Int("programmes", len(programmes)).
		Msg("merged guide written")
	return true
}

func (m *Merger) loadSource(ctx context.Context, src epg.Source) ([]byte, error) {
	if cached, ok := m.store.Get(src.Name); ok {
		metrics.IncCacheResult("hit")
		return cached, nil
	}
	metrics.IncCacheResult("miss")
	body, err := m.client.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := m.store.Put(src.Name, body); err != nil {
		metrics.IncCacheWriteError()
		logger := log.WithComponentFromContext(ctx, "merger")
		logger.Warn().
			Err(err).Str("source", src.Name).Msg("cache write failed")
	}
	return body, nil
}

// collect streams one document into the merged maps. Per-source allow-lists
// restrict which channels (and their programmes) a source may contribute.
func (m *Merger) collect(body []byte, src epg.Source, allowedIDs map[string]struct{}, channels map[string]epg.Channel, programmes map[progKey]epg.Programme) (int, int, error) {
	allowNames := make(map[string]struct{}, len(src.Allow))
	for _, name := range src.Allow {
		allowNames[m.norm.Normalize(name)] = struct{}{}
	}
	// IDs this source is allowed to contribute programmes for. With no
	// allow-list every kept channel qualifies.
	sourceIDs := make(map[string]struct{})

	addedCh, addedProg := 0, 0

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = true
	dec.Entity = make(map[string]string)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return addedCh, addedProg, fmt.Errorf("decode xmltv: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "channel":
			var ce epg.Channel
			if err := dec.DecodeElement(&ce, &se); err != nil {
				return addedCh, addedProg, fmt.Errorf("decode channel: %w", err)
			}
			if ce.ID == "" {
				continue
			}
			if !m.channelAllowed(ce, allowNames) {
				continue
			}
			if len(allowedIDs) > 0 {
				if _, ok := allowedIDs[ce.ID]; !ok {
					continue
				}
			}
			sourceIDs[ce.ID] = struct{}{}
			if _, seen := channels[ce.ID]; !seen {
				channels[ce.ID] = ce
				addedCh++
			}

		case "programme":
			var pe epg.Programme
			if err := dec.DecodeElement(&pe, &se); err != nil {
				return addedCh, addedProg, fmt.Errorf("decode programme: %w", err)
			}
			if pe.Channel == "" || pe.Start == "" {
				continue
			}
			if len(allowNames) > 0 {
				if _, ok := sourceIDs[pe.Channel]; !ok {
					continue
				}
			}
			if len(allowedIDs) > 0 {
				if _, ok := allowedIDs[pe.Channel]; !ok {
					continue
				}
			}
			key := progKey{channel: pe.Channel, start: pe.Start}
			if _, seen := programmes[key]; !seen {
				programmes[key] = pe
				addedProg++
			}
		}
	}

	return addedCh, addedProg, nil
}

func (m *Merger) channelAllowed(ce epg.Channel, allowNames map[string]struct{}) bool {
	if len(allowNames) == 0 {
		return true
	}
	for _, dn := range ce.DisplayName {
		if _, ok := allowNames[m.norm.Normalize(dn)]; ok {
			return true
		}
	}
	return false
}

// write renders the document with channels sorted by id and programmes sorted
// by (channel, start), so identical inputs always produce byte-identical
// output, then installs it atomically.
func (m *Merger) write(path string, channels map[string]epg.Channel, programmes map[progKey]epg.Programme) error {
	tv := epg.TV{Generator: GeneratorName}

	chIDs := make([]string, 0, len(channels))
	for id := range channels {
		chIDs = append(chIDs, id)
	}
	sort.Strings(chIDs)
	for _, id := range chIDs {
		tv.Channels = append(tv.Channels, channels[id])
	}

	keys := make([]progKey, 0, len(programmes))
	for k := range programmes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].channel != keys[j].channel {
			return keys[i].channel < keys[j].channel
		}
		return keys[i].start < keys[j].start
	})
	for _, k := range keys {
		tv.Programmes = append(tv.Programmes, programmes[k])
	}

	out, err := xml.MarshalIndent(tv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal merged xmltv: %w", err)
	}

	doc := append([]byte(xml.Header), out...)
	doc = append(doc, '\n')
	if err := renameio.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("write merged xmltv: %w", err)
	}
	return nil
}
