// SPDX-License-Identifier: MIT
package epg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"time"
)

// DefaultWindow is the forward retention horizon: programmes starting further
// out than this are dropped at parse time to bound index size.
const DefaultWindow = 7 * 24 * time.Hour

// ParseOptions control filtering during a streaming parse.
type ParseOptions struct {
	// Now anchors the relevance window. Zero means time.Now in UTC.
	Now time.Time
	// Window is the forward retention horizon. Zero means DefaultWindow.
	Window time.Duration
	// Allow restricts channels to the given normalized display names.
	// Empty means no restriction. Source-level policy, not a generic filter.
	Allow map[string]struct{}
	// Normalizer derives the cross-source join key. Nil uses DefaultRules.
	Normalizer *Normalizer
}

// Parse decodes one XMLTV document element by element, never materializing
// the whole tree. Channels without an id and programmes with missing or
// malformed required fields are skipped; a malformed document root returns an
// error and no records.
func Parse(r io.Reader, opts ParseOptions) (map[string]ChannelInfo, map[string][]Program, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	norm := opts.Normalizer
	if norm == nil {
		norm, _ = NewNormalizer(nil)
	}
	cutoff := now.Add(window)

	channels := make(map[string]ChannelInfo)
	programs := make(map[string][]Program)

	dec := xml.NewDecoder(r)
	dec.Strict = true
	// Disable entity expansion to prevent XXE attacks
	dec.Entity = make(map[string]string)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("decode xmltv: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "channel":
			var ce Channel
			if err := dec.DecodeElement(&ce, &se); err != nil {
				return nil, nil, fmt.Errorf("decode channel element: %w", err)
			}
			if info, ok := extractChannel(ce, norm, opts.Allow); ok {
				channels[info.ID] = info
			}

		case "programme":
			var pe Programme
			if err := dec.DecodeElement(&pe, &se); err != nil {
				return nil, nil, fmt.Errorf("decode programme element: %w", err)
			}
			if prog, ok := extractProgram(pe, now, cutoff); ok {
				programs[prog.ChannelID] = append(programs[prog.ChannelID], prog)
			}
		}
	}

	return channels, programs, nil
}

func extractChannel(ce Channel, norm *Normalizer, allow map[string]struct{}) (ChannelInfo, bool) {
	if ce.ID == "" {
		return ChannelInfo{}, false
	}
	display := ""
	if len(ce.DisplayName) > 0 {
		display = ce.DisplayName[0]
	}
	key := norm.Normalize(display)
	if len(allow) > 0 {
		if _, ok := allow[key]; !ok {
			return ChannelInfo{}, false
		}
	}
	info := ChannelInfo{
		ID:             ce.ID,
		DisplayName:    display,
		NormalizedName: key,
	}
	if ce.Icon != nil {
		info.Icon = ce.Icon.Src
	}
	return info, true
}

func extractProgram(pe Programme, now, cutoff time.Time) (Program, bool) {
	if pe.Channel == "" || pe.Start == "" || pe.Stop == "" {
		return Program{}, false
	}
	start, err := ParseTime(pe.Start)
	if err != nil {
		return Program{}, false
	}
	stop, err := ParseTime(pe.Stop)
	if err != nil {
		return Program{}, false
	}
	if !start.Before(stop) {
		return Program{}, false
	}
	// Relevance window: already over, or too far in the future.
	if stop.Before(now) || start.After(cutoff) {
		return Program{}, false
	}

	title := pe.Title.Value
	if title == "" {
		title = "N/A"
	}
	return Program{
		ChannelID: pe.Channel,
		Start:     start,
		Stop:      stop,
		Title:     title,
		Desc:      pe.Desc,
	}, true
}
