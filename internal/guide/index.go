// SPDX-License-Identifier: MIT
package guide

import (
	"sort"
	"time"

	"github.com/mraffaele/guida/internal/epg"
)

// index is one complete, immutable guide snapshot. It is built wholesale
// during a load and installed with an atomic pointer swap; readers always
// observe either the previous or the new snapshot, never a torn merge.
type index struct {
	generation uint64
	builtAt    time.Time
	channels   map[string]epg.ChannelInfo
	programs   map[string][]epg.Program
	nameToID   map[string]string
}

func emptyIndex() *index {
	return &index{
		channels: map[string]epg.ChannelInfo{},
		programs: map[string][]epg.Program{},
		nameToID: map[string]string{},
	}
}

// merge folds one source's parse output into the index. Channel metadata is
// first-writer-wins; programmes are appended without dedup because queries
// scan for interval containment, not uniqueness.
func (ix *index) merge(channels map[string]epg.ChannelInfo, programs map[string][]epg.Program) {
	for id, info := range channels {
		if _, seen := ix.channels[id]; !seen {
			ix.channels[id] = info
		}
	}
	for id, progs := range programs {
		ix.programs[id] = append(ix.programs[id], progs...)
	}
}

// buildNameIndex rebuilds the normalized-name join index after all sources
// merged.
func (ix *index) buildNameIndex() {
	ix.nameToID = make(map[string]string, len(ix.channels))
	for id, info := range ix.channels {
		if info.NormalizedName != "" {
			ix.nameToID[info.NormalizedName] = id
		}
	}
}

func (ix *index) programCount() int {
	n := 0
	for _, progs := range ix.programs {
		n += len(progs)
	}
	return n
}

// current returns the programme whose [start, stop) interval contains now.
// When overlapping intervals both contain now (defect data), the one with the
// latest start wins so the answer is deterministic.
func (ix *index) current(channelID string, now time.Time) (epg.Program, bool) {
	var best epg.Program
	found := false
	for _, p := range ix.programs[channelID] {
		if !p.Airing(now) {
			continue
		}
		if !found || p.Start.After(best.Start) {
			best = p
			found = true
		}
	}
	return best, found
}

// upcoming returns up to count programmes starting after now, soonest first.
func (ix *index) upcoming(channelID string, now time.Time, count int) []epg.Program {
	var out []epg.Program
	for _, p := range ix.programs[channelID] {
		if p.Start.After(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out
}

// knows reports whether the channel appears in the index at all, either with
// metadata or with programmes.
func (ix *index) knows(channelID string) bool {
	if _, ok := ix.channels[channelID]; ok {
		return true
	}
	_, ok := ix.programs[channelID]
	return ok
}
