// SPDX-License-Identifier: MIT

// Package epg provides Electronic Program Guide records, XMLTV wire types
// and the streaming parser used by the guide and merger pipelines.
package epg

import "time"

// Source describes a single remote EPG provider. Identity is the Name.
type Source struct {
	Name      string   `yaml:"name"`
	URL       string   `yaml:"url"`
	BackupURL string   `yaml:"backupUrl,omitempty"`
	Enabled   bool     `yaml:"enabled"`
	Priority  int      `yaml:"priority,omitempty"`
	Allow     []string `yaml:"allow,omitempty"` // channel allow-list (display names)
}

// ChannelInfo is one channel as defined by a source. NormalizedName is the
// cross-source join key for sources that use different IDs for the same
// logical channel.
type ChannelInfo struct {
	ID             string
	DisplayName    string
	Icon           string
	NormalizedName string
}

// Program is one scheduled programme. Start < Stop always holds; entries
// violating that are dropped at parse time.
type Program struct {
	ChannelID string
	Start     time.Time
	Stop      time.Time
	Title     string
	Desc      string
}

// Airing reports whether the programme's [Start, Stop) interval contains now.
func (p Program) Airing(now time.Time) bool {
	return !p.Start.After(now) && p.Stop.After(now)
}
