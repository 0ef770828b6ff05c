package config

import "github.com/mraffaele/guida/internal/epg"

// DefaultSources is the built-in guide registry: one source per region, each
// with a backup mirror. The Swiss guide is huge but only two RSI variants are
// playable downstream, so it carries an allow-list.
func DefaultSources() []epg.Source {
	return []epg.Source{
		{
			Name:      "Italy",
			URL:       "https://iptv-epg.org/files/epg-it.xml.gz",
			BackupURL: "https://epgshare01.online/epgshare01/epg_ripper_IT1.xml.gz",
			Enabled:   true,
			Priority:  0,
		},
		{
			Name:      "Swiss",
			URL:       "https://iptv-epg.org/files/epg-ch.xml.gz",
			BackupURL: "https://epgshare01.online/epgshare01/epg_ripper_CH1.xml.gz",
			Enabled:   true,
			Priority:  1,
			Allow:     []string{"RSI LA 1", "RSI LA 2"},
		},
	}
}

// DefaultMergeSources lists primary and backup mirrors as separate entries so
// the exporter gets maximum coverage: a programme missing from the primary
// can still arrive via the mirror.
func DefaultMergeSources() []epg.Source {
	return []epg.Source{
		{Name: "IT_primary", URL: "https://iptv-epg.org/files/epg-it.xml.gz", Enabled: true, Priority: 0},
		{Name: "IT_backup", URL: "https://epgshare01.online/epgshare01/epg_ripper_IT1.xml.gz", Enabled: true, Priority: 1},
		{Name: "CH_primary", URL: "https://iptv-epg.org/files/epg-ch.xml.gz", Enabled: true, Priority: 2,
			Allow: []string{"RSI LA 1", "RSI LA 2"}},
		{Name: "CH_backup", URL: "https://epgshare01.online/epgshare01/epg_ripper_CH1.xml.gz", Enabled: true, Priority: 3,
			Allow: []string{"RSI LA 1", "RSI LA 2"}},
	}
}
