// SPDX-License-Identifier: MIT
package epg

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// XMLTV wire types. These match the subset of the XMLTV DTD the pipeline
// consumes and emits: <tv><channel><display-name/><icon/></channel>
// <programme start=".." stop=".." channel=".."><title/><desc/></programme></tv>.

type TV struct {
	XMLName    xml.Name    `xml:"tv"`
	Generator  string      `xml:"generator-info-name,attr,omitempty"`
	Channels   []Channel   `xml:"channel"`
	Programmes []Programme `xml:"programme"`
}

type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
	Icon        *Icon    `xml:"icon,omitempty"`
}

type Icon struct {
	Src string `xml:"src,attr"`
}

type Programme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   Title  `xml:"title"`
	Desc    string `xml:"desc,omitempty"`
}

type Title struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

const (
	timeLayout     = "20060102150405 -0700"
	timeLayoutBare = "20060102150405"
)

// ParseTime parses the XMLTV timestamp format "YYYYMMDDHHMMSS ±HHMM".
// A missing UTC offset implies UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	if len(s) >= len(timeLayoutBare) {
		if t, err := time.Parse(timeLayoutBare, s[:len(timeLayoutBare)]); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed xmltv timestamp %q", s)
}

// FormatTime renders t in the XMLTV timestamp format.
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}
