// SPDX-License-Identifier: MIT
package epg

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func programmeXML(channel string, start, stop time.Time, title string) string {
	return fmt.Sprintf(
		`<programme start="%s" stop="%s" channel="%s"><title>%s</title></programme>`,
		FormatTime(start), FormatTime(stop), channel, title)
}

func doc(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><tv>` + body + `</tv>`
}

func TestParseChannelsAndProgrammes(t *testing.T) {
	xml := doc(`
		<channel id="Rai 1.it">
			<display-name>Rai 1</display-name>
			<icon src="http://logo.example/rai1.png"/>
		</channel>
		<channel>
			<display-name>No ID Channel</display-name>
		</channel>` +
		programmeXML("Rai 1.it", testNow.Add(-time.Hour), testNow.Add(time.Hour), "Tg1") +
		programmeXML("Rai 1.it", testNow.Add(time.Hour), testNow.Add(2*time.Hour), "Quiz"))

	channels, programs, err := Parse(strings.NewReader(xml), ParseOptions{Now: testNow})
	require.NoError(t, err)

	require.Len(t, channels, 1, "channel without id must be skipped")
	info := channels["Rai 1.it"]
	assert.Equal(t, "Rai 1", info.DisplayName)
	assert.Equal(t, "http://logo.example/rai1.png", info.Icon)
	assert.Equal(t, "RAI1", info.NormalizedName)

	require.Len(t, programs["Rai 1.it"], 2)
	assert.Equal(t, "Tg1", programs["Rai 1.it"][0].Title)
}

func TestParseRelevanceWindow(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		stop  time.Time
		kept  bool
	}{
		{
			name:  "already over",
			start: testNow.Add(-2 * time.Hour),
			stop:  testNow.Add(-time.Minute),
			kept:  false,
		},
		{
			name:  "beyond the horizon",
			start: testNow.Add(7*24*time.Hour + time.Minute),
			stop:  testNow.Add(7*24*time.Hour + time.Hour),
			kept:  false,
		},
		{
			name:  "spanning now",
			start: testNow.Add(-time.Hour),
			stop:  testNow.Add(time.Hour),
			kept:  true,
		},
		{
			name:  "future within window",
			start: testNow.Add(24 * time.Hour),
			stop:  testNow.Add(25 * time.Hour),
			kept:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			xml := doc(programmeXML("ch1", tc.start, tc.stop, "P"))
			_, programs, err := Parse(strings.NewReader(xml), ParseOptions{Now: testNow})
			require.NoError(t, err)
			if tc.kept {
				assert.Len(t, programs["ch1"], 1)
			} else {
				assert.Empty(t, programs["ch1"])
			}
		})
	}
}

func TestParseSkipsDefectiveProgrammes(t *testing.T) {
	good := FormatTime(testNow.Add(time.Hour))
	later := FormatTime(testNow.Add(2 * time.Hour))

	tests := []struct {
		name string
		elem string
	}{
		{
			name: "missing channel",
			elem: fmt.Sprintf(`<programme start="%s" stop="%s"><title>X</title></programme>`, good, later),
		},
		{
			name: "missing start",
			elem: fmt.Sprintf(`<programme stop="%s" channel="ch1"><title>X</title></programme>`, later),
		},
		{
			name: "missing stop",
			elem: fmt.Sprintf(`<programme start="%s" channel="ch1"><title>X</title></programme>`, good),
		},
		{
			name: "malformed start",
			elem: fmt.Sprintf(`<programme start="yesterday" stop="%s" channel="ch1"><title>X</title></programme>`, later),
		},
		{
			name: "start equals stop",
			elem: fmt.Sprintf(`<programme start="%s" stop="%s" channel="ch1"><title>X</title></programme>`, good, good),
		},
		{
			name: "start after stop",
			elem: fmt.Sprintf(`<programme start="%s" stop="%s" channel="ch1"><title>X</title></programme>`, later, good),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, programs, err := Parse(strings.NewReader(doc(tc.elem)), ParseOptions{Now: testNow})
			require.NoError(t, err, "element defects must not abort the document")
			assert.Empty(t, programs)
		})
	}
}

func TestParseStartBeforeStopInvariant(t *testing.T) {
	xml := doc(
		programmeXML("ch1", testNow.Add(time.Hour), testNow.Add(2*time.Hour), "OK") +
			programmeXML("ch1", testNow.Add(3*time.Hour), testNow.Add(3*time.Hour), "Zero length"))

	_, programs, err := Parse(strings.NewReader(xml), ParseOptions{Now: testNow})
	require.NoError(t, err)

	for _, progs := range programs {
		for _, p := range progs {
			assert.True(t, p.Start.Before(p.Stop), "invariant start < stop for %q", p.Title)
		}
	}
	assert.Len(t, programs["ch1"], 1)
}

func TestParseAllowList(t *testing.T) {
	xml := doc(`
		<channel id="RSI La 1.ch"><display-name>RSI La 1</display-name></channel>
		<channel id="SRF 1.ch"><display-name>SRF 1</display-name></channel>`)

	norm, err := NewNormalizer(nil)
	require.NoError(t, err)
	allow := map[string]struct{}{norm.Normalize("RSI La 1"): {}}

	channels, _, err := Parse(strings.NewReader(xml), ParseOptions{Now: testNow, Allow: allow})
	require.NoError(t, err)

	require.Len(t, channels, 1)
	_, ok := channels["RSI La 1.ch"]
	assert.True(t, ok)
}

func TestParseTitleFallback(t *testing.T) {
	elem := fmt.Sprintf(`<programme start="%s" stop="%s" channel="ch1"><desc>d</desc></programme>`,
		FormatTime(testNow), FormatTime(testNow.Add(time.Hour)))

	_, programs, err := Parse(strings.NewReader(doc(elem)), ParseOptions{Now: testNow})
	require.NoError(t, err)
	require.Len(t, programs["ch1"], 1)
	assert.Equal(t, "N/A", programs["ch1"][0].Title)
}

func TestParseMalformedDocument(t *testing.T) {
	_, _, err := Parse(strings.NewReader(`<tv><channel id="a"><display`), ParseOptions{Now: testNow})
	require.Error(t, err)
}
