// SPDX-License-Identifier: MIT
package epg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{
			name: "with positive offset",
			in:   "20260101120000 +0100",
			want: time.Date(2026, 1, 1, 12, 0, 0, 0, time.FixedZone("", 3600)),
		},
		{
			name: "with negative offset",
			in:   "20260101120000 -0500",
			want: time.Date(2026, 1, 1, 12, 0, 0, 0, time.FixedZone("", -5*3600)),
		},
		{
			name: "no offset implies UTC",
			in:   "20260101120000",
			want: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "surrounding whitespace",
			in:   "  20260101120000 +0000  ",
			want: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{name: "empty", in: "", wantErr: true},
		{name: "garbage", in: "not-a-timestamp", wantErr: true},
		{name: "truncated", in: "2026010112", wantErr: true},
		{name: "month out of range", in: "20261301120000", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTime(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %v, want %v", got, tc.want)
		})
	}
}

func TestFormatTime(t *testing.T) {
	in := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "20260101120000 +0000", FormatTime(in))

	// Formatting then parsing lands on the same instant.
	parsed, err := ParseTime(FormatTime(in))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(in))
}
