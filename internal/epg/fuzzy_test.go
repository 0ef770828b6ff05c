package epg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindBest(t *testing.T) {
	nameToID := map[string]string{
		"RAI1":    "Rai 1.it",
		"RAI2":    "Rai 2.it",
		"CANALE5": "Canale 5.it",
	}

	tests := []struct {
		name    string
		key     string
		maxDist int
		wantID  string
		wantOK  bool
	}{
		{name: "exact match", key: "RAI1", maxDist: 0, wantID: "Rai 1.it", wantOK: true},
		{name: "one edit away", key: "RAI11", maxDist: 2, wantID: "Rai 1.it", wantOK: true},
		{name: "two edits away", key: "CANAL5", maxDist: 2, wantID: "Canale 5.it", wantOK: true},
		{name: "too far", key: "SKYSPORT", maxDist: 2, wantOK: false},
		{name: "fuzzy disabled", key: "RAI11", maxDist: 0, wantOK: false},
		{name: "empty map", key: "RAI1", maxDist: 5, wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := nameToID
			if tc.name == "empty map" {
				m = map[string]string{}
			}
			id, ok := FindBest(tc.key, m, tc.maxDist)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantID, id)
			}
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, levenshtein(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}
