package epg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	n, err := NewNormalizer(nil)
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"Rai 1", "RAI1"},
		{"IT - Rai 1", "RAI1"},
		{"CH - RSI La 1", "RSILA1"},
		{"Rai 1 HD", "RAI1"},
		{"Canale 5 FHD [Backup]", "CANALE5"},
		{"Sky Cinema Uno 4K", "SKYCINEMAUNO"},
		{"Rai 1 .it", "RAI1"},
		{"  rai 1  ", "RAI1"},
		{"Télé Monte Carlo", "TLMONTECARLO"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, n.Normalize(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeSameKeyAcrossSources(t *testing.T) {
	// The join key must line up for the spellings different sources use.
	n, err := NewNormalizer(nil)
	require.NoError(t, err)

	variants := []string{"Rai 1", "IT - RAI 1", "Rai 1 HD", "RAI 1 FHD"}
	for _, v := range variants {
		assert.Equal(t, "RAI1", n.Normalize(v), "variant %q", v)
	}
}

func TestNormalizeCustomRules(t *testing.T) {
	n, err := NewNormalizer([]Rule{
		{Pattern: `^TEST\s*`, Replace: ""},
		{Pattern: `[^A-Z0-9]`, Replace: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "CHANNEL7", n.Normalize("Test Channel 7"))
}

func TestNormalizeInvalidRule(t *testing.T) {
	_, err := NewNormalizer([]Rule{{Pattern: `([`, Replace: ""}})
	require.Error(t, err)
}
