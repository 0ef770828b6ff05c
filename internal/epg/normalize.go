// SPDX-License-Identifier: MIT
package epg

import (
	"fmt"
	"regexp"
	"strings"

	unorm "golang.org/x/text/unicode/norm"
)

// Rule is one ordered substitution applied during channel-name normalization.
// The rule set grows as new source quirks show up, so it lives in
// configuration rather than code.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

// DefaultRules strips country prefixes, provider tags, quality suffixes and
// punctuation. Input is uppercased before the rules run.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: `^(IT|CH)\s*-\s*`, Replace: ""},        // country prefix
		{Pattern: `\s+\.[A-Z]{1,3}$`, Replace: ""},       // trailing ".it" style extension
		{Pattern: `\[[^\]]*\]`, Replace: ""},             // bracketed tags
		{Pattern: `\([^)]*\)`, Replace: ""},              // parenthesised tags
		{Pattern: `\s+(HD|FHD|UHD|SD|HEVC|H265|4K).*`, Replace: ""}, // quality suffix
		{Pattern: `[^A-Z0-9]`, Replace: ""},              // punctuation and spaces
	}
}

type subst struct {
	re      *regexp.Regexp
	replace string
}

// Normalizer derives the deterministic cross-source join key from a channel
// display name.
type Normalizer struct {
	rules []subst
}

// NewNormalizer compiles the given rule set. A nil or empty set falls back to
// DefaultRules.
func NewNormalizer(rules []Rule) (*Normalizer, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	compiled := make([]subst, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("normalization rule %q: %w", r.Pattern, err)
		}
		compiled = append(compiled, subst{re: re, replace: r.Replace})
	}
	return &Normalizer{rules: compiled}, nil
}

// Normalize returns the join key for a display name: NFC-normalized,
// uppercased, then run through the substitution rules in order.
func (n *Normalizer) Normalize(name string) string {
	s := unorm.NFC.String(name)
	s = strings.ToUpper(strings.TrimSpace(s))
	s = unorm.NFC.String(s)
	for _, r := range n.rules {
		s = r.re.ReplaceAllString(s, r.replace)
	}
	return strings.TrimSpace(s)
}
