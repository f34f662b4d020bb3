// Package policy holds the read-only lending policy tables: which loan
// purposes are permitted and the per-city lending limits. Tables are plain
// data consumed by the purpose and geo-policy capability providers; nothing
// here makes decisions.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Purpose permission statuses.
const (
	Permitted              = "permitted"
	ConditionallyPermitted = "conditionally_permitted"
	Prohibited             = "prohibited"
)

// PurposeRule describes one loan purpose category.
type PurposeRule struct {
	Category   string   `json:"category" yaml:"category"`
	Status     string   `json:"status" yaml:"status"`
	Keywords   []string `json:"keywords" yaml:"keywords"`
	Conditions []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// CityRule describes the lending rules for one served city.
type CityRule struct {
	City       string   `json:"city" yaml:"city"`
	MaxAmount  float64  `json:"maxAmount" yaml:"maxAmount"`
	Conditions []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Tables aggregates the lending policy data.
type Tables struct {
	Purposes []*PurposeRule `json:"purposes" yaml:"purposes"`
	Cities   []*CityRule    `json:"cities" yaml:"cities"`
}

// MatchPurpose returns the purpose rule whose keywords match the supplied
// free-text purpose, or nil when no category matches. Matching is exact-word
// containment, case-insensitive; the first declared rule wins.
func (t *Tables) MatchPurpose(text string) *PurposeRule {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil
	}
	for _, rule := range t.Purposes {
		for _, keyword := range rule.Keywords {
			if containsWord(normalized, strings.ToLower(keyword)) {
				return rule
			}
		}
	}
	return nil
}

// City returns the rule for a served city, or nil when the city is not served.
func (t *Tables) City(name string) *CityRule {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, rule := range t.Cities {
		if strings.ToLower(rule.City) == normalized {
			return rule
		}
	}
	return nil
}

// Validate reports structural problems in loaded tables.
func (t *Tables) Validate() error {
	if len(t.Purposes) == 0 {
		return fmt.Errorf("policy: no purpose rules defined")
	}
	for _, rule := range t.Purposes {
		switch rule.Status {
		case Permitted, ConditionallyPermitted, Prohibited:
		default:
			return fmt.Errorf("policy: purpose %q has invalid status %q", rule.Category, rule.Status)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("policy: purpose %q has no keywords", rule.Category)
		}
	}
	for _, rule := range t.Cities {
		if rule.MaxAmount <= 0 {
			return fmt.Errorf("policy: city %q has non-positive limit", rule.City)
		}
	}
	return nil
}

// Load reads policy tables from a YAML document at the supplied URL using the
// abstract file system, so any supported storage scheme works.
func Load(ctx context.Context, URL string) (*Tables, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy tables from %s: %w", URL, err)
	}
	tables := &Tables{}
	if err := yaml.Unmarshal(data, tables); err != nil {
		return nil, fmt.Errorf("failed to parse policy tables %s: %w", URL, err)
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return tables, nil
}

// Default returns the built-in policy tables used when no external document is
// configured.
func Default() *Tables {
	return &Tables{
		Purposes: []*PurposeRule{
			{Category: "home purchase", Status: Permitted, Keywords: []string{"home", "house", "flat", "apartment", "property"}},
			{Category: "vehicle", Status: Permitted, Keywords: []string{"car", "bike", "vehicle", "scooter", "motorcycle"}},
			{Category: "education", Status: ConditionallyPermitted, Keywords: []string{"education", "tuition", "college", "university", "course"},
				Conditions: []string{"admission letter from a recognised institution required"}},
			{Category: "medical", Status: Permitted, Keywords: []string{"medical", "hospital", "surgery", "treatment"}},
			{Category: "personal", Status: Permitted, Keywords: []string{"personal", "wedding", "travel", "renovation"}},
			{Category: "business", Status: ConditionallyPermitted, Keywords: []string{"business", "shop", "startup", "working capital"},
				Conditions: []string{"business registration proof required"}},
			{Category: "speculative trading", Status: Prohibited, Keywords: []string{"crypto", "cryptocurrency", "trading", "stocks", "gambling", "betting", "lottery"}},
		},
		Cities: []*CityRule{
			{City: "Mumbai", MaxAmount: 2000000},
			{City: "Delhi", MaxAmount: 2000000},
			{City: "Bangalore", MaxAmount: 1800000},
			{City: "Chennai", MaxAmount: 1500000},
			{City: "Kolkata", MaxAmount: 1500000},
			{City: "Hyderabad", MaxAmount: 1500000},
			{City: "Pune", MaxAmount: 1200000},
			{City: "Ahmedabad", MaxAmount: 1000000},
			{City: "Surat", MaxAmount: 800000, Conditions: []string{"additional income verification for amounts above 5,00,000"}},
			{City: "Jaipur", MaxAmount: 800000, Conditions: []string{"additional income verification for amounts above 5,00,000"}},
		},
	}
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx != -1 {
		before := idx == 0 || !isAlnum(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isAlnum(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next == -1 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
