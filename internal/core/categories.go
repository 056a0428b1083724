package core

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Category is a fixed expense classification.
type Category struct {
	ID    string
	Name  string
	Glyph string
	Color string
}

// Registry order is significant: breakdowns are reported in this order.
var categories = []Category{
	{ID: "comida", Name: "Comida", Glyph: "🍕", Color: "#10B981"},
	{ID: "transporte", Name: "Transporte", Glyph: "🚗", Color: "#3B82F6"},
	{ID: "ocio", Name: "Ocio", Glyph: "🎮", Color: "#8B5CF6"},
}

// English names accepted on input; they always resolve to the canonical id.
var categoryAliases = map[string]string{
	"food":      "comida",
	"transport": "transporte",
	"leisure":   "ocio",
}

// maxSuggestDistance bounds how far a typo may be from a known id or alias.
const maxSuggestDistance = 3

// Categories returns the registry in its fixed order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// LookupCategory resolves a canonical id or an alias, case-insensitively.
func LookupCategory(id string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	if canonical, ok := categoryAliases[key]; ok {
		key = canonical
	}
	for _, c := range categories {
		if c.ID == key {
			return c, true
		}
	}
	return Category{}, false
}

// SuggestCategory returns the closest known category for a mistyped id.
func SuggestCategory(input string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return Category{}, false
	}
	best, bestDist := "", maxSuggestDistance+1
	candidates := make([]string, 0, len(categories)+len(categoryAliases))
	for _, c := range categories {
		candidates = append(candidates, c.ID)
	}
	for alias := range categoryAliases {
		candidates = append(candidates, alias)
	}
	for _, cand := range candidates {
		d := levenshtein.ComputeDistance(key, cand)
		if d < bestDist || (d == bestDist && cand < best) {
			best, bestDist = cand, d
		}
	}
	if best == "" {
		return Category{}, false
	}
	return LookupCategory(best)
}
