// Package menu applies caller preferences to resolved menus and orchestrates
// the per-request pipeline.
package menu

import (
	"strconv"
	"strings"

	"github.com/menuscan/menuscan/internal/model"
)

// ApplyPreferences filters items by the caller's price ceiling and excluded
// allergen codes, AND semantics. With no preferences the input is returned
// unchanged. Once a ceiling is set, items without a price are excluded. An
// item with no allergen list is treated as safe and never excluded by the
// allergen rule. Pure; never fails.
func ApplyPreferences(items []model.MenuItem, prefs *model.Preferences) []model.MenuItem {
	if prefs.IsZero() {
		return items
	}

	excluded := make(map[int]struct{}, len(prefs.Allergens))
	for _, code := range prefs.Allergens {
		excluded[code] = struct{}{}
	}

	out := make([]model.MenuItem, 0, len(items))
	for _, item := range items {
		if prefs.Price != nil {
			if item.Price == nil || *item.Price > *prefs.Price {
				continue
			}
		}
		if len(excluded) > 0 && hasExcludedAllergen(item.Allergens, excluded) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// hasExcludedAllergen compares allergen tokens numerically against the
// excluded set, so "7" on the item matches code 7 in the preferences.
func hasExcludedAllergen(allergens []string, excluded map[int]struct{}) bool {
	for _, a := range allergens {
		code, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			continue
		}
		if _, ok := excluded[code]; ok {
			return true
		}
	}
	return false
}

// RecommendMeal returns the name of the first surviving item in original
// order, or nil for an empty set. "First" is a deliberate deterministic
// tie-break, not a quality ranking.
func RecommendMeal(items []model.MenuItem) *string {
	if len(items) == 0 {
		return nil
	}
	name := items[0].Name
	return &name
}
