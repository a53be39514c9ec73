package region

import (
	"github.com/agnivade/levenshtein"
)

// maxSuggestRatio caps the edit distance, relative to the longer name,
// for a suggestion to be offered.
const maxSuggestRatio = 0.34

// Suggest returns the catalog entry whose name is closest to name by edit
// distance, for "did you mean" hints on misspelt region names. It is a
// diagnostic aid only; Match never uses it.
func (c *Catalog) Suggest(name string) (Entry, bool) {
	key := normalize(name)
	if key == "" {
		return Entry{}, false
	}

	best, bestDist := -1, 0
	for i, e := range c.entries {
		d := levenshtein.ComputeDistance(key, e.key)
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 {
		return Entry{}, false
	}

	longest := max(len([]rune(key)), len([]rune(c.entries[best].key)))
	if float64(bestDist)/float64(longest) > maxSuggestRatio {
		return Entry{}, false
	}
	return c.entries[best], true
}
