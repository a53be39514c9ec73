// Package region maps the freeform region names returned by reverse
// geocoders onto a fixed catalog of known regions.
//
// Geocoders disagree on naming (full names, abbreviations, "&" versus
// "and", a trailing country), so matching runs in three tiers:
//
//  1. exact comparison of normalized names,
//  2. substring containment in either direction,
//  3. Jaccard similarity of word sets, accepted at MinScore or above.
//
// A tier only hands over to the next when it produced nothing usable,
// which includes a hit on an entry without an image.
package region

import (
	"strings"
	"unicode"
)

// MinScore is the lowest Jaccard similarity accepted by the token pass.
const MinScore = 0.4

// Pass identifies which tier produced a match.
type Pass string

const (
	PassNone      Pass = "none"
	PassExact     Pass = "exact"
	PassSubstring Pass = "substring"
	PassToken     Pass = "token"
)

// Result describes the outcome of a match.
type Result struct {
	Entry Entry
	Pass  Pass
	// Score is the Jaccard similarity for token matches, 1 for exact and
	// substring matches, 0 when nothing matched.
	Score float64
}

// Usable reports whether the result carries an image.
func (r Result) Usable() bool {
	return r.Pass != PassNone && r.Entry.Image != ""
}

// Match runs the three tiers against name. The returned Result has
// Pass == PassNone when no tier produced a usable image; the last
// non-usable hit is not reported.
func (c *Catalog) Match(name string) Result {
	input := normalize(name)
	if input == "" {
		return Result{Pass: PassNone}
	}

	for _, e := range c.entries {
		if e.key == input {
			if e.Image != "" {
				return Result{Entry: e, Pass: PassExact, Score: 1}
			}
			break
		}
	}

	for _, e := range c.entries {
		if e.key == "" {
			continue
		}
		if strings.Contains(input, e.key) || strings.Contains(e.key, input) {
			if e.Image != "" {
				return Result{Entry: e, Pass: PassSubstring, Score: 1}
			}
			break
		}
	}

	inputWords := words(input)
	best := -1
	bestScore := 0.0
	for i, e := range c.entries {
		score := Jaccard(inputWords, words(e.key))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 && bestScore >= MinScore && c.entries[best].Image != "" {
		return Result{Entry: c.entries[best], Pass: PassToken, Score: bestScore}
	}
	return Result{Pass: PassNone}
}

// Lookup returns the image reference for name, or "" when there is no
// usable match.
func (c *Catalog) Lookup(name string) string {
	return c.Match(name).Entry.Image
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets score 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Score is the token-overlap similarity between two raw region names.
func Score(a, b string) float64 {
	return Jaccard(words(normalize(a)), words(normalize(b)))
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(s), "&", "and"))
}

// words strips everything but letters and whitespace, then splits.
func words(s string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	set := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		set[w] = struct{}{}
	}
	return set
}
