package todo

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// MatchConfig tunes title resolution. The defaults are empirical.
type MatchConfig struct {
	// Threshold is the fraction of query characters that must appear in a
	// title for a fuzzy match. The comparison is strictly greater-than.
	Threshold float64
	// MinFuzzyLength is the query length (in characters) that must be
	// exceeded before fuzzy matching is attempted.
	MinFuzzyLength int
	// MinSuggestScore is the score a suggestion must exceed.
	MinSuggestScore int
	// PrefixBonus is added when a title starts with the query's first character.
	PrefixBonus int
}

// DefaultMatchConfig returns the stock thresholds.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Threshold:       0.7,
		MinFuzzyLength:  3,
		MinSuggestScore: 2,
		PrefixBonus:     2,
	}
}

// DefaultSuggestions is the suggestion count used when none is given.
const DefaultSuggestions = 3

func normalizeQuery(title string) string {
	return strings.TrimSpace(strings.ToLower(title))
}

// FindByTitle resolves an approximate title to an item.
//
// A case-insensitive substring match wins first, in store order. Failing
// that, and only for queries longer than MinFuzzyLength, the first item
// whose title contains more than Threshold of the query's characters (each
// character tested independently, anywhere in the title) is returned.
func (s *Store) FindByTitle(title string) (Item, bool) {
	term := normalizeQuery(title)
	if term == "" {
		return Item{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if strings.Contains(strings.ToLower(it.Title), term) {
			return it, true
		}
	}

	if utf8.RuneCountInString(term) <= s.match.MinFuzzyLength {
		return Item{}, false
	}
	for _, it := range s.items {
		if charOverlap(term, strings.ToLower(it.Title)) > s.match.Threshold {
			return it, true
		}
	}
	return Item{}, false
}

// Suggest ranks items that loosely resemble title, best first. Ties keep
// store order. At most max items are returned; max <= 0 means
// DefaultSuggestions.
func (s *Store) Suggest(title string, max int) []Item {
	if max <= 0 {
		max = DefaultSuggestions
	}
	term := normalizeQuery(title)
	if term == "" {
		return []Item{}
	}

	s.mu.Lock()
	type scored struct {
		item  Item
		score int
	}
	var candidates []scored
	for _, it := range s.items {
		score := suggestScore(term, strings.ToLower(it.Title), s.match.PrefixBonus)
		if score > s.match.MinSuggestScore {
			candidates = append(candidates, scored{item: it, score: score})
		}
	}
	s.mu.Unlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > max {
		candidates = candidates[:max]
	}

	out := make([]Item, len(candidates))
	for i, c := range candidates {
		out[i] = c.item
	}
	return out
}

// charHits counts the query characters present anywhere in title. Repeated
// query characters count once per occurrence.
func charHits(term, title string) int {
	hits := 0
	for _, r := range term {
		if strings.ContainsRune(title, r) {
			hits++
		}
	}
	return hits
}

func charOverlap(term, title string) float64 {
	n := utf8.RuneCountInString(term)
	if n == 0 {
		return 0
	}
	return float64(charHits(term, title)) / float64(n)
}

func suggestScore(term, title string, prefixBonus int) int {
	score := charHits(term, title)
	first, _ := utf8.DecodeRuneInString(term)
	if strings.HasPrefix(title, string(first)) {
		score += prefixBonus
	}
	return score
}
