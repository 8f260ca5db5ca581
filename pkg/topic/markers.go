package topic

import "strings"

// MarkerPredicate reports whether message text carries an explicit
// topic-change marker. It is deliberately swappable so the heuristic can be
// upgraded without touching transition or confidence mechanics.
type MarkerPredicate func(text string) bool

// DefaultMarkers are the phrasal markers treated as a deliberate change of
// subject by the user.
func DefaultMarkers() []string {
	return []string{
		"let's talk about",
		"lets talk about",
		"let's switch to",
		"lets switch to",
		"let's discuss",
		"lets discuss",
		"let's move on",
		"lets move on",
		"speaking of",
		"by the way",
		"on another note",
		"that reminds me",
		"changing topic",
		"change of subject",
		"switching gears",
		"moving on to",
		"new topic",
		"different question",
	}
}

// Markers builds a predicate matching any of the given phrases
// case-insensitively. Multi-word phrases match as substrings; single words
// match on word boundaries.
func Markers(phrases []string) MarkerPredicate {
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}

	return func(text string) bool {
		lower := strings.ToLower(text)
		words := tokenize(lower)
		for _, p := range lowered {
			if matchCount(lower, words, p) > 0 {
				return true
			}
		}
		return false
	}
}
