package keyword

import (
	"sort"
	"sync"
	"unicode/utf8"
)

// Suggestion is a vocabulary word close to an unknown word.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
}

// SpellChecker suggests vocabulary words within a small edit distance.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	// Cached terms for faster lookup
	termsCache []string
	cacheMu    sync.RWMutex
	cacheValid bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency drops candidates whose corpus frequency is below f.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions to return.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a new SpellChecker with the given dictionary.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        0,
		maxSuggestions: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshCache reloads the term list from the dictionary.
func (s *SpellChecker) RefreshCache() error {
	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return err
	}
	s.cacheMu.Lock()
	s.termsCache = terms
	s.cacheValid = true
	s.cacheMu.Unlock()
	return nil
}

func (s *SpellChecker) terms() []string {
	s.cacheMu.RLock()
	valid, terms := s.cacheValid, s.termsCache
	s.cacheMu.RUnlock()
	if valid {
		return terms
	}
	if err := s.RefreshCache(); err != nil {
		return nil
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.termsCache
}

// Suggest returns vocabulary words within the maximum distance of term, closest
// first, then most frequent, then alphabetical. term itself is never suggested.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	termLen := utf8.RuneCountInString(term)
	suggestions := make([]Suggestion, 0)
	for _, candidate := range s.terms() {
		if candidate == term {
			continue
		}
		lenDiff := utf8.RuneCountInString(candidate) - termLen
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > s.maxDistance {
			continue
		}
		distance := LevenshteinDistance(term, candidate)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(candidate)
		if err != nil || freq < s.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{Term: candidate, Distance: distance, Frequency: freq})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.Term < b.Term
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

// SuggestTerms is Suggest reduced to the words.
func (s *SpellChecker) SuggestTerms(term string) []string {
	suggestions := s.Suggest(term)
	if len(suggestions) == 0 {
		return nil
	}
	out := make([]string, len(suggestions))
	for i, sg := range suggestions {
		out[i] = sg.Term
	}
	return out
}
