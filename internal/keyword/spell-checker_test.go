package keyword

import (
	"errors"
	"testing"
)

// mockTermDictionary is a TermDictionary whose term listing can fail.
type mockTermDictionary struct {
	terms       map[string]int
	getAllError error
}

func (m *mockTermDictionary) GetAllTerms() ([]string, error) {
	if m.getAllError != nil {
		return nil, m.getAllError
	}
	out := make([]string, 0, len(m.terms))
	for term := range m.terms {
		out = append(out, term)
	}
	return out, nil
}

func (m *mockTermDictionary) GetTermFrequency(term string) (int, error) { return m.terms[term], nil }

func TestSpellChecker_Options(t *testing.T) {
	sc := NewSpellChecker(&mockTermDictionary{})
	if sc.maxDistance != 2 || sc.minFreq != 0 || sc.maxSuggestions != 3 {
		t.Errorf("defaults = %d/%d/%d", sc.maxDistance, sc.minFreq, sc.maxSuggestions)
	}
	sc = NewSpellChecker(&mockTermDictionary{}, WithMaxDistance(1), WithMinFrequency(5), WithMaxSuggestions(10))
	if sc.maxDistance != 1 || sc.minFreq != 5 || sc.maxSuggestions != 10 {
		t.Errorf("options not applied: %d/%d/%d", sc.maxDistance, sc.minFreq, sc.maxSuggestions)
	}
	sc = NewSpellChecker(&mockTermDictionary{}, WithMaxDistance(0), WithMaxSuggestions(-1))
	if sc.maxDistance != 2 || sc.maxSuggestions != 3 {
		t.Error("invalid option values should be ignored")
	}
}

func TestSpellChecker_Suggest(t *testing.T) {
	dict := NewVocabularyDictionary(
		[]string{"cat", "cap", "cut", "cart", "dog", "catalog"},
		map[string]int{"cat": 10, "cap": 3, "cut": 7, "cart": 50},
	)
	sc := NewSpellChecker(dict, WithMaxSuggestions(10))

	got := sc.Suggest("cst")
	want := []string{"cat", "cut", "cart", "cap"}
	if len(got) != len(want) {
		t.Fatalf("Suggest(cst) = %+v", got)
	}
	for i, w := range want {
		if got[i].Term != w {
			t.Errorf("suggestion %d = %s, want %s", i, got[i].Term, w)
		}
	}
	if got[2].Distance != 2 {
		t.Errorf("cart distance = %d, want 2", got[2].Distance)
	}

	for _, s := range sc.Suggest("cat") {
		if s.Term == "cat" {
			t.Error("a word must not be suggested for itself")
		}
	}
}

func TestSpellChecker_SuggestTermsLimitAndFrequency(t *testing.T) {
	dict := NewVocabularyDictionary([]string{"bat", "hat", "mat", "rat"}, map[string]int{"bat": 1, "hat": 9, "mat": 5})
	sc := NewSpellChecker(dict, WithMaxSuggestions(2), WithMinFrequency(1))

	got := sc.SuggestTerms("cat")
	if len(got) != 2 || got[0] != "hat" || got[1] != "mat" {
		t.Errorf("SuggestTerms(cat) = %v, want [hat mat]", got)
	}
	if sc.SuggestTerms("zzzzzz") != nil {
		t.Error("expected nil for no suggestions")
	}
}

func TestSpellChecker_DictionaryError(t *testing.T) {
	sc := NewSpellChecker(&mockTermDictionary{getAllError: errors.New("boom")})
	if got := sc.Suggest("cat"); len(got) != 0 {
		t.Errorf("expected no suggestions on dictionary error, got %v", got)
	}
}
