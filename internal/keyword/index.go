// Package keyword provides lexical lookups over a model vocabulary: spelling
// suggestions for unknown words and prefix/fuzzy vocabulary search.
package keyword

// TermDictionary provides access to the term dictionary for spell checking.
// This interface allows dependency injection for testing.
type TermDictionary interface {
	// GetAllTerms returns all terms of the vocabulary.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the corpus frequency of a term.
	GetTermFrequency(term string) (int, error)
}

// VocabularyDictionary is a TermDictionary over a fixed word list and a frequency table.
type VocabularyDictionary struct {
	words []string
	freqs map[string]int
}

// NewVocabularyDictionary builds a dictionary. freqs may be nil or incomplete;
// unknown frequencies read as 0.
func NewVocabularyDictionary(words []string, freqs map[string]int) *VocabularyDictionary {
	return &VocabularyDictionary{words: words, freqs: freqs}
}

func (d *VocabularyDictionary) GetAllTerms() ([]string, error) { return d.words, nil }

func (d *VocabularyDictionary) GetTermFrequency(term string) (int, error) { return d.freqs[term], nil }
