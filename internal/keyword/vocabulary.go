package keyword

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

const wordField = "word"

// indexBatchSize bounds the number of words per Bleve batch.
const indexBatchSize = 1000

type vocabDoc struct {
	Word string `json:"word"`
}

// VocabularyIndex is an in-memory Bleve index with one document per vocabulary word.
type VocabularyIndex struct {
	index bleve.Index
}

// NewVocabularyIndex indexes words into a memory-only Bleve index.
func NewVocabularyIndex(words []string) (*VocabularyIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	wordMapping := bleve.NewTextFieldMapping()
	// Words are already normalized; index each one as a single term.
	wordMapping.Analyzer = keywordanalyzer.Name
	docMapping.AddFieldMappingsAt(wordField, wordMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create vocabulary index: %w", err)
	}

	batch := index.NewBatch()
	for _, w := range words {
		if err := batch.Index(w, vocabDoc{Word: w}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("index %q: %w", w, err)
		}
		if batch.Size() >= indexBatchSize {
			if err := index.Batch(batch); err != nil {
				_ = index.Close()
				return nil, fmt.Errorf("index batch: %w", err)
			}
			batch.Reset()
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("index batch: %w", err)
	}
	return &VocabularyIndex{index: index}, nil
}

// Search returns up to limit words starting with q in alphabetical order. When no
// word has that prefix, words within one edit of q are returned, best match first.
func (v *VocabularyIndex) Search(q string, limit int) ([]string, error) {
	if q == "" || limit <= 0 {
		return []string{}, nil
	}
	prefix := bleve.NewPrefixQuery(q)
	prefix.SetField(wordField)
	words, err := v.run(prefix, limit, []string{"_id"})
	if err != nil || len(words) > 0 {
		return words, err
	}

	fuzzy := bleve.NewFuzzyQuery(q)
	fuzzy.SetField(wordField)
	fuzzy.SetFuzziness(1)
	return v.run(fuzzy, limit, []string{"-_score", "_id"})
}

func (v *VocabularyIndex) run(q blevequery.Query, limit int, order []string) ([]string, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.SortBy(order)
	res, err := v.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("vocabulary search failed: %w", err)
	}
	words := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		words[i] = hit.ID
	}
	return words, nil
}

// DocCount returns the number of indexed words.
func (v *VocabularyIndex) DocCount() (uint64, error) {
	return v.index.DocCount()
}

// Close releases the index.
func (v *VocabularyIndex) Close() error {
	return v.index.Close()
}
