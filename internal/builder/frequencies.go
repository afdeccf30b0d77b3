package builder

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/embex/internal/storage"
	"github.com/hyperjump/embex/pkg/utils"
)

// ReadFrequencies parses tab-separated "word<TAB>count" lines. Words are
// normalized; repeated words are summed. Blank lines and lines starting with #
// are ignored.
func ReadFrequencies(r io.Reader) (map[string]int, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	freqs := make(map[string]int)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return freqs, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != 2 {
			return nil, fmt.Errorf("line %d: want 2 fields, got %d", line, len(rec))
		}
		word := utils.NormalizeWord(rec[0])
		if word == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("line %d: invalid count %q", line, rec[1])
		}
		freqs[word] += n
	}
}

// ImportFrequencies reads a TSV frequency list into lex. With replace the
// existing table is dropped first, otherwise counts are upserted.
func ImportFrequencies(ctx context.Context, lex storage.Lexicon, r io.Reader, replace bool) (int, error) {
	freqs, err := ReadFrequencies(r)
	if err != nil {
		return 0, err
	}
	if replace {
		err = lex.ReplaceFrequencies(ctx, freqs)
	} else {
		err = lex.UpsertFrequencies(ctx, freqs)
	}
	if err != nil {
		return 0, err
	}
	return len(freqs), nil
}
