package corpus

import "strings"

// Document is one word window of a corpus file.
type Document struct {
	Source string
	Index  int
	Text   string
}

// Chunker splits text into windows of size words, consecutive windows sharing
// overlap words.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker returns a chunker. A size below 1 puts the whole text in one window.
func NewChunker(size, overlap int) *Chunker {
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk returns the windows of text, or nil when text has no words.
func (c *Chunker) Chunk(source, text string) []Document {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	size := c.size
	if size < 1 {
		size = len(words)
	}
	step := size - c.overlap
	if step <= 0 {
		step = 1
	}
	var docs []Document
	for i := 0; i < len(words); i += step {
		end := min(i+size, len(words))
		docs = append(docs, Document{
			Source: source,
			Index:  len(docs),
			Text:   strings.Join(words[i:end], " "),
		})
		if end == len(words) {
			break
		}
	}
	return docs
}
