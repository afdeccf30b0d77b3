// Package corpus reads the documents of the offline TF-IDF build and cuts them
// into word windows.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupported is returned for a file whose extension has no text reader.
var ErrUnsupported = errors.New("unsupported corpus file")

// ReadText returns the plain text of the file at path, choosing the reader by
// extension.
func ReadText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return TextFromBytes(content, strings.ToLower(filepath.Ext(path)))
}

// TextFromBytes extracts text from content. ext includes the leading dot.
func TextFromBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".txt", ".md":
		return plainText(content), nil
	case ".pdf":
		return pdfText(content)
	case ".docx":
		return docxText(content)
	case ".xlsx":
		return xlsxText(content)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

func plainText(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\ufffd")
	}
	return string(content)
}
