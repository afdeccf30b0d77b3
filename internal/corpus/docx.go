package corpus

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultBody = "word/document.xml"
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	overrideTag  = regexp.MustCompile(`<Override\s[^>]*>`)
	partNameAttr = regexp.MustCompile(`PartName="([^"]+)"`)
	ctAttr       = regexp.MustCompile(`ContentType="([^"]+)"`)
	paragraphTag = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	textRunTag   = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
)

// docxText returns the paragraphs of a .docx body, one per line. The body part
// is located through [Content_Types].xml, falling back to word/document.xml.
func docxText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}
	bodyPath := docxDefaultBody
	if types, err := zipPart(zr, "[Content_Types].xml"); err == nil {
		if p := docxBodyPart(types); p != "" {
			bodyPath = p
		}
	}
	body, err := zipPart(zr, bodyPath)
	if err != nil {
		return "", fmt.Errorf("DOCX body: %w", err)
	}

	var paragraphs []string
	for _, p := range paragraphTag.FindAllString(body, -1) {
		var runs []string
		for _, m := range textRunTag.FindAllStringSubmatch(p, -1) {
			if s := strings.TrimSpace(html.UnescapeString(m[1])); s != "" {
				runs = append(runs, s)
			}
		}
		if len(runs) > 0 {
			paragraphs = append(paragraphs, strings.Join(runs, " "))
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

func docxBodyPart(types string) string {
	for _, tag := range overrideTag.FindAllString(types, -1) {
		ct := ctAttr.FindStringSubmatch(tag)
		name := partNameAttr.FindStringSubmatch(tag)
		if len(ct) > 1 && len(name) > 1 && ct[1] == docxContentType {
			return strings.TrimPrefix(name[1], "/")
		}
	}
	return ""
}

func zipPart(zr *zip.Reader, name string) (string, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%s not found", name)
}
