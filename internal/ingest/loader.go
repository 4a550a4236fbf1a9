package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// MetaTitle is set on markdown documents that declare a heading.
const MetaTitle = "title"

// loadFile reads a file into one or more documents based on its extension.
// Unknown extensions fall back to plain-text loading. A missing file returns
// an error wrapping fs.ErrNotExist.
func loadFile(path string) ([]Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".docx":
		return loadDocx(path)
	case ".md":
		return loadMarkdown(path)
	default:
		return loadText(path)
	}
}

// loadText reads the whole file as a single page-0 document.
func loadText(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return []Document{{
		Text: string(data),
		Metadata: map[string]any{
			MetaSource: path,
			MetaPage:   0,
		},
	}}, nil
}

// loadMarkdown loads a markdown file as plain text and records its title,
// taken from the first level-1 or level-2 heading, or the filename if none.
func loadMarkdown(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return []Document{{
		Text: string(data),
		Metadata: map[string]any{
			MetaSource: path,
			MetaPage:   0,
			MetaTitle:  markdownTitle(data, strings.TrimSuffix(filepath.Base(path), ".md")),
		},
	}}, nil
}

// markdownTitle returns the text of the first H1 or H2 in content, or
// fallback if the document has no such heading.
func markdownTitle(content []byte, fallback string) string {
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(content))

	title := ""
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level > 2 {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		for i := 0; i < heading.Lines().Len(); i++ {
			seg := heading.Lines().At(i)
			buf.Write(seg.Value(content))
		}
		title = strings.TrimSpace(buf.String())
		return ast.WalkStop, nil
	})

	if title == "" {
		return fallback
	}
	return title
}

// loadPDF extracts one document per page. Page numbers are 0-based in
// metadata so chunk IDs line up with how readers index pages.
func loadPDF(path string) ([]Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var docs []Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d of %s: %w", i, path, err)
		}
		docs = append(docs, Document{
			Text: text,
			Metadata: map[string]any{
				MetaSource: path,
				MetaPage:   i - 1,
			},
		})
	}
	return docs, nil
}

// loadDocx extracts paragraph text from the word/document.xml entry of a
// DOCX archive as a single page-0 document.
func loadDocx(path string) ([]Document, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX %s: %w", path, err)
	}
	defer func() {
		_ = archive.Close()
	}()

	var docXML *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			docXML = file
			break
		}
	}
	if docXML == nil {
		return nil, fmt.Errorf("invalid DOCX %s: missing word/document.xml", path)
	}

	rc, err := docXML.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read DOCX %s: %w", path, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	text, err := extractDocxText(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOCX %s: %w", path, err)
	}

	return []Document{{
		Text: text,
		Metadata: map[string]any{
			MetaSource: path,
			MetaPage:   0,
		},
	}}, nil
}

// extractDocxText walks the WordprocessingML token stream, collecting text
// inside <w:t> elements and emitting a newline per closed paragraph.
func extractDocxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var buf strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				buf.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}
