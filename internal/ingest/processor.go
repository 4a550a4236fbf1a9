package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"kitab/internal/contextutil"
)

// loadableExtensions lists the file types the directory walk picks up, in
// the order their groups are processed.
var loadableExtensions = []string{".docx", ".md", ".pdf", ".txt"}

// Processor turns files and raw text into identified chunks. It performs no
// I/O beyond reading source files; embedding and storage belong to Pipeline.
type Processor struct {
	splitter *Splitter
}

// NewProcessor creates a Processor with the given chunking parameters.
func NewProcessor(chunkSize, chunkOverlap int) (*Processor, error) {
	splitter, err := NewSplitter(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Processor{splitter: splitter}, nil
}

// SplitDocuments splits documents into chunks and assigns each chunk its
// identifier and content hash. Chunks inherit their document's metadata.
func (p *Processor) SplitDocuments(docs []Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		for _, piece := range p.splitter.Split(doc.Text) {
			meta := make(map[string]any, len(doc.Metadata)+2)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			chunks = append(chunks, Chunk{Text: piece, Metadata: meta})
		}
	}
	assignIdentity(chunks)
	return chunks
}

// ProcessFile loads a single file and splits it into chunks.
func (p *Processor) ProcessFile(path string) ([]Chunk, error) {
	docs, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return p.SplitDocuments(docs), nil
}

// ProcessText wraps raw text in a document and splits it. The source label
// defaults to "text" when the metadata does not carry one.
func (p *Processor) ProcessText(text string, metadata map[string]any) []Chunk {
	meta := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		meta[k] = v
	}
	if _, ok := meta[MetaSource]; !ok {
		meta[MetaSource] = "text"
	}
	if _, ok := meta[MetaPage]; !ok {
		meta[MetaPage] = 0
	}
	return p.SplitDocuments([]Document{{Text: text, Metadata: meta}})
}

// ProcessDirectory loads every supported file under dir, recursively, and
// splits the combined result. Files are grouped by extension; a failure in
// one group is logged and the group skipped, so one bad file type does not
// abort the whole directory.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) ([]Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory not found: %s: %w", dir, fs.ErrNotExist)
	}

	var docs []Document
	for _, ext := range loadableExtensions {
		group, err := loadGroup(dir, ext)
		if err != nil {
			logger.WarnContext(ctx, "skipping file group", "dir", dir, "ext", ext, "error", err)
			continue
		}
		docs = append(docs, group...)
	}
	return p.SplitDocuments(docs), nil
}

// loadGroup loads all files under dir with the given extension, in walk
// order. The first load failure aborts the group.
func loadGroup(dir, ext string) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		loaded, err := loadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
