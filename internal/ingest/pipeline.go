package ingest

import (
	"context"
	"fmt"

	"kitab/internal/contextutil"
	"kitab/internal/vectorstore"
)

// maxReportedIDs caps how many chunk IDs a Result carries back to callers.
const maxReportedIDs = 10

// Embedder produces one embedding vector per input text, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Result summarizes one ingestion call.
type Result struct {
	ChunksCreated  int      `json:"chunks_created"`
	FilesProcessed int      `json:"files_processed"`
	DocumentIDs    []string `json:"document_ids,omitempty"`
}

// Pipeline runs the full ingestion flow: load, split, identify, embed,
// upsert. Ingestion is idempotent; identical content maps to the same
// vector store points.
type Pipeline struct {
	processor  *Processor
	embedder   Embedder
	store      vectorstore.VectorStore
	collection string
	uploadDir  string
}

// NewPipeline wires a Pipeline. uploadDir hosts the scratch space for
// remote downloads.
func NewPipeline(processor *Processor, embedder Embedder, store vectorstore.VectorStore, collection, uploadDir string) *Pipeline {
	return &Pipeline{
		processor:  processor,
		embedder:   embedder,
		store:      store,
		collection: collection,
		uploadDir:  uploadDir,
	}
}

// IngestFile ingests a single local file.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Result, error) {
	chunks, err := p.processor.ProcessFile(path)
	if err != nil {
		return nil, err
	}
	ids, err := p.index(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return &Result{
		ChunksCreated:  len(chunks),
		FilesProcessed: 1,
		DocumentIDs:    boundIDs(ids),
	}, nil
}

// IngestText ingests raw text with optional caller metadata.
func (p *Pipeline) IngestText(ctx context.Context, text string, metadata map[string]any) (*Result, error) {
	chunks := p.processor.ProcessText(text, metadata)
	ids, err := p.index(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return &Result{
		ChunksCreated: len(chunks),
		DocumentIDs:   boundIDs(ids),
	}, nil
}

// IngestDirectory ingests every supported file under dir, recursively.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string) (*Result, error) {
	chunks, err := p.processor.ProcessDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}
	ids, err := p.index(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return &Result{
		ChunksCreated: len(chunks),
		DocumentIDs:   boundIDs(ids),
	}, nil
}

// index embeds chunk texts and upserts them into the vector store, returning
// the chunk IDs in order. A zero-chunk input is a no-op.
func (p *Pipeline) index(ctx context.Context, chunks []Chunk) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]vectorstore.Point, len(chunks))
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		meta := make(map[string]any, len(chunk.Metadata)+1)
		for k, v := range chunk.Metadata {
			meta[k] = v
		}
		meta["text"] = chunk.Text

		ids[i] = chunk.ID()
		points[i] = vectorstore.Point{
			ID:   pointID(chunk.ID(), chunk.Hash()),
			Vec:  vectors[i],
			Meta: meta,
		}
	}

	if err := p.store.Upsert(ctx, p.collection, points); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	logger.InfoContext(ctx, "indexed chunks", "collection", p.collection, "count", len(chunks))
	return ids, nil
}

func boundIDs(ids []string) []string {
	if len(ids) > maxReportedIDs {
		return ids[:maxReportedIDs]
	}
	return ids
}
