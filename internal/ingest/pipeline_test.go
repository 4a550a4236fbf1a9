package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/mock/gomock"

	"kitab/internal/vectorstore"
	"kitab/internal/vectorstore/mocks"
)

// fakeEmbedder returns a fixed-size vector per text, or a canned error.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 2, 3}
	}
	return vectors, nil
}

func newTestPipeline(t *testing.T, store vectorstore.VectorStore, embedder Embedder) *Pipeline {
	t.Helper()
	processor, err := NewProcessor(1000, 200)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	return NewPipeline(processor, embedder, store, "documents", t.TempDir())
}

func TestPipeline_IngestText(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockVectorStore(ctrl)
	var captured []vectorstore.Point
	store.EXPECT().
		Upsert(gomock.Any(), "documents", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) error {
			captured = points
			return nil
		})

	pipeline := newTestPipeline(t, store, &fakeEmbedder{})

	result, err := pipeline.IngestText(context.Background(), "Alpha beta gamma.", nil)
	if err != nil {
		t.Fatalf("IngestText() error = %v", err)
	}
	if result.ChunksCreated != 1 {
		t.Errorf("ChunksCreated = %d, want 1", result.ChunksCreated)
	}
	if len(result.DocumentIDs) != 1 || result.DocumentIDs[0] != "text:0:1" {
		t.Errorf("DocumentIDs = %v, want [text:0:1]", result.DocumentIDs)
	}

	if len(captured) != 1 {
		t.Fatalf("upserted %d points, want 1", len(captured))
	}
	point := captured[0]
	if point.Meta["text"] != "Alpha beta gamma." {
		t.Errorf("payload text = %v, want chunk text", point.Meta["text"])
	}
	if point.Meta[MetaID] != "text:0:1" {
		t.Errorf("payload id = %v, want text:0:1", point.Meta[MetaID])
	}
	if point.ID == "" {
		t.Error("point ID is empty")
	}
}

func TestPipeline_IngestText_IdempotentPointIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockVectorStore(ctrl)
	var pointIDs []string
	store.EXPECT().
		Upsert(gomock.Any(), "documents", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) error {
			for _, p := range points {
				pointIDs = append(pointIDs, p.ID)
			}
			return nil
		}).
		Times(2)

	pipeline := newTestPipeline(t, store, &fakeEmbedder{})

	ctx := context.Background()
	if _, err := pipeline.IngestText(ctx, "Same content.", nil); err != nil {
		t.Fatalf("IngestText() error = %v", err)
	}
	if _, err := pipeline.IngestText(ctx, "Same content.", nil); err != nil {
		t.Fatalf("IngestText() error = %v", err)
	}

	if len(pointIDs) != 2 || pointIDs[0] != pointIDs[1] {
		t.Errorf("re-ingestion produced different point IDs: %v", pointIDs)
	}
}

func TestPipeline_IngestText_EmbedError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockVectorStore(ctrl)
	pipeline := newTestPipeline(t, store, &fakeEmbedder{err: errors.New("quota exhausted")})

	if _, err := pipeline.IngestText(context.Background(), "Some text.", nil); err == nil {
		t.Fatal("IngestText() expected error when embedding fails")
	}
}

func TestPipeline_IngestFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockVectorStore(ctrl)
	store.EXPECT().Upsert(gomock.Any(), "documents", gomock.Any()).Return(nil)

	pipeline := newTestPipeline(t, store, &fakeEmbedder{})

	path := writeTempFile(t, "report.txt", "Quarterly report content.")
	result, err := pipeline.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile() error = %v", err)
	}
	if result.FilesProcessed != 1 {
		t.Errorf("FilesProcessed = %d, want 1", result.FilesProcessed)
	}
	if len(result.DocumentIDs) == 0 || result.DocumentIDs[0] != "report.txt:0:1" {
		t.Errorf("DocumentIDs = %v, want leading report.txt:0:1", result.DocumentIDs)
	}
}

func TestPipeline_ReportedIDsBounded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockVectorStore(ctrl)
	store.EXPECT().Upsert(gomock.Any(), "documents", gomock.Any()).Return(nil)

	processor, err := NewProcessor(20, 0)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	pipeline := NewPipeline(processor, &fakeEmbedder{}, store, "documents", t.TempDir())

	// Many short paragraphs produce well over maxReportedIDs chunks.
	text := ""
	for i := 0; i < 40; i++ {
		text += fmt.Sprintf("Paragraph number %d.\n\n", i)
	}

	result, err := pipeline.IngestText(context.Background(), text, nil)
	if err != nil {
		t.Fatalf("IngestText() error = %v", err)
	}
	if result.ChunksCreated <= maxReportedIDs {
		t.Fatalf("ChunksCreated = %d, want more than %d", result.ChunksCreated, maxReportedIDs)
	}
	if len(result.DocumentIDs) != maxReportedIDs {
		t.Errorf("DocumentIDs length = %d, want %d", len(result.DocumentIDs), maxReportedIDs)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := t.TempDir() + "/" + name
	writeFile(t, path, content)
	return path
}
