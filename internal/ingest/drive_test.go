package ingest

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/mock/gomock"

	"kitab/internal/vectorstore/mocks"
)

// fakeDriveClient serves canned folder listings and writes fixed content on
// download.
type fakeDriveClient struct {
	files       []DriveFile
	listErr     error
	metadataErr error
	downloadErr map[string]error
	downloads   []string
}

func (f *fakeDriveClient) ListFolder(_ context.Context, _ string) ([]DriveFile, error) {
	return f.files, f.listErr
}

func (f *fakeDriveClient) Metadata(_ context.Context, fileID string) (*DriveFile, error) {
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	for _, file := range f.files {
		if file.ID == fileID {
			return &file, nil
		}
	}
	return nil, errors.New("file not found")
}

func (f *fakeDriveClient) Download(_ context.Context, fileID, destPath, _ string) error {
	if err := f.downloadErr[fileID]; err != nil {
		return err
	}
	f.downloads = append(f.downloads, fileID)
	return os.WriteFile(destPath, []byte("Downloaded content for "+fileID+"."), 0644)
}

func TestPipeline_IngestDriveFolder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockVectorStore(ctrl)
	store.EXPECT().Upsert(gomock.Any(), "documents", gomock.Any()).Return(nil).Times(2)

	pipeline := newTestPipeline(t, store, &fakeEmbedder{})

	// The fake writes plain text regardless of name, so eligible files get
	// text extensions to keep loading simple.
	client := &fakeDriveClient{
		files: []DriveFile{
			{ID: "pdf1", Name: "report.txt", MimeType: "application/pdf"},
			{ID: "doc1", Name: "notes.txt", MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
			{ID: "sheet1", Name: "budget", MimeType: "application/vnd.google-apps.spreadsheet"},
		},
		downloadErr: map[string]error{},
	}

	result, err := pipeline.IngestDriveFolder(context.Background(), client, "folder123")
	if err != nil {
		t.Fatalf("IngestDriveFolder() error = %v", err)
	}

	if result.FilesProcessed != 2 {
		t.Errorf("FilesProcessed = %d, want 2 (spreadsheet skipped)", result.FilesProcessed)
	}
	if len(client.downloads) != 2 {
		t.Errorf("downloads = %v, want pdf and doc only", client.downloads)
	}
	for _, id := range client.downloads {
		if id == "sheet1" {
			t.Error("spreadsheet was downloaded")
		}
	}
}

func TestPipeline_IngestDriveFolder_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockVectorStore(ctrl)
	pipeline := newTestPipeline(t, store, &fakeEmbedder{})

	result, err := pipeline.IngestDriveFolder(context.Background(), &fakeDriveClient{}, "empty")
	if err != nil {
		t.Fatalf("IngestDriveFolder() error = %v", err)
	}
	if result.ChunksCreated != 0 || result.FilesProcessed != 0 {
		t.Errorf("result = %+v, want zero result", result)
	}
}

func TestPipeline_IngestDriveFolder_PartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockVectorStore(ctrl)
	store.EXPECT().Upsert(gomock.Any(), "documents", gomock.Any()).Return(nil)

	pipeline := newTestPipeline(t, store, &fakeEmbedder{})

	client := &fakeDriveClient{
		files: []DriveFile{
			{ID: "bad", Name: "broken.txt", MimeType: "application/pdf"},
			{ID: "good", Name: "fine.txt", MimeType: "application/pdf"},
		},
		downloadErr: map[string]error{"bad": errors.New("download failed")},
	}

	result, err := pipeline.IngestDriveFolder(context.Background(), client, "folder123")
	if err != nil {
		t.Fatalf("IngestDriveFolder() error = %v", err)
	}
	if result.FilesProcessed != 1 {
		t.Errorf("FilesProcessed = %d, want 1 (failed download skipped)", result.FilesProcessed)
	}
}

func TestPipeline_IngestDriveFolder_CleansTempDir(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockVectorStore(ctrl)
	store.EXPECT().Upsert(gomock.Any(), "documents", gomock.Any()).Return(nil)

	processor, err := NewProcessor(1000, 200)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	uploadDir := t.TempDir()
	pipeline := NewPipeline(processor, &fakeEmbedder{}, store, "documents", uploadDir)

	client := &fakeDriveClient{
		files:       []DriveFile{{ID: "f1", Name: "doc.txt", MimeType: "application/pdf"}},
		downloadErr: map[string]error{},
	}
	if _, err := pipeline.IngestDriveFolder(context.Background(), client, "folder123"); err != nil {
		t.Fatalf("IngestDriveFolder() error = %v", err)
	}

	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir not cleaned, %d entries remain", len(entries))
	}
}

func TestPipeline_IngestDriveFile_UnsupportedType(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockVectorStore(ctrl)
	pipeline := newTestPipeline(t, store, &fakeEmbedder{})

	client := &fakeDriveClient{
		files: []DriveFile{{ID: "img", Name: "photo.png", MimeType: "image/png"}},
	}

	_, err := pipeline.IngestDriveFile(context.Background(), client, "img")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestEligibleMime(t *testing.T) {
	tests := []struct {
		mimeType string
		want     bool
	}{
		{"application/pdf", true},
		{MimeTypeGoogleDoc, true},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"application/vnd.google-apps.spreadsheet", false},
		{"image/png", false},
		{"text/plain", false},
	}
	for _, tt := range tests {
		if got := eligibleMime(tt.mimeType); got != tt.want {
			t.Errorf("eligibleMime(%q) = %v, want %v", tt.mimeType, got, tt.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my file (v2).pdf", "my_file__v2_.pdf"},
		{"../../etc/passwd", "passwd"},
		{"..\\windows\\path.docx", "path.docx"},
		{"///", "file"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
