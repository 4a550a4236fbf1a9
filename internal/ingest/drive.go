package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kitab/internal/contextutil"
)

// MimeTypeGoogleDoc is the native Google Docs MIME type. Such files cannot
// be downloaded directly and must be exported to DOCX first.
const MimeTypeGoogleDoc = "application/vnd.google-apps.document"

// DriveFile is the subset of remote file metadata ingestion needs.
type DriveFile struct {
	ID       string
	Name     string
	MimeType string
}

// DriveClient lists and fetches files from a remote drive. Download must
// write the file's bytes to destPath, exporting native document formats to
// DOCX as needed.
type DriveClient interface {
	ListFolder(ctx context.Context, folderID string) ([]DriveFile, error)
	Metadata(ctx context.Context, fileID string) (*DriveFile, error)
	Download(ctx context.Context, fileID, destPath, mimeType string) error
}

// eligibleMime reports whether a remote file type can be ingested. PDFs and
// document formats qualify; spreadsheets, images and the rest do not.
func eligibleMime(mimeType string) bool {
	return strings.Contains(mimeType, "pdf") || strings.Contains(mimeType, "document")
}

// IngestDriveFolder downloads every eligible file in a folder into a
// temporary directory and ingests each one. Ineligible files are skipped
// silently; a download or processing failure on one file is logged and the
// remaining files still proceed. The temporary directory is always removed.
func (p *Pipeline) IngestDriveFolder(ctx context.Context, client DriveClient, folderID string) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	files, err := client.ListFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}
	if len(files) == 0 {
		return &Result{}, nil
	}

	tempDir, err := os.MkdirTemp(p.uploadDir, "drive-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(tempDir)
	}()

	result := &Result{}
	var ids []string
	for _, file := range files {
		if !eligibleMime(file.MimeType) {
			continue
		}

		destPath := filepath.Join(tempDir, downloadName(file))
		if err := client.Download(ctx, file.ID, destPath, file.MimeType); err != nil {
			logger.WarnContext(ctx, "skipping drive file", "file_id", file.ID, "name", file.Name, "error", err)
			continue
		}

		chunks, err := p.processor.ProcessFile(destPath)
		if err != nil {
			logger.WarnContext(ctx, "skipping drive file", "file_id", file.ID, "name", file.Name, "error", err)
			continue
		}
		chunkIDs, err := p.index(ctx, chunks)
		if err != nil {
			logger.WarnContext(ctx, "skipping drive file", "file_id", file.ID, "name", file.Name, "error", err)
			continue
		}

		result.ChunksCreated += len(chunks)
		result.FilesProcessed++
		ids = append(ids, chunkIDs...)
	}
	result.DocumentIDs = boundIDs(ids)

	logger.InfoContext(ctx, "ingested drive folder",
		"folder_id", folderID, "files", result.FilesProcessed, "chunks", result.ChunksCreated)
	return result, nil
}

// IngestDriveFile downloads and ingests a single remote file. Unlike the
// folder flow, an ineligible type or a failure is an error.
func (p *Pipeline) IngestDriveFile(ctx context.Context, client DriveClient, fileID string) (*Result, error) {
	file, err := client.Metadata(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for file %s: %w", fileID, err)
	}
	if !eligibleMime(file.MimeType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, file.MimeType)
	}

	tempDir, err := os.MkdirTemp(p.uploadDir, "drive-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(tempDir)
	}()

	destPath := filepath.Join(tempDir, downloadName(*file))
	if err := client.Download(ctx, file.ID, destPath, file.MimeType); err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}

	return p.IngestFile(ctx, destPath)
}

// downloadName sanitizes a remote file name for local use and gives native
// Google Docs a .docx extension to match the exported format.
func downloadName(file DriveFile) string {
	name := SanitizeFileName(file.Name)
	if file.MimeType == MimeTypeGoogleDoc && !strings.HasSuffix(strings.ToLower(name), ".docx") {
		name += ".docx"
	}
	return name
}

// SanitizeFileName strips path components and replaces characters outside
// [A-Za-z0-9._-] so untrusted names cannot escape the target directory.
func SanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}
