package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"kitab/internal/config"
	"kitab/internal/contextutil"
	"kitab/internal/drive"
	"kitab/internal/ingest"
)

// maxUploadBytes caps multipart file uploads at 32MB.
const maxUploadBytes = 32 << 20

// IngestHandler serves the document ingestion endpoints. driveClient may be
// nil when Drive integration is not configured; the Drive endpoints then
// return 503.
type IngestHandler struct {
	pipeline    *ingest.Pipeline
	driveClient ingest.DriveClient
	uploadDir   string
}

// NewIngestHandler creates an IngestHandler.
func NewIngestHandler(pipeline *ingest.Pipeline, driveClient ingest.DriveClient, uploadDir string) *IngestHandler {
	return &IngestHandler{
		pipeline:    pipeline,
		driveClient: driveClient,
		uploadDir:   uploadDir,
	}
}

// IngestResponse is the success body for all ingestion endpoints.
type IngestResponse struct {
	Message        string   `json:"message"`
	Filename       string   `json:"filename,omitempty"`
	ChunksCreated  int      `json:"chunks_created"`
	FilesProcessed int      `json:"files_processed,omitempty"`
	DocumentIDs    []string `json:"document_ids,omitempty"`
}

// File handles POST /ingest/file. The upload is written under the upload
// directory with its sanitized original name, so chunk IDs keep the
// caller's filename, and removed once indexed.
func (h *IngestHandler) File(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing file field")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	name := ingest.SanitizeFileName(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !config.AllowedExtensions[ext] {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unsupported file type: %s", ext))
		return
	}

	destPath := filepath.Join(h.uploadDir, name)
	if err := saveUpload(file, destPath); err != nil {
		logger.ErrorContext(r.Context(), "failed to save upload", "filename", name, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to save upload")
		return
	}
	defer func() {
		_ = os.Remove(destPath)
	}()

	result, err := h.pipeline.IngestFile(r.Context(), destPath)
	if err != nil {
		logger.ErrorContext(r.Context(), "file ingestion failed", "filename", name, "error", err)
		writeError(w, r, statusFor(err), "failed to ingest file")
		return
	}

	writeJSON(w, r, http.StatusOK, IngestResponse{
		Message:       "File ingested successfully",
		Filename:      name,
		ChunksCreated: result.ChunksCreated,
		DocumentIDs:   result.DocumentIDs,
	})
}

// TextRequest is the body for POST /ingest/text.
type TextRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Text handles POST /ingest/text.
func (h *IngestHandler) Text(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())

	var req TextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, r, http.StatusBadRequest, "text is required")
		return
	}

	result, err := h.pipeline.IngestText(r.Context(), req.Text, req.Metadata)
	if err != nil {
		logger.ErrorContext(r.Context(), "text ingestion failed", "error", err)
		writeError(w, r, statusFor(err), "failed to ingest text")
		return
	}

	writeJSON(w, r, http.StatusOK, IngestResponse{
		Message:       "Text ingested successfully",
		ChunksCreated: result.ChunksCreated,
		DocumentIDs:   result.DocumentIDs,
	})
}

// DirectoryRequest is the body for POST /ingest/directory.
type DirectoryRequest struct {
	DirectoryPath string `json:"directory_path"`
}

// Directory handles POST /ingest/directory.
func (h *IngestHandler) Directory(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())

	var req DirectoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DirectoryPath == "" {
		writeError(w, r, http.StatusBadRequest, "directory_path is required")
		return
	}

	result, err := h.pipeline.IngestDirectory(r.Context(), req.DirectoryPath)
	if err != nil {
		logger.ErrorContext(r.Context(), "directory ingestion failed", "dir", req.DirectoryPath, "error", err)
		writeError(w, r, statusFor(err), "failed to ingest directory")
		return
	}

	writeJSON(w, r, http.StatusOK, IngestResponse{
		Message:       "Directory ingested successfully",
		ChunksCreated: result.ChunksCreated,
		DocumentIDs:   result.DocumentIDs,
	})
}

// DriveFolderRequest is the body for POST /ingest/google-drive. The value
// may be a folder ID or a full Drive URL.
type DriveFolderRequest struct {
	FolderID string `json:"folder_id"`
}

// DriveFolder handles POST /ingest/google-drive.
func (h *IngestHandler) DriveFolder(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())

	if h.driveClient == nil {
		writeError(w, r, http.StatusServiceUnavailable, "Google Drive integration is not configured")
		return
	}

	var req DriveFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FolderID == "" {
		writeError(w, r, http.StatusBadRequest, "folder_id is required")
		return
	}

	folderID := drive.ExtractID(req.FolderID)
	result, err := h.pipeline.IngestDriveFolder(r.Context(), h.driveClient, folderID)
	if err != nil {
		logger.ErrorContext(r.Context(), "drive folder ingestion failed", "folder_id", folderID, "error", err)
		writeError(w, r, statusFor(err), "failed to ingest drive folder")
		return
	}

	writeJSON(w, r, http.StatusOK, IngestResponse{
		Message:        "Google Drive folder ingested successfully",
		ChunksCreated:  result.ChunksCreated,
		FilesProcessed: result.FilesProcessed,
		DocumentIDs:    result.DocumentIDs,
	})
}

// DriveFileRequest is the body for POST /ingest/google-drive/file. The
// value may be a file ID or a full Drive URL.
type DriveFileRequest struct {
	FileID string `json:"file_id"`
}

// DriveFile handles POST /ingest/google-drive/file.
func (h *IngestHandler) DriveFile(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())

	if h.driveClient == nil {
		writeError(w, r, http.StatusServiceUnavailable, "Google Drive integration is not configured")
		return
	}

	var req DriveFileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileID == "" {
		writeError(w, r, http.StatusBadRequest, "file_id is required")
		return
	}

	fileID := drive.ExtractID(req.FileID)
	result, err := h.pipeline.IngestDriveFile(r.Context(), h.driveClient, fileID)
	if err != nil {
		logger.ErrorContext(r.Context(), "drive file ingestion failed", "file_id", fileID, "error", err)
		writeError(w, r, statusFor(err), "failed to ingest drive file")
		return
	}

	writeJSON(w, r, http.StatusOK, IngestResponse{
		Message:        "Google Drive file ingested successfully",
		ChunksCreated:  result.ChunksCreated,
		FilesProcessed: result.FilesProcessed,
		DocumentIDs:    result.DocumentIDs,
	})
}

func saveUpload(src io.Reader, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(destPath)
		return err
	}
	return out.Close()
}
