package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"kitab/internal/ingest"
)

// ErrAuth is returned when Drive credentials are missing or invalid.
var ErrAuth = errors.New("drive authentication failed")

// ExportMimeDocx is the format native Google Docs are exported to.
const ExportMimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const scopeReadonly = drive.DriveReadonlyScope

// Client reads files from Google Drive. It implements ingest.DriveClient.
type Client struct {
	svc *drive.Service
}

// NewClient authenticates against the Drive API. Service account credentials
// are used directly; OAuth client credentials require a previously issued
// token at tokenPath (this server never runs the interactive consent flow).
func NewClient(ctx context.Context, credentialsPath, tokenPath string) (*Client, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading credentials %s: %v", ErrAuth, credentialsPath, err)
	}

	if strings.Contains(string(data), `"service_account"`) {
		svc, err := drive.NewService(ctx,
			option.WithCredentialsJSON(data),
			option.WithScopes(scopeReadonly),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return &Client{svc: svc}, nil
	}

	config, err := google.ConfigFromJSON(data, scopeReadonly)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing credentials: %v", ErrAuth, err)
	}

	tokenData, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: token file %s is missing; complete the OAuth consent flow to create it", ErrAuth, tokenPath)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("%w: parsing token file %s: %v", ErrAuth, tokenPath, err)
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(config.TokenSource(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return &Client{svc: svc}, nil
}

// ListFolder returns the PDF and document files directly inside a folder.
// Trashed files are excluded. Results are paginated internally.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]ingest.DriveFile, error) {
	query := fmt.Sprintf(
		"'%s' in parents and (mimeType = 'application/pdf' or mimeType = '%s') and trashed = false",
		folderID, ingest.MimeTypeGoogleDoc,
	)

	var files []ingest.DriveFile
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
		}

		for _, file := range resp.Files {
			files = append(files, ingest.DriveFile{
				ID:       file.Id,
				Name:     file.Name,
				MimeType: file.MimeType,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return files, nil
		}
	}
}

// Metadata fetches the name and MIME type of a single file.
func (c *Client) Metadata(ctx context.Context, fileID string) (*ingest.DriveFile, error) {
	file, err := c.svc.Files.Get(fileID).Fields("id, name, mimeType").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for file %s: %w", fileID, err)
	}
	return &ingest.DriveFile{
		ID:       file.Id,
		Name:     file.Name,
		MimeType: file.MimeType,
	}, nil
}

// Download writes a file's content to destPath. Native Google Docs are
// exported to DOCX; everything else is downloaded as-is.
func (c *Client) Download(ctx context.Context, fileID, destPath, mimeType string) error {
	var (
		resp *http.Response
		err  error
	)
	if mimeType == ingest.MimeTypeGoogleDoc {
		resp, err = c.svc.Files.Export(fileID, ExportMimeDocx).Context(ctx).Download()
	} else {
		resp, err = c.svc.Files.Get(fileID).Context(ctx).Download()
	}
	if err != nil {
		return fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	return out.Close()
}

// idPatterns match the ways a Drive file or folder ID appears in shared
// URLs, most specific first. The bare pattern accepts a raw ID pasted on
// its own.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/d/([a-zA-Z0-9_-]{25,})`),
	regexp.MustCompile(`id=([a-zA-Z0-9_-]{25,})`),
	regexp.MustCompile(`folders/([a-zA-Z0-9_-]{25,})`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{25,})$`),
}

// ExtractID pulls a file or folder ID out of a Drive URL. Input that matches
// no known URL shape is returned unchanged, on the assumption it is already
// an ID.
func ExtractID(input string) string {
	trimmed := strings.TrimSpace(input)
	for _, pattern := range idPatterns {
		if m := pattern.FindStringSubmatch(trimmed); m != nil {
			return m[1]
		}
	}
	return trimmed
}
