package ingest

import "errors"

// Metadata keys populated on every chunk.
const (
	MetaSource = "source"
	MetaPage   = "page"
	MetaID     = "id"
	MetaHash   = "hash"
)

var (
	// ErrBadChunking is returned for invalid chunk size/overlap configuration.
	ErrBadChunking = errors.New("invalid chunking configuration")
	// ErrUnsupportedType is returned when a remote file's MIME type is not
	// eligible for ingestion.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Document is raw source content plus its metadata. Documents are transient;
// they exist only between loading and splitting.
type Document struct {
	Text     string
	Metadata map[string]any
}

// Chunk is a bounded, addressable unit of indexed text. Once created a chunk
// is immutable; re-ingestion produces new chunks.
type Chunk struct {
	Text     string
	Metadata map[string]any
}

// ID returns the chunk's assigned identifier ("source:page:seq"), or "" if
// identity has not been assigned yet.
func (c *Chunk) ID() string {
	if id, ok := c.Metadata[MetaID].(string); ok {
		return id
	}
	return ""
}

// Hash returns the chunk's content hash, or "" if identity has not been
// assigned yet.
func (c *Chunk) Hash() string {
	if h, ok := c.Metadata[MetaHash].(string); ok {
		return h
	}
	return ""
}
