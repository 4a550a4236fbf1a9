package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// pointNamespace is the UUIDv5 namespace for chunk point IDs. Never change
// this value: point IDs derived from it identify existing chunks in the
// vector store, and re-ingesting the same content must map to the same
// points.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kitab://chunks"))

// assignIdentity populates the id and hash metadata on chunks, in emission
// order. Sequence counters are per source, 1-based, and scoped to a single
// call, so concurrent ingestions never share state.
func assignIdentity(chunks []Chunk) {
	counters := make(map[string]int)
	for i := range chunks {
		meta := chunks[i].Metadata
		if meta == nil {
			meta = make(map[string]any)
			chunks[i].Metadata = meta
		}

		source := "unknown"
		if s, ok := meta[MetaSource].(string); ok && s != "" {
			source = s
		}
		page := metaPage(meta)

		counters[source]++
		meta[MetaID] = fmt.Sprintf("%s:%d:%d", filepath.Base(source), page, counters[source])
		meta[MetaHash] = contentHash(chunks[i].Text)
	}
}

// contentHash hashes chunk text only; metadata does not contribute.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// pointID derives a deterministic point UUID from a chunk's identity, so
// re-ingesting identical content overwrites the same point instead of
// accumulating duplicates.
func pointID(chunkID, hash string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID+"\x00"+hash)).String()
}

func metaPage(meta map[string]any) int {
	switch p := meta[MetaPage].(type) {
	case int:
		return p
	case int64:
		return int(p)
	case float64:
		return int(p)
	default:
		return 0
	}
}
