package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// defaultSeparators are tried in order: paragraph breaks first, then line
// breaks, then words, then individual characters as a last resort.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter breaks text into chunks of at most chunkSize runes, preferring
// to split on the coarsest separator that appears in the text. Consecutive
// chunks share up to chunkOverlap runes of trailing context.
//
// Splitting is deterministic: the same input always yields the same chunks
// in the same order.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter creates a Splitter. Overlap must be strictly smaller than size.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrBadChunking, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be non-negative, got %d", ErrBadChunking, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrBadChunking, chunkOverlap, chunkSize)
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// Split breaks text into chunks. Sizes are measured in runes, not bytes, so
// multi-byte characters count as one unit. Chunks are trimmed of surrounding
// whitespace; empty chunks are dropped.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	return s.splitText(text, s.separators)
}

func (s *Splitter) splitText(text string, separators []string) []string {
	// Pick the first separator that appears in the text. The remaining,
	// finer separators are kept for re-splitting oversized pieces.
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	splits := splitOn(text, separator)

	var final []string
	var good []string
	for _, piece := range splits {
		if utf8.RuneCountInString(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		// Piece is too large on its own. Flush what we have, then
		// recurse with finer separators.
		if len(good) > 0 {
			final = append(final, s.mergeSplits(good, separator)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.mergeSplits(good, separator)...)
	}
	return final
}

// splitOn splits text on separator, dropping empty pieces. An empty
// separator splits into individual runes.
func splitOn(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(text, separator)
	}

	filtered := parts[:0]
	for _, p := range parts {
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// mergeSplits greedily packs small splits into chunks up to chunkSize runes,
// carrying up to chunkOverlap runes of trailing splits into the next chunk.
func (s *Splitter) mergeSplits(splits []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)

	var chunks []string
	var current []string
	total := 0
	for _, piece := range splits {
		pieceLen := utf8.RuneCountInString(piece)

		joinLen := 0
		if len(current) > 0 {
			joinLen = sepLen
		}
		if total+pieceLen+joinLen > s.chunkSize && len(current) > 0 {
			if chunk := joinChunk(current, separator); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Pop from the front until the carried tail fits the overlap
			// and leaves room for the new piece.
			for total > s.chunkOverlap ||
				(total+pieceLen+joinLen > s.chunkSize && total > 0) {
				dropped := utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					dropped += sepLen
				}
				total -= dropped
				current = current[1:]
				joinLen = 0
				if len(current) > 0 {
					joinLen = sepLen
				}
			}
		}

		current = append(current, piece)
		total += pieceLen
		if len(current) > 1 {
			total += sepLen
		}
	}
	if chunk := joinChunk(current, separator); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func joinChunk(parts []string, separator string) string {
	return strings.TrimSpace(strings.Join(parts, separator))
}
