package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"kitab/internal/contextutil"
	"kitab/internal/vectorstore"
)

// DefaultTopK is how many chunks are retrieved per question unless
// configured otherwise.
const DefaultTopK = 4

// excerptLimit bounds source excerpts returned alongside answers.
const excerptLimit = 200

// systemPrompt frames every answer. Keeping the contact-redirection fallback
// in the prompt (rather than in code) lets the model phrase it naturally.
const systemPrompt = `You are a helpful assistant that answers questions using only the provided context.
Use the retrieved context below to answer the question.
If the context does not contain the answer, say that you cannot share that information here, and ask the visitor to leave an email address or another way to get in touch so the conversation can continue directly.
If the visitor provides contact information, thank them and say they will be contacted soon.
Be concise and accurate.`

// Embedder embeds a retrieval query.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion for a user prompt under a system
// instruction.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Engine answers questions over the indexed corpus.
type Engine interface {
	// Ask retrieves relevant chunks and generates an answer. Retrieval
	// always runs; an empty index yields an answer from the bare prompt.
	Ask(ctx context.Context, req AskRequest) (*AskResponse, error)

	// SetTopK changes how many chunks are retrieved per question. Values
	// below 1 reset to the default. Safe for concurrent use with Ask.
	SetTopK(k int)
}

type engine struct {
	embedder   Embedder
	store      vectorstore.VectorStore
	generator  Generator
	collection string

	mu   sync.RWMutex
	topK int
}

// NewEngine wires an Engine over the given collection.
func NewEngine(embedder Embedder, store vectorstore.VectorStore, generator Generator, collection string, topK int) Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &engine{
		embedder:   embedder,
		store:      store,
		generator:  generator,
		collection: collection,
		topK:       topK,
	}
}

func (e *engine) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	queryVec, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := e.store.Search(ctx, e.collection, queryVec, e.currentTopK())
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	answer, err := e.generator.Generate(ctx, promptWithContext(results), question)
	if err != nil {
		return nil, err
	}

	resp := &AskResponse{Answer: answer}
	if req.IncludeSources {
		resp.Sources = buildSources(results)
	}

	logger.InfoContext(ctx, "answered question", "retrieved", len(results), "with_sources", req.IncludeSources)
	return resp, nil
}

func (e *engine) SetTopK(k int) {
	if k <= 0 {
		k = DefaultTopK
	}
	e.mu.Lock()
	e.topK = k
	e.mu.Unlock()
}

func (e *engine) currentTopK() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.topK
}

// promptWithContext appends retrieved chunk texts to the system prompt,
// joined by blank lines, in retrieval order.
func promptWithContext(results []vectorstore.SearchResult) string {
	texts := make([]string, 0, len(results))
	for _, result := range results {
		if text, ok := result.Meta["text"].(string); ok && text != "" {
			texts = append(texts, text)
		}
	}
	return systemPrompt + "\n\nContext:\n" + strings.Join(texts, "\n\n")
}

// buildSources converts search results to attribution entries. Excerpts are
// truncated to excerptLimit runes with a trailing ellipsis; chunk text is
// excluded from the metadata.
func buildSources(results []vectorstore.SearchResult) []Source {
	sources := make([]Source, 0, len(results))
	for _, result := range results {
		text, _ := result.Meta["text"].(string)

		meta := make(map[string]any, len(result.Meta))
		for k, v := range result.Meta {
			if k == "text" {
				continue
			}
			meta[k] = v
		}

		sources = append(sources, Source{
			Excerpt:  truncate(text, excerptLimit),
			Metadata: meta,
		})
	}
	return sources
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
