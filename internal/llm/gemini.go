package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"kitab/internal/contextutil"
)

// ErrGeneration is returned when the model fails to produce a response.
var ErrGeneration = errors.New("generation failed")

// Embedding task types. Documents and queries are embedded with different
// task hints so retrieval matches the indexing side.
const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// Client wraps the Gemini API for chat generation and text embeddings.
type Client struct {
	client      *genai.Client
	model       string
	embedModel  string
	vectorSize  int
	temperature float32
}

// NewClient creates a Gemini client. vectorSize is the expected embedding
// dimensionality; EmbedTexts rejects vectors of any other size.
func NewClient(ctx context.Context, apiKey, model, embedModel string, vectorSize int, temperature float32) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:      client,
		model:       model,
		embedModel:  embedModel,
		vectorSize:  vectorSize,
		temperature: temperature,
	}, nil
}

// Generate produces a completion for the user prompt under the given system
// instruction.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	temp := c.temperature
	config := &genai.GenerateContentConfig{
		Temperature:       &temp,
		SystemInstruction: genai.Text(system)[0],
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), config)
	if err != nil {
		logger.ErrorContext(ctx, "generation request failed", "model", c.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: model returned no candidates", ErrGeneration)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	answer := strings.TrimSpace(b.String())
	if answer == "" {
		return "", fmt.Errorf("%w: model returned empty text", ErrGeneration)
	}
	return answer, nil
}

// EmbedTexts embeds a batch of document texts, one vector per input, in
// order. Rejects empty input and vectors whose size does not match the
// configured dimensionality.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, texts, taskDocument)
}

// EmbedQuery embeds a single retrieval query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.Text(text)[0]
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		if len(embedding.Values) != c.vectorSize {
			return nil, fmt.Errorf("unexpected embedding size: got %d, want %d", len(embedding.Values), c.vectorSize)
		}
		vectors[i] = embedding.Values
	}
	return vectors, nil
}
