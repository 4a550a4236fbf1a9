package rag

// AskRequest is a retrieval-augmented question.
type AskRequest struct {
	Question       string
	IncludeSources bool
}

// Source is an excerpt of a retrieved chunk plus its metadata, returned so
// callers can attribute an answer.
type Source struct {
	Excerpt  string         `json:"excerpt"`
	Metadata map[string]any `json:"metadata"`
}

// AskResponse carries the generated answer and, when requested, the sources
// that grounded it.
type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources,omitempty"`
}
