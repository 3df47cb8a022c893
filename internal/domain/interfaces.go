package domain

import "context"

// Document is a single shop description held by the document store.
type Document struct {
	ID        string
	Text      string
	Metadata  map[string]string
	Embedding []float32
	Seq       int
}

// SearchResult represents a matching document with a similarity score.
type SearchResult struct {
	Document Document
	Score    float64
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation log.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Embedder converts free text into a fixed-length vector.
// Every vector from one embedder has the same dimension.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists embedded documents and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Add(ctx context.Context, doc Document) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	List(ctx context.Context) ([]Document, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Message is a single chat message sent to a language model.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is one round trip to a language model.
type CompletionRequest struct {
	System      string
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float32
}

// Completer sends one completion request to a language model service.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
