// Package store holds the shop documents: it embeds text on insert and ranks
// stored documents against a query by cosine similarity.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"shopbot/internal/domain"
	"shopbot/internal/embedding"
	"shopbot/internal/vectorstore"
)

// ErrEmptyText is returned when a document without text is inserted.
var ErrEmptyText = errors.New("document text is empty")

// Store couples one embedder with one vector backend. All vectors in the
// backend come from that embedder, so they share a dimension.
type Store struct {
	mu       sync.Mutex
	embedder domain.Embedder
	backend  domain.VectorStore
	nextSeq  int
	newID    func(seq int) string
}

// New probes the embedder and initializes backend for its dimension. A failed
// probe is returned as is; callers treat it as fatal.
func New(ctx context.Context, embedder domain.Embedder, backend domain.VectorStore) (*Store, error) {
	dim, err := embedding.Probe(ctx, embedder)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(ctx, dim); err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	n, err := backend.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	return &Store{
		embedder: embedder,
		backend:  backend,
		nextSeq:  n,
		newID:    func(int) string { return "doc_" + uuid.NewString() },
	}, nil
}

// Insert embeds text and stores it with a copy of metadata.
func (s *Store) Insert(ctx context.Context, text string, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(ctx, text, metadata, s.newID)
}

func (s *Store) insert(ctx context.Context, text string, metadata map[string]string, newID func(int) string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed document: %w", err)
	}
	doc := domain.Document{
		ID:        newID(s.nextSeq),
		Text:      text,
		Metadata:  vectorstore.CloneMetadata(metadata),
		Embedding: vec,
		Seq:       s.nextSeq,
	}
	if err := s.backend.Add(ctx, doc); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	s.nextSeq++
	return doc.ID, nil
}

// Query returns the texts of the k documents most similar to text, most
// similar first. Equal scores keep insertion order.
func (s *Store) Query(ctx context.Context, text string, k int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k <= 0 {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.backend.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Document.Text)
	}
	return texts, nil
}

// ListAll returns every document in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.List(ctx)
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Count(ctx)
}

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }

func seedID(seq int) string { return "doc_" + strconv.Itoa(seq) }
