package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"shopbot/internal/domain"
	"shopbot/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	docs      []domain.Document
	ids       map[string]struct{}
}

func NewStorage() *Storage { return &Storage{ids: make(map[string]struct{})} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension && len(s.docs) > 0 {
		return fmt.Errorf("store holds %d-dimensional vectors, got %d", s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Add(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("store not initialized")
	}
	if len(doc.Embedding) != s.dimension {
		return errors.New("vector dimension mismatch")
	}
	if _, dup := s.ids[doc.ID]; dup {
		return fmt.Errorf("duplicate document id %q", doc.ID)
	}
	doc.Metadata = vectorstore.CloneMetadata(doc.Metadata)
	s.ids[doc.ID] = struct{}{}
	s.docs = append(s.docs, doc)
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 || len(s.docs) == 0 {
		return nil, nil
	}
	// vectors are L2-normalized, so the dot product is the cosine similarity
	results := make([]domain.SearchResult, len(s.docs))
	for i := range s.docs {
		results[i] = domain.SearchResult{Document: s.docs[i], Score: dot(s.docs[i].Embedding, vector)}
	}
	vectorstore.SortResults(results)
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *Storage) List(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, len(s.docs))
	copy(out, s.docs)
	return out, nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *Storage) Close() error { return nil }

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
