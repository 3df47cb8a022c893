package chromem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"shopbot/internal/domain"
	"shopbot/internal/vectorstore"
)

const seqKey = "_seq"

// Storage keeps documents in an embedded chromem-go collection.
// chromem-go does not keep insertion order, so ids are tracked alongside.
type Storage struct {
	mu         sync.RWMutex
	db         *chromem.DB
	name       string
	collection *chromem.Collection
	dimension  int
	order      []string
}

// NewStorage creates a chromem-backed store for the named collection.
func NewStorage(collection string) *Storage {
	if collection == "" {
		collection = "gwangjin_shops"
	}
	return &Storage{db: chromem.NewDB(), name: collection}
}

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection != nil {
		if s.dimension != dimension {
			return fmt.Errorf("collection %s holds %d-dimensional vectors, got %d", s.name, s.dimension, dimension)
		}
		return nil
	}
	// No embedding func: every document and query arrives pre-embedded.
	col, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.collection = col
	s.dimension = dimension
	return nil
}

func (s *Storage) Add(ctx context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == nil {
		return errors.New("store not initialized")
	}
	if len(doc.Embedding) != s.dimension {
		return errors.New("vector dimension mismatch")
	}
	for _, id := range s.order {
		if id == doc.ID {
			return fmt.Errorf("duplicate document id %q", doc.ID)
		}
	}
	meta := vectorstore.CloneMetadata(doc.Metadata)
	meta[seqKey] = strconv.Itoa(doc.Seq)
	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Metadata:  meta,
		Embedding: doc.Embedding,
		Content:   doc.Text,
	})
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	s.order = append(s.order, doc.ID)
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil || topK <= 0 {
		return nil, nil
	}
	// chromem-go rejects nResults larger than the collection
	n := s.collection.Count()
	if n == 0 {
		return nil, nil
	}
	// Fetch every candidate so ties at the cut-off are resolved by seq, not
	// by chromem's internal order.
	hits, err := s.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.SearchResult{
			Document: toDocument(h.ID, h.Content, h.Metadata, h.Embedding),
			Score:    float64(h.Similarity),
		})
	}
	vectorstore.SortResults(results)
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *Storage) List(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return nil, nil
	}
	out := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		d, err := s.collection.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", id, err)
		}
		out = append(out, toDocument(d.ID, d.Content, d.Metadata, d.Embedding))
	}
	return out, nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return 0, nil
	}
	return s.collection.Count(), nil
}

// Close is a no-op: chromem-go keeps everything in memory.
func (s *Storage) Close() error { return nil }

func toDocument(id, content string, metadata map[string]string, embedding []float32) domain.Document {
	meta := vectorstore.CloneMetadata(metadata)
	seq, _ := strconv.Atoi(meta[seqKey])
	delete(meta, seqKey)
	return domain.Document{ID: id, Text: content, Metadata: meta, Embedding: embedding, Seq: seq}
}
