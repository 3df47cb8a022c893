package retriever

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"shopbot/internal/observability"
)

// NoDataSentinel is the single context entry returned when nothing matches.
// The answer generator checks for it before doing any work.
const NoDataSentinel = "관련 데이터를 찾을 수 없습니다."

// DefaultTopK is used when Retrieve is called with a non-positive k.
const DefaultTopK = 3

// Searcher is the store operation the retriever needs.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]string, error)
}

// Retriever embeds a query through the store and returns matching texts.
type Retriever struct {
	store       Searcher
	defaultTopK int
}

// New creates a retriever. defaultTopK applies when Retrieve gets k <= 0.
func New(store Searcher, defaultTopK int) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Retriever{store: store, defaultTopK: defaultTopK}
}

// Retrieve returns up to k texts most similar to query, or a one-element
// slice holding NoDataSentinel when nothing matches.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = r.defaultTopK
	}
	ctx, span := observability.StartSpan(ctx, "retriever.retrieve", attribute.Int("retriever.top_k", k))
	defer span.End()

	texts, err := r.store.Query(ctx, query, k)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	span.SetAttributes(attribute.Int("retriever.hits", len(texts)))
	if len(texts) == 0 {
		return []string{NoDataSentinel}, nil
	}
	return texts, nil
}

// IsNoData reports whether texts is the no-results sentinel, or empty.
func IsNoData(texts []string) bool {
	return len(texts) == 0 || (len(texts) == 1 && texts[0] == NoDataSentinel)
}
