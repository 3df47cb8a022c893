package vectorstore

import (
	"sort"

	"shopbot/internal/domain"
)

// Storage persists embedded documents and supports similarity search.
type Storage = domain.VectorStore

// SortResults orders results by score descending, breaking ties by insertion
// sequence so that earlier documents come first.
func SortResults(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.Seq < results[j].Document.Seq
	})
}

// SortBySeq orders documents by insertion sequence.
func SortBySeq(docs []domain.Document) {
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })
}

// CloneMetadata returns a copy of m that callers may keep.
func CloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
