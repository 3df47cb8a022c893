package memory

import (
	"context"
	"testing"

	"shopbot/internal/domain"
)

func doc(id string, seq int, v ...float32) domain.Document {
	return domain.Document{ID: id, Text: "text " + id, Seq: seq, Embedding: v, Metadata: map[string]string{"source": id}}
}

func TestStorage_SearchOrdersByScoreThenSeq(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	if err := s.Init(ctx, 2); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, d := range []domain.Document{
		doc("a", 0, 0, 1),
		doc("b", 1, 1, 0),
		doc("c", 2, 1, 0),
		doc("d", 3, 0.6, 0.8),
	} {
		if err := s.Add(ctx, d); err != nil {
			t.Fatalf("add %s: %v", d.ID, err)
		}
	}

	res, err := s.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []string{"b", "c", "d"}
	if len(res) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(res))
	}
	for i, id := range want {
		if res[i].Document.ID != id {
			t.Errorf("result %d: expected %s, got %s", i, id, res[i].Document.ID)
		}
	}
}

func TestStorage_SearchBounds(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		docs int
		k    int
		want int
	}{
		{"empty store", 0, 3, 0},
		{"k larger than store", 2, 5, 2},
		{"zero k", 2, 0, 0},
		{"negative k", 2, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStorage()
			_ = s.Init(ctx, 2)
			for i := 0; i < tt.docs; i++ {
				_ = s.Add(ctx, doc(string(rune('a'+i)), i, 1, 0))
			}
			res, err := s.Search(ctx, []float32{1, 0}, tt.k)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(res) != tt.want {
				t.Fatalf("expected %d results, got %d", tt.want, len(res))
			}
		})
	}
}

func TestStorage_AddValidation(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	if err := s.Add(ctx, doc("a", 0, 1, 0)); err == nil {
		t.Fatal("expected error before init")
	}
	_ = s.Init(ctx, 2)
	if err := s.Add(ctx, doc("a", 0, 1, 0, 0)); err == nil {
		t.Fatal("expected dimension mismatch")
	}
	if err := s.Add(ctx, doc("a", 0, 1, 0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(ctx, doc("a", 1, 1, 0)); err == nil {
		t.Fatal("expected duplicate id error")
	}
	if err := s.Init(ctx, 3); err == nil {
		t.Fatal("expected re-init with another dimension to fail")
	}
}

func TestStorage_ListInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	_ = s.Init(ctx, 2)
	for i, id := range []string{"x", "y", "z"} {
		_ = s.Add(ctx, doc(id, i, 1, 0))
	}
	docs, _ := s.List(ctx)
	for i, id := range []string{"x", "y", "z"} {
		if docs[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, docs[i].ID)
		}
	}
	n, _ := s.Count(ctx)
	if n != 3 {
		t.Fatalf("expected count 3, got %d", n)
	}
}
