package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type countingEmbedder struct {
	calls int
	fail  bool
}

func (c *countingEmbedder) Name() string   { return "counting" }
func (c *countingEmbedder) Dimension() int { return 3 }

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("model not loaded")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func TestCached_HitSkipsInner(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCached(inner, 16)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	first, err := c.Embed(ctx, "빵집")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	c.cache.Wait()
	second, err := c.Embed(ctx, "빵집")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}
	if first[0] != second[0] {
		t.Fatalf("cached vector differs: %v vs %v", first, second)
	}

	// Mutating a returned vector must not poison the cache.
	second[0] = 99
	c.cache.Wait()
	third, _ := c.Embed(ctx, "빵집")
	if third[0] == 99 {
		t.Fatal("cache returned a shared slice")
	}
}

func TestCached_RetainsUpToCapacity(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCached(inner, 1024)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	texts := make([]string, 100)
	for i := range texts {
		texts[i] = fmt.Sprintf("가게 %d", i)
		if _, err := c.Embed(ctx, texts[i]); err != nil {
			t.Fatalf("embed: %v", err)
		}
	}
	c.cache.Wait()
	for _, text := range texts {
		if _, err := c.Embed(ctx, text); err != nil {
			t.Fatalf("embed: %v", err)
		}
	}
	if inner.calls != len(texts) {
		t.Fatalf("expected %d inner calls, got %d", len(texts), inner.calls)
	}
}

func TestCached_PropagatesError(t *testing.T) {
	c, err := NewCached(&countingEmbedder{fail: true}, 0)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestProbe(t *testing.T) {
	dim, err := Probe(context.Background(), &countingEmbedder{})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if dim != 3 {
		t.Fatalf("expected dimension 3, got %d", dim)
	}
	if _, err := Probe(context.Background(), &countingEmbedder{fail: true}); err == nil {
		t.Fatal("expected probe failure")
	}
}
