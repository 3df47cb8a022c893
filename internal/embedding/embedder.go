package embedding

import (
	"context"
	"errors"
	"fmt"

	"shopbot/internal/domain"
)

const probeText = "광진구 착한가게"

// Probe embeds a fixed text once and returns the vector dimension. It is run
// at startup: an embedder that fails here leaves the process unusable.
func Probe(ctx context.Context, e domain.Embedder) (int, error) {
	vec, err := e.Embed(ctx, probeText)
	if err != nil {
		return 0, fmt.Errorf("embedder %s unavailable: %w", e.Name(), err)
	}
	if len(vec) == 0 {
		return 0, errors.New("embedder " + e.Name() + " returned an empty vector")
	}
	return len(vec), nil
}
