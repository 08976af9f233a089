// Package embedder generates vectors for chunk batches, enriching each chunk's
// text with structural context before it reaches the embedding provider.
package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/veridian-labs/docstream/internal/core"
	"github.com/veridian-labs/docstream/internal/models"
)

// DefaultBatchSize bounds request payload and memory per embedding call.
const DefaultBatchSize = 25

// PlaceholderModel marks vectors produced without a real provider. Rows with
// this model name are a degraded-environment stopgap, not semantic embeddings.
const PlaceholderModel = "placeholder-deterministic-v1"

// Generator batches chunks and turns them into ChunkEmbedding rows.
type Generator struct {
	provider  core.EmbeddingProvider // nil selects the placeholder path
	batchSize int
	dim       int
	logger    *slog.Logger
}

// NewGenerator creates a Generator. dim is only used for placeholder vectors;
// a real provider decides its own dimension.
func NewGenerator(provider core.EmbeddingProvider, batchSize, dim int, logger *slog.Logger) *Generator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if dim <= 0 {
		dim = 768
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{provider: provider, batchSize: batchSize, dim: dim, logger: logger}
}

var _ core.EmbeddingProvider = (*Generator)(nil)

// EmbedTexts embeds raw texts, delegating to the provider or falling back to
// placeholder vectors. Query-time embeddings therefore always come from the
// same model that produced the stored vectors.
func (g *Generator) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if g.provider != nil {
		return g.provider.EmbedTexts(ctx, texts)
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = placeholderVector(t, g.dim)
	}
	return vecs, nil
}

// ModelName reports which model identifier generated vectors will carry.
func (g *Generator) ModelName() string {
	if g.provider == nil {
		return PlaceholderModel
	}
	return g.provider.ModelName()
}

// Generate embeds chunks in fixed-size batches. A failing batch is logged and
// skipped so the remaining batches still go through; the number of failed
// batches is returned alongside the embeddings. The error is non-nil only when
// the context is canceled.
func (g *Generator) Generate(ctx context.Context, chunks []models.Chunk) ([]models.ChunkEmbedding, int, error) {
	if len(chunks) == 0 {
		return nil, 0, nil
	}

	model := g.ModelName()
	out := make([]models.ChunkEmbedding, 0, len(chunks))
	failed := 0

	for start := 0; start < len(chunks); start += g.batchSize {
		if err := ctx.Err(); err != nil {
			return out, failed, err
		}

		end := start + g.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = EnrichText(batch[i])
		}

		var vecs [][]float32
		if g.provider == nil {
			vecs = make([][]float32, len(texts))
			for i, t := range texts {
				vecs[i] = placeholderVector(t, g.dim)
			}
		} else {
			var err error
			vecs, err = g.provider.EmbedTexts(ctx, texts)
			if err == nil && len(vecs) != len(batch) {
				err = fmt.Errorf("embedding count mismatch: got %d want %d", len(vecs), len(batch))
			}
			if err != nil {
				if ctx.Err() != nil {
					return out, failed, ctx.Err()
				}
				g.logger.Warn("embedding batch failed; skipping",
					"batch_start", start, "batch_size", len(batch), "err", err)
				failed++
				continue
			}
		}

		for i := range batch {
			out = append(out, models.ChunkEmbedding{
				ID:        uuid.NewString(),
				ChunkID:   batch[i].ID,
				Vector:    vecs[i],
				ModelName: model,
			})
		}
	}
	return out, failed, nil
}

// EnrichText builds the text actually sent to the embedding model: structural
// tags, element type, and page prefixes improve retrieval relevance without
// changing the stored chunk content.
func EnrichText(c models.Chunk) string {
	var parts []string
	if flag, ok := c.Metadata["primary_title"].(bool); ok && flag {
		parts = append(parts, "[DOCUMENT TITLE]")
	}
	if flag, ok := c.Metadata["data_table"].(bool); ok && flag {
		parts = append(parts, "[DATA TABLE]")
	}
	if c.ElementType != "" {
		parts = append(parts, "["+strings.ToUpper(string(c.ElementType))+"]")
	}
	if c.Page != nil {
		parts = append(parts, fmt.Sprintf("Page %d:", *c.Page))
	}
	parts = append(parts, c.Content)
	return strings.Join(parts, " ")
}

// placeholderVector derives a deterministic, non-semantic vector from the text.
// Identical text always maps to the identical vector.
func placeholderVector(text string, dim int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	x := h.Sum64()

	vec := make([]float32, dim)
	for i := range vec {
		x = x*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int32(x>>32)) / float32(1<<31) // [-1, 1)
	}
	return vec
}
