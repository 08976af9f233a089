// Package chunker splits extracted text into ordered, retrievable chunks.
// Two interchangeable strategies exist: structural (aligned to detected layout
// elements) and sliding-window (fixed-size character ranges with overlap).
package chunker

import (
	"log/slog"

	"github.com/veridian-labs/docstream/internal/models"
)

// Strategy identifies which chunking path a run will take. It is resolved once
// per document, not rediscovered stage by stage.
type Strategy string

const (
	StrategyWindow     Strategy = "sliding_window"
	StrategyStructural Strategy = "structural"
)

// Select picks the strategy for a run: structural whenever usable layout
// elements exist, sliding-window otherwise.
func Select(elements []models.StructuralElement) Strategy {
	if len(elements) > 0 {
		return StrategyStructural
	}
	return StrategyWindow
}

// SizeConfig tunes the sliding-window strategy.
//
// Size:    characters per window (default 500).
// Overlap: characters shared between consecutive windows (default 100).
type SizeConfig struct {
	Size    int
	Overlap int
}

func (c SizeConfig) normalize() SizeConfig {
	if c.Size <= 0 {
		c.Size = 500
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		c.Overlap = 100
		if c.Overlap >= c.Size {
			c.Overlap = c.Size / 5
		}
	}
	return c
}

// Engine produces chunk sequences. Chunk indices are assigned in strict
// production order starting at 0, with no gaps.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a chunking engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Chunk builds the chunk sequence for a document. When structural elements are
// available they drive chunking; if they yield nothing usable (e.g. every
// element was empty) the engine falls back to sliding windows over the full
// text, so the caller always gets the same set it would from the window
// strategy directly.
func (e *Engine) Chunk(documentID, text string, elements []models.StructuralElement, cfg SizeConfig) []models.Chunk {
	cfg = cfg.normalize()

	if Select(elements) == StrategyStructural {
		chunks := e.chunkStructural(documentID, elements)
		if len(chunks) > 0 {
			return chunks
		}
		e.logger.Warn("structural elements produced no chunks; falling back to sliding window",
			"document_id", documentID, "elements", len(elements))
	}
	return e.chunkWindow(documentID, text, cfg)
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
