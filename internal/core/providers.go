package core

import (
	"context"
	"encoding/json"
)

// EmbeddingProvider turns a batch of texts into fixed-dimension vectors.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// ModelName identifies the embedding model; stored alongside each vector so
	// placeholder and real embeddings can never be confused.
	ModelName() string
}

// LLMProvider generates grounded answers for the query endpoint.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// LayoutOptions tunes a layout-analysis request.
type LayoutOptions struct {
	ExtractTables      bool    `json:"extract_tables"`
	ExtractFigures     bool    `json:"extract_figures"`
	PreserveFormatting bool    `json:"preserve_formatting"`
	MinConfidence      float64 `json:"min_confidence"`
}

// RawLayoutElement is a layout element exactly as the vendor returned it.
// Type strings and bounds are vendor vocabulary; the layout adapter normalizes
// them before anything downstream sees them.
type RawLayoutElement struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Content    string          `json:"content"`
	ImageURL   string          `json:"image_url,omitempty"`
	Page       int             `json:"page"`
	Bounds     json.RawMessage `json:"bbox,omitempty"`
	Confidence float64         `json:"confidence"`
}

// LayoutProvider is the external layout-analysis service. Implementations call
// out over the network; callers must treat every failure as recoverable.
type LayoutProvider interface {
	AnalyzeLayout(ctx context.Context, documentID string, data []byte, opts LayoutOptions) ([]RawLayoutElement, error)
}
