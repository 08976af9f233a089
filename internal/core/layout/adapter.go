// Package layout adapts an external layout-analysis provider into typed
// structural elements. The whole package fails soft: no provider problem is
// ever fatal to document processing.
package layout

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/veridian-labs/docstream/internal/core"
	"github.com/veridian-labs/docstream/internal/core/extract"
	"github.com/veridian-labs/docstream/internal/models"
)

// elementTypeMap collapses vendor vocabulary onto the internal enum. Unknown
// types fall back to paragraph rather than failing extraction.
var elementTypeMap = map[string]models.ElementType{
	"title":          models.ElementTitle,
	"header":         models.ElementHeader,
	"page_header":    models.ElementHeader,
	"footer":         models.ElementFooter,
	"page_footer":    models.ElementFooter,
	"paragraph":      models.ElementParagraph,
	"text":           models.ElementParagraph,
	"table":          models.ElementTableText,
	"table_text":     models.ElementTableText,
	"figure":         models.ElementFigureCaption,
	"caption":        models.ElementFigureCaption,
	"figure_caption": models.ElementFigureCaption,
	"list_item":      models.ElementListItem,
	"list-item":      models.ElementListItem,
	"footnote":       models.ElementFootnote,
}

// Adapter calls the layout provider for PDFs and normalizes what comes back.
type Adapter struct {
	provider core.LayoutProvider
	opts     core.LayoutOptions
	logger   *slog.Logger
}

// NewAdapter wires a provider. A nil provider is allowed; Analyze then always
// returns nil, which selects sliding-window chunking downstream.
func NewAdapter(provider core.LayoutProvider, opts core.LayoutOptions, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{provider: provider, opts: opts, logger: logger}
}

// Analyze runs layout analysis over a PDF and returns normalized elements.
// Non-PDF input and every provider failure return nil, nil: the caller treats
// a nil element list as "chunk by sliding window instead".
func (a *Adapter) Analyze(ctx context.Context, documentID string, data []byte, mimeType string) ([]models.StructuralElement, error) {
	if a.provider == nil {
		return nil, nil
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), extract.MimePDF) {
		return nil, nil
	}

	raw, err := a.provider.AnalyzeLayout(ctx, documentID, data, a.opts)
	if err != nil {
		a.logger.Warn("layout analysis failed; falling back to sliding-window chunking",
			"document_id", documentID, "err", err)
		return nil, nil
	}

	elements := make([]models.StructuralElement, 0, len(raw))
	for _, r := range raw {
		if r.Confidence < a.opts.MinConfidence {
			continue
		}
		elements = append(elements, models.StructuralElement{
			ID:         r.ID,
			Type:       a.mapElementType(documentID, r.Type),
			Content:    r.Content,
			ImageURL:   r.ImageURL,
			Page:       r.Page,
			BBox:       normalizeBounds(r.Bounds),
			Confidence: r.Confidence,
		})
	}
	return elements, nil
}

func (a *Adapter) mapElementType(documentID, vendorType string) models.ElementType {
	if t, ok := elementTypeMap[strings.ToLower(strings.TrimSpace(vendorType))]; ok {
		return t
	}
	a.logger.Warn("unrecognized layout element type; treating as paragraph",
		"document_id", documentID, "vendor_type", vendorType)
	return models.ElementParagraph
}

// cornerBounds is the named-corner shape some providers return instead of a
// flat 4-number array.
type cornerBounds struct {
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
	X2 *float64 `json:"x2"`
	Y2 *float64 `json:"y2"`
	// Alternate corner naming.
	Left   *float64 `json:"left"`
	Top    *float64 `json:"top"`
	Right  *float64 `json:"right"`
	Bottom *float64 `json:"bottom"`
}

// normalizeBounds accepts a 4-number array or a named-corner object. Anything
// else means "no spatial metadata" and becomes nil, never an error.
func normalizeBounds(raw json.RawMessage) *models.BoundingBox {
	if len(raw) == 0 {
		return nil
	}

	var arr []float64
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) != 4 {
			return nil
		}
		box := models.BoundingBox{arr[0], arr[1], arr[2], arr[3]}
		return &box
	}

	var c cornerBounds
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	if c.X1 != nil && c.Y1 != nil && c.X2 != nil && c.Y2 != nil {
		box := models.BoundingBox{*c.X1, *c.Y1, *c.X2, *c.Y2}
		return &box
	}
	if c.Left != nil && c.Top != nil && c.Right != nil && c.Bottom != nil {
		box := models.BoundingBox{*c.Left, *c.Top, *c.Right, *c.Bottom}
		return &box
	}
	return nil
}
