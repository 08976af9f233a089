package chunker

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/veridian-labs/docstream/internal/models"
)

// chunkStructural emits one chunk per non-empty layout element, grouped by page
// in ascending order with within-page order preserved. Each chunk carries the
// element's type, page, bounding box, and provider confidence; the first title
// element and table text are flagged in metadata so embedding enrichment can
// tag them.
func (e *Engine) chunkStructural(documentID string, elements []models.StructuralElement) []models.Chunk {
	byPage := make(map[int][]models.StructuralElement)
	for _, el := range elements {
		byPage[el.Page] = append(byPage[el.Page], el)
	}

	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	var chunks []models.Chunk
	index := 0
	titleSeen := false
	for _, p := range pages {
		for _, el := range byPage[p] {
			if strings.TrimSpace(el.Content) == "" {
				continue
			}

			meta := map[string]any{
				"confidence": el.Confidence,
			}
			if el.ID != "" {
				meta["element_id"] = el.ID
			}
			if el.Type == models.ElementTitle && !titleSeen {
				meta["primary_title"] = true
				titleSeen = true
			}
			if el.Type == models.ElementTableText {
				meta["data_table"] = true
			}

			page := el.Page
			chunks = append(chunks, models.Chunk{
				ID:          uuid.NewString(),
				DocumentID:  documentID,
				Index:       index,
				Content:     el.Content,
				TokenCount:  approxTokens(el.Content),
				ElementType: el.Type,
				Page:        &page,
				BBox:        el.BBox,
				Metadata:    meta,
			})
			index++
		}
	}
	return chunks
}
