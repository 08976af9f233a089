package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/veridian-labs/docstream/internal/models"
)

// chunkWindow splits text into fixed-size overlapping windows. Each chunk
// records its start/end character offsets; whitespace-only trailing windows are
// discarded. Running it twice over the same text and config yields an identical
// sequence (contents and offsets; ids are fresh).
func (e *Engine) chunkWindow(documentID, text string, cfg SizeConfig) []models.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := cfg.Size - cfg.Overlap
	if step <= 0 {
		step = cfg.Size
	}

	var chunks []models.Chunk
	index := 0
	for start := 0; start < len(runes); start += step {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}

		content := string(runes[start:end])
		if strings.TrimSpace(content) == "" {
			if end == len(runes) {
				break
			}
			continue
		}

		chunks = append(chunks, models.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Index:      index,
			Content:    content,
			TokenCount: approxTokens(content),
			Metadata: map[string]any{
				"start_offset": start,
				"end_offset":   end,
			},
		})
		index++

		if end == len(runes) {
			break
		}
	}
	return chunks
}
