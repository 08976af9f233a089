package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-labs/docstream/internal/models"
)

func TestChunkStructuralOrderAndMetadata(t *testing.T) {
	bbox := models.BoundingBox{10, 20, 300, 60}
	elements := []models.StructuralElement{
		{ID: "e3", Type: models.ElementParagraph, Content: "second page body", Page: 2, Confidence: 0.8},
		{ID: "e1", Type: models.ElementTitle, Content: "Annual Report", Page: 1, BBox: &bbox, Confidence: 0.95},
		{ID: "e2", Type: models.ElementTableText, Content: "Q1 | Q2 | Q3", Page: 1, Confidence: 0.9},
	}
	e := NewEngine(nil)

	chunks := e.Chunk("doc-1", "ignored when structural", elements, SizeConfig{})

	require.Len(t, chunks, 3)

	// Pages ascend; indices are contiguous from 0.
	assert.Equal(t, "Annual Report", chunks[0].Content)
	assert.Equal(t, "Q1 | Q2 | Q3", chunks[1].Content)
	assert.Equal(t, "second page body", chunks[2].Content)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		require.NotNil(t, c.Page)
	}
	assert.Equal(t, 1, *chunks[0].Page)
	assert.Equal(t, 2, *chunks[2].Page)

	assert.Equal(t, models.ElementTitle, chunks[0].ElementType)
	assert.Equal(t, &bbox, chunks[0].BBox)
	assert.Equal(t, true, chunks[0].Metadata["primary_title"])
	assert.Equal(t, "e1", chunks[0].Metadata["element_id"])
	assert.Equal(t, 0.95, chunks[0].Metadata["confidence"])

	assert.Equal(t, true, chunks[1].Metadata["data_table"])
	assert.NotContains(t, chunks[2].Metadata, "primary_title")
}

func TestChunkStructuralOnlyFirstTitleFlagged(t *testing.T) {
	elements := []models.StructuralElement{
		{Type: models.ElementTitle, Content: "Main Title", Page: 1, Confidence: 0.9},
		{Type: models.ElementTitle, Content: "Repeated Title", Page: 2, Confidence: 0.9},
	}
	e := NewEngine(nil)

	chunks := e.Chunk("doc-1", "", elements, SizeConfig{})

	require.Len(t, chunks, 2)
	assert.Equal(t, true, chunks[0].Metadata["primary_title"])
	assert.NotContains(t, chunks[1].Metadata, "primary_title")
}

func TestChunkStructuralSkipsEmptyElements(t *testing.T) {
	elements := []models.StructuralElement{
		{Type: models.ElementParagraph, Content: "real content", Page: 1, Confidence: 0.9},
		{Type: models.ElementParagraph, Content: "   \n ", Page: 1, Confidence: 0.9},
		{Type: models.ElementParagraph, Content: "more content", Page: 1, Confidence: 0.9},
	}
	e := NewEngine(nil)

	chunks := e.Chunk("doc-1", "", elements, SizeConfig{})

	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestChunkFallsBackToWindowWhenElementsUnusable(t *testing.T) {
	elements := []models.StructuralElement{
		{Type: models.ElementParagraph, Content: "   ", Page: 1},
		{Type: models.ElementParagraph, Content: "", Page: 2},
	}
	text := "This body text should still get chunked even though layout analysis returned nothing usable."
	e := NewEngine(nil)
	cfg := SizeConfig{Size: 50, Overlap: 10}

	fromElements := e.Chunk("doc-1", text, elements, cfg)
	fromWindow := e.Chunk("doc-1", text, nil, cfg)

	require.Equal(t, len(fromWindow), len(fromElements))
	for i := range fromWindow {
		assert.Equal(t, fromWindow[i].Content, fromElements[i].Content)
		assert.Equal(t, fromWindow[i].Metadata, fromElements[i].Metadata)
	}
}
