package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-labs/docstream/internal/models"
)

func TestChunkWindowOffsets(t *testing.T) {
	text := strings.Repeat("abcdefghij", 100) // 1000 chars
	e := NewEngine(nil)

	chunks := e.Chunk("doc-1", text, nil, SizeConfig{Size: 500, Overlap: 100})

	require.Len(t, chunks, 3)

	starts := []int{0, 400, 800}
	ends := []int{500, 900, 1000}
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, starts[i], c.Metadata["start_offset"])
		assert.Equal(t, ends[i], c.Metadata["end_offset"])
		assert.Equal(t, ends[i]-starts[i], len([]rune(c.Content)))
		assert.Equal(t, (len([]rune(c.Content))+3)/4, c.TokenCount)
	}

	// Consecutive chunks share exactly the overlap region.
	assert.Equal(t, chunks[0].Content[400:], chunks[1].Content[:100])
}

func TestChunkWindowShortText(t *testing.T) {
	e := NewEngine(nil)

	chunks := e.Chunk("doc-1", "short document body", nil, SizeConfig{Size: 500, Overlap: 100})

	require.Len(t, chunks, 1)
	assert.Equal(t, "short document body", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Metadata["start_offset"])
	assert.Equal(t, 19, chunks[0].Metadata["end_offset"])
}

func TestChunkWindowEmptyText(t *testing.T) {
	e := NewEngine(nil)

	assert.Empty(t, e.Chunk("doc-1", "", nil, SizeConfig{}))
}

func TestChunkWindowWhitespaceTailDropped(t *testing.T) {
	text := strings.Repeat("x", 10) + strings.Repeat(" ", 20)
	e := NewEngine(nil)

	chunks := e.Chunk("doc-1", text, nil, SizeConfig{Size: 12, Overlap: 2})

	require.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1]
	assert.NotEqual(t, "", strings.TrimSpace(last.Content))
	for i, c := range chunks {
		assert.Equal(t, i, c.Index, "indices must stay contiguous after skips")
	}
}

func TestChunkWindowDeterministicContent(t *testing.T) {
	text := strings.Repeat("the quick brown fox ", 60)
	e := NewEngine(nil)
	cfg := SizeConfig{Size: 300, Overlap: 50}

	a := e.Chunk("doc-1", text, nil, cfg)
	b := e.Chunk("doc-1", text, nil, cfg)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Content, b[i].Content)
		assert.Equal(t, a[i].Metadata, b[i].Metadata)
		assert.NotEqual(t, a[i].ID, b[i].ID, "ids are fresh per run")
	}
}

func TestChunkWindowRuneSafety(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 50)
	e := NewEngine(nil)

	chunks := e.Chunk("doc-1", text, nil, SizeConfig{Size: 100, Overlap: 20})

	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Content))
	}
}

func TestSizeConfigNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   SizeConfig
		want SizeConfig
	}{
		{"defaults", SizeConfig{}, SizeConfig{Size: 500, Overlap: 100}},
		{"kept as is", SizeConfig{Size: 200, Overlap: 40}, SizeConfig{Size: 200, Overlap: 40}},
		{"overlap too large", SizeConfig{Size: 80, Overlap: 90}, SizeConfig{Size: 80, Overlap: 16}},
		{"negative overlap", SizeConfig{Size: 500, Overlap: -1}, SizeConfig{Size: 500, Overlap: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.normalize())
		})
	}
}

func TestSelect(t *testing.T) {
	assert.Equal(t, StrategyWindow, Select(nil))
	assert.Equal(t, StrategyStructural, Select([]models.StructuralElement{{Content: "x"}}))
}
