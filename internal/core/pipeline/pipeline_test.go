package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-labs/docstream/internal/config"
	"github.com/veridian-labs/docstream/internal/core"
	"github.com/veridian-labs/docstream/internal/core/chunker"
	"github.com/veridian-labs/docstream/internal/core/embedder"
	"github.com/veridian-labs/docstream/internal/core/extract"
	"github.com/veridian-labs/docstream/internal/core/layout"
	"github.com/veridian-labs/docstream/internal/models"
)

// fakeStore is an in-memory StorageClient that records status transitions.
type fakeStore struct {
	docs       map[string]*models.Document
	contents   map[string]*models.ExtractedContent
	chunks     map[string][]models.Chunk
	embeddings map[string][]models.ChunkEmbedding
	statusLog  []models.DocumentStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:       make(map[string]*models.Document),
		contents:   make(map[string]*models.ExtractedContent),
		chunks:     make(map[string][]models.Chunk),
		embeddings: make(map[string][]models.ChunkEmbedding),
	}
}

func (s *fakeStore) CreateUser(ctx context.Context, u *models.User) error { return nil }
func (s *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}

func (s *fakeStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	s.docs[doc.ID] = doc
	return nil
}

func (s *fakeStore) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (s *fakeStore) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	return nil, nil
}

func (s *fakeStore) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	doc.Status = status
	s.statusLog = append(s.statusLog, status)
	return nil
}

func (s *fakeStore) InsertExtractedContent(ctx context.Context, content *models.ExtractedContent, newStatus models.DocumentStatus) error {
	s.contents[content.DocumentID] = content
	return s.UpdateDocumentStatus(ctx, content.DocumentID, newStatus)
}

func (s *fakeStore) GetExtractedContent(ctx context.Context, documentID string) (*models.ExtractedContent, error) {
	return s.contents[documentID], nil
}

func (s *fakeStore) ReplaceChunkSet(ctx context.Context, documentID string, chunks []models.Chunk, newStatus models.DocumentStatus) error {
	s.chunks[documentID] = chunks
	s.embeddings[documentID] = nil
	return s.UpdateDocumentStatus(ctx, documentID, newStatus)
}

func (s *fakeStore) GetChunksByDocument(ctx context.Context, documentID string) ([]models.Chunk, error) {
	out := make([]models.Chunk, len(s.chunks[documentID]))
	copy(out, s.chunks[documentID])
	return out, nil
}

func (s *fakeStore) InsertEmbeddings(ctx context.Context, documentID string, embeddings []models.ChunkEmbedding, newStatus models.DocumentStatus) error {
	s.embeddings[documentID] = append(s.embeddings[documentID], embeddings...)
	if newStatus == "" {
		return nil
	}
	return s.UpdateDocumentStatus(ctx, documentID, newStatus)
}

func (s *fakeStore) SearchChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.Chunk, error) {
	return nil, nil
}

func (s *fakeStore) Close() error { return nil }

// fakeObjects serves a fixed byte payload for any key.
type fakeObjects struct {
	data  []byte
	calls int
	err   error
}

func (f *fakeObjects) UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (string, error) {
	return "", nil
}
func (f *fakeObjects) DeleteFile(ctx context.Context, bucket, key string) error { return nil }
func (f *fakeObjects) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}
func (f *fakeObjects) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return nil, nil
}

type fakeLayoutProvider struct {
	elements []core.RawLayoutElement
}

func (f *fakeLayoutProvider) AnalyzeLayout(ctx context.Context, documentID string, data []byte, opts core.LayoutOptions) ([]core.RawLayoutElement, error) {
	return f.elements, nil
}

// recordingEmbedProvider captures the exact texts sent for embedding.
type recordingEmbedProvider struct {
	texts []string
}

func (r *recordingEmbedProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	r.texts = append(r.texts, texts...)
	vecs := make([][]float32, len(texts))
	for i := range vecs {
		vecs[i] = make([]float32, 4)
	}
	return vecs, nil
}
func (r *recordingEmbedProvider) ModelName() string { return "recording-model" }

type failingEmbedProvider struct{}

func (failingEmbedProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding service down")
}
func (failingEmbedProvider) ModelName() string { return "broken-model" }

const sampleText = "The quarterly report covers revenue and expenses. " +
	"Revenue grew in every region this year. " +
	"Expenses stayed flat across all departments overall."

func seedDocument(store *fakeStore, status models.DocumentStatus, contentType string) *models.Document {
	doc := &models.Document{
		ID:          "doc-1",
		UserID:      "user-1",
		FileName:    "report.txt",
		StorageURL:  "https://test-bucket.s3.us-east-2.amazonaws.com/users/user-1/documents/doc-1/report.txt",
		ContentType: contentType,
		Status:      status,
	}
	store.docs[doc.ID] = doc
	return doc
}

func newTestPipeline(store *fakeStore, objects *fakeObjects, layoutProvider core.LayoutProvider, embedProvider core.EmbeddingProvider) *Pipeline {
	var adapter *layout.Adapter
	if layoutProvider != nil {
		adapter = layout.NewAdapter(layoutProvider, core.LayoutOptions{MinConfidence: 0.5}, nil)
	}
	return New(
		store,
		objects,
		extract.NewTextExtractor(),
		adapter,
		chunker.NewEngine(nil),
		embedder.NewGenerator(embedProvider, 25, 8, nil),
		nil,
		config.PipelineConfig{ChunkSize: 50, ChunkOverlap: 10},
		nil,
	)
}

func TestProcessFullRun(t *testing.T) {
	store := newFakeStore()
	seedDocument(store, models.StatusUploaded, "text/plain")
	objects := &fakeObjects{data: []byte(sampleText)}
	p := newTestPipeline(store, objects, nil, nil)

	res := p.Process(context.Background(), "doc-1")

	require.True(t, res.Success, "pipeline failed: %s", res.Message)
	assert.Equal(t, models.StatusProcessed, res.Status)
	assert.Equal(t, models.StatusProcessed, store.docs["doc-1"].Status)

	assert.Equal(t, []models.DocumentStatus{
		models.StatusTextExtracted,
		models.StatusChunked,
		models.StatusProcessed,
	}, store.statusLog)

	content := store.contents["doc-1"]
	require.NotNil(t, content)
	assert.Equal(t, "en", content.Language)
	assert.Greater(t, content.Confidence, 0.0)

	require.NotEmpty(t, store.chunks["doc-1"])
	assert.Equal(t, res.ChunkCount, len(store.chunks["doc-1"]))
	assert.Equal(t, res.EmbeddingCount, len(store.embeddings["doc-1"]))
	assert.Equal(t, len(store.chunks["doc-1"]), len(store.embeddings["doc-1"]))
	assert.Equal(t, 1, objects.calls, "the file should be fetched once and cached")
}

func TestProcessResumesFromChunked(t *testing.T) {
	store := newFakeStore()
	seedDocument(store, models.StatusChunked, "text/plain")
	store.chunks["doc-1"] = []models.Chunk{
		{ID: "c0", DocumentID: "doc-1", Index: 0, Content: "already chunked content"},
	}
	objects := &fakeObjects{err: errors.New("should not be called")}
	p := newTestPipeline(store, objects, nil, nil)

	res := p.Process(context.Background(), "doc-1")

	require.True(t, res.Success, "pipeline failed: %s", res.Message)
	assert.Equal(t, models.StatusProcessed, res.Status)
	assert.Equal(t, 0, objects.calls, "resume from chunked must not refetch the file")
	assert.Len(t, store.embeddings["doc-1"], 1)
}

func TestProcessUnsupportedFormatFails(t *testing.T) {
	store := newFakeStore()
	seedDocument(store, models.StatusUploaded, "application/zip")
	p := newTestPipeline(store, &fakeObjects{data: []byte("zip bytes")}, nil, nil)

	res := p.Process(context.Background(), "doc-1")

	assert.False(t, res.Success)
	assert.Equal(t, StageExtract, res.FailedStage)
	assert.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, models.StatusError, store.docs["doc-1"].Status)
}

func TestProcessDocumentNotFound(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store, &fakeObjects{}, nil, nil)

	res := p.Process(context.Background(), "missing")

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "document not found")
}

func TestProcessStructuralPath(t *testing.T) {
	store := newFakeStore()
	seedDocument(store, models.StatusTextExtracted, "application/pdf")
	store.contents["doc-1"] = &models.ExtractedContent{DocumentID: "doc-1", Text: sampleText}

	provider := &fakeLayoutProvider{elements: []core.RawLayoutElement{
		{ID: "e1", Type: "title", Content: "Quarterly Report", Page: 1, Confidence: 0.95},
		{ID: "e2", Type: "table", Content: "Q1 | Q2 | Q3", Page: 2, Confidence: 0.9},
	}}
	p := newTestPipeline(store, &fakeObjects{data: []byte("%PDF fake bytes")}, provider, nil)

	res := p.Process(context.Background(), "doc-1")

	require.True(t, res.Success, "pipeline failed: %s", res.Message)
	assert.Equal(t, models.StatusProcessed, res.Status)
	assert.Contains(t, store.statusLog, models.StatusADEProcessed)

	chunks := store.chunks["doc-1"]
	require.Len(t, chunks, 2)
	assert.Equal(t, models.ElementTitle, chunks[0].ElementType)
	assert.Equal(t, models.ElementTableText, chunks[1].ElementType)
}

func TestProcessEmbeddingFailureKeepsChunked(t *testing.T) {
	store := newFakeStore()
	seedDocument(store, models.StatusChunked, "text/plain")
	store.chunks["doc-1"] = []models.Chunk{
		{ID: "c0", DocumentID: "doc-1", Index: 0, Content: "some chunk"},
	}
	p := newTestPipeline(store, &fakeObjects{}, nil, failingEmbedProvider{})

	res := p.Process(context.Background(), "doc-1")

	require.True(t, res.Success, "skipped batches are not fatal")
	assert.Equal(t, models.StatusChunked, res.Status)
	assert.Equal(t, models.StatusChunked, store.docs["doc-1"].Status)
	assert.Empty(t, store.embeddings["doc-1"])
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "embedding batch")
}

func TestProcessStructuralTagsGatedByConfig(t *testing.T) {
	page := 1
	seedChunked := func() *fakeStore {
		store := newFakeStore()
		seedDocument(store, models.StatusChunked, "application/pdf")
		store.chunks["doc-1"] = []models.Chunk{{
			ID:          "c0",
			DocumentID:  "doc-1",
			Index:       0,
			Content:     "Annual Report",
			ElementType: models.ElementTitle,
			Page:        &page,
			Metadata:    map[string]any{"primary_title": true},
		}}
		return store
	}

	build := func(store *fakeStore, provider core.EmbeddingProvider, useADE bool) *Pipeline {
		return New(
			store, &fakeObjects{}, extract.NewTextExtractor(), nil,
			chunker.NewEngine(nil), embedder.NewGenerator(provider, 25, 8, nil),
			nil, config.PipelineConfig{UseADEForEmbedding: useADE}, nil,
		)
	}

	plain := &recordingEmbedProvider{}
	res := build(seedChunked(), plain, false).Process(context.Background(), "doc-1")
	require.True(t, res.Success, "pipeline failed: %s", res.Message)
	require.Len(t, plain.texts, 1)
	assert.Equal(t, "Annual Report", plain.texts[0])

	enriched := &recordingEmbedProvider{}
	res = build(seedChunked(), enriched, true).Process(context.Background(), "doc-1")
	require.True(t, res.Success, "pipeline failed: %s", res.Message)
	require.Len(t, enriched.texts, 1)
	assert.Equal(t, "[DOCUMENT TITLE] [TITLE] Page 1: Annual Report", enriched.texts[0])
}

func TestProcessEmptyContentFailsChunking(t *testing.T) {
	store := newFakeStore()
	seedDocument(store, models.StatusTextExtracted, "text/plain")
	store.contents["doc-1"] = &models.ExtractedContent{DocumentID: "doc-1", Text: ""}
	p := newTestPipeline(store, &fakeObjects{}, nil, nil)

	res := p.Process(context.Background(), "doc-1")

	assert.False(t, res.Success)
	assert.Equal(t, StageChunk, res.FailedStage)
	assert.Equal(t, models.StatusError, store.docs["doc-1"].Status)
}

func TestProcessSkipFlags(t *testing.T) {
	store := newFakeStore()
	seedDocument(store, models.StatusUploaded, "text/plain")
	p := New(
		store,
		&fakeObjects{data: []byte(sampleText)},
		extract.NewTextExtractor(),
		nil,
		chunker.NewEngine(nil),
		embedder.NewGenerator(nil, 25, 8, nil),
		nil,
		config.PipelineConfig{SkipChunking: true, SkipEmbedding: true},
		nil,
	)

	res := p.Process(context.Background(), "doc-1")

	require.True(t, res.Success)
	assert.Equal(t, models.StatusTextExtracted, res.Status)
	assert.Empty(t, store.chunks["doc-1"])
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	store := newFakeStore()
	seedDocument(store, models.StatusUploaded, "text/plain")
	p := newTestPipeline(store, &fakeObjects{data: []byte(sampleText)}, nil, nil)

	results := p.ProcessBatch(context.Background(), []string{"missing", "doc-1"})

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, models.StatusProcessed, store.docs["doc-1"].Status)
}

func TestParseS3URL(t *testing.T) {
	bucket, key := parseS3URL("https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf")
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "path/to/file.pdf", key)

	bucket, key = parseS3URL("https://lonely-bucket.s3.amazonaws.com")
	assert.Equal(t, "lonely-bucket", bucket)
	assert.Equal(t, "", key)
}
