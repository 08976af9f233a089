// Package pipeline sequences extraction, layout analysis, chunking, and
// embedding as a resumable state machine over document status.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/veridian-labs/docstream/internal/config"
	"github.com/veridian-labs/docstream/internal/core"
	"github.com/veridian-labs/docstream/internal/core/chunker"
	"github.com/veridian-labs/docstream/internal/core/embedder"
	"github.com/veridian-labs/docstream/internal/core/extract"
	"github.com/veridian-labs/docstream/internal/core/layout"
	"github.com/veridian-labs/docstream/internal/models"
)

// Stage names used for tracking and failure reporting.
const (
	StageExtract = "text_extraction"
	StageLayout  = "layout_analysis"
	StageChunk   = "chunking"
	StageEmbed   = "embedding"
)

// Result is what a caller gets back per document: success or the failing stage
// with a human-readable message. Progress already committed before a failure is
// retained, so a later retry resumes instead of redoing work.
type Result struct {
	DocumentID     string                `json:"document_id"`
	Success        bool                  `json:"success"`
	Status         models.DocumentStatus `json:"status"`
	FailedStage    string                `json:"failed_stage,omitempty"`
	Message        string                `json:"message,omitempty"`
	Warnings       []string              `json:"warnings,omitempty"`
	ChunkCount     int                   `json:"chunk_count"`
	EmbeddingCount int                   `json:"embedding_count"`
	Elapsed        time.Duration         `json:"elapsed"`
}

// Pipeline orchestrates the processing stages for one document at a time.
// Callers that want parallelism run Process concurrently for independent
// documents; documents share no mutable chunk or embedding state.
type Pipeline struct {
	store     core.StorageClient
	objects   core.ObjectClient
	extractor *extract.TextExtractor
	layout    *layout.Adapter
	chunks    *chunker.Engine
	embeds    *embedder.Generator
	tracker   StepTracker
	cfg       config.PipelineConfig
	logger    *slog.Logger
}

// New wires the orchestrator. tracker and logger may be nil.
func New(
	store core.StorageClient,
	objects core.ObjectClient,
	extractor *extract.TextExtractor,
	layoutAdapter *layout.Adapter,
	chunkEngine *chunker.Engine,
	embedGen *embedder.Generator,
	tracker StepTracker,
	cfg config.PipelineConfig,
	logger *slog.Logger,
) *Pipeline {
	if tracker == nil {
		tracker = nopTracker{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Pipeline{
		store:     store,
		objects:   objects,
		extractor: extractor,
		layout:    layoutAdapter,
		chunks:    chunkEngine,
		embeds:    embedGen,
		tracker:   tracker,
		cfg:       cfg,
		logger:    logger,
	}
}

// Process runs every stage whose status precondition the document currently
// meets. Re-invoking on a partially processed document continues from the
// first incomplete stage. A fatal stage failure forces the document to
// StatusError; this guarantee holds even if a stage forgets to do it itself.
func (p *Pipeline) Process(ctx context.Context, documentID string) *Result {
	started := time.Now()
	res := &Result{DocumentID: documentID}

	stage, err := p.run(ctx, documentID, res)
	res.Elapsed = time.Since(started)

	if err != nil {
		res.Success = false
		res.FailedStage = stage
		res.Message = err.Error()
		res.Status = models.StatusError
		p.tracker.FailStep(stage, err.Error())
		if uerr := p.store.UpdateDocumentStatus(ctx, documentID, models.StatusError); uerr != nil {
			p.logger.Error("failed to record error status", "document_id", documentID, "err", uerr)
		}
		return res
	}

	res.Success = true
	if p.cfg.ProcessingTimeout > 0 && res.Elapsed > p.cfg.ProcessingTimeout {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("processing took %s, over the configured %s timeout", res.Elapsed.Round(time.Second), p.cfg.ProcessingTimeout))
	}
	return res
}

// ProcessBatch runs the pipeline for each id sequentially. One document's
// failure never prevents processing of the others.
func (p *Pipeline) ProcessBatch(ctx context.Context, documentIDs []string) []Result {
	results := make([]Result, 0, len(documentIDs))
	for _, id := range documentIDs {
		results = append(results, *p.Process(ctx, id))
	}
	return results
}

// run executes the stage sequence and returns the failing stage name and error
// on any fatal failure.
func (p *Pipeline) run(ctx context.Context, documentID string, res *Result) (string, error) {
	doc, err := p.store.GetDocumentByID(ctx, documentID)
	if err != nil {
		return StageExtract, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return StageExtract, fmt.Errorf("document not found: %s", documentID)
	}

	status := doc.Status
	var fileData []byte
	fetchFile := func() ([]byte, error) {
		if fileData != nil {
			return fileData, nil
		}
		bucket, key := parseS3URL(doc.StorageURL)
		data, err := p.objects.GetFile(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("fetch document file: %w", err)
		}
		fileData = data
		return fileData, nil
	}

	// Stage 1: text extraction.
	if status == models.StatusUploaded && !p.cfg.SkipTextExtraction {
		p.tracker.StartStep(StageExtract)

		data, err := fetchFile()
		if err != nil {
			return StageExtract, err
		}

		extracted, err := p.extractor.Extract(ctx, data, doc.ContentType)
		if err != nil {
			return StageExtract, err
		}

		content := &models.ExtractedContent{
			DocumentID: documentID,
			Text:       extracted.Text,
			PageCount:  extracted.PageCount,
			CharCount:  extracted.CharCount,
			WordCount:  extracted.WordCount,
			Confidence: extracted.Confidence,
			Warnings:   extracted.Warnings,
			Language:   extracted.Language,
		}
		if err := p.store.InsertExtractedContent(ctx, content, models.StatusTextExtracted); err != nil {
			return StageExtract, fmt.Errorf("persist extracted content: %w", err)
		}

		status = models.StatusTextExtracted
		res.Warnings = append(res.Warnings, extracted.Warnings...)
		p.tracker.CompleteStep(StageExtract, map[string]any{
			"chars":      extracted.CharCount,
			"words":      extracted.WordCount,
			"pages":      extracted.PageCount,
			"confidence": extracted.Confidence,
		})
	}

	// Stage 2: layout analysis. Always soft: a nil element list just means the
	// chunking stage uses sliding windows. Elements are transient, so a resume
	// landing on ade_processed re-runs the analysis to regain them.
	var elements []models.StructuralElement
	if (status == models.StatusTextExtracted || status == models.StatusADEProcessed) &&
		!p.cfg.SkipLayoutAnalysis && p.layout != nil {
		p.tracker.StartStep(StageLayout)

		if data, err := fetchFile(); err == nil {
			elements, _ = p.layout.Analyze(ctx, documentID, data, doc.ContentType)
		} else {
			p.logger.Warn("could not fetch file for layout analysis", "document_id", documentID, "err", err)
		}

		if len(elements) > 0 {
			if status == models.StatusTextExtracted {
				if err := p.store.UpdateDocumentStatus(ctx, documentID, models.StatusADEProcessed); err != nil {
					return StageLayout, fmt.Errorf("record layout status: %w", err)
				}
				status = models.StatusADEProcessed
			}
			p.tracker.CompleteStep(StageLayout, map[string]any{"elements": len(elements)})
		} else {
			if strings.HasPrefix(doc.ContentType, extract.MimePDF) {
				res.Warnings = append(res.Warnings, "layout analysis unavailable; using sliding-window chunking")
			}
			p.tracker.CompleteStep(StageLayout, map[string]any{"elements": 0})
		}
	}

	// Stage 3: chunking.
	if (status == models.StatusTextExtracted || status == models.StatusADEProcessed) && !p.cfg.SkipChunking {
		p.tracker.StartStep(StageChunk)

		content, err := p.store.GetExtractedContent(ctx, documentID)
		if err != nil {
			return StageChunk, fmt.Errorf("load extracted content: %w", err)
		}
		if content == nil {
			return StageChunk, fmt.Errorf("no extracted content for document %s", documentID)
		}

		chunks := p.chunks.Chunk(documentID, content.Text, elements, chunker.SizeConfig{
			Size:    p.cfg.ChunkSize,
			Overlap: p.cfg.ChunkOverlap,
		})
		if len(chunks) == 0 {
			return StageChunk, fmt.Errorf("chunking produced no chunks for document %s", documentID)
		}

		if err := p.store.ReplaceChunkSet(ctx, documentID, chunks, models.StatusChunked); err != nil {
			return StageChunk, fmt.Errorf("persist chunks: %w", err)
		}

		status = models.StatusChunked
		res.ChunkCount = len(chunks)
		p.tracker.CompleteStep(StageChunk, map[string]any{
			"chunks":   len(chunks),
			"strategy": string(chunker.Select(elements)),
		})
	}

	// Stage 4: embedding. Batch failures are skipped, not fatal; the document
	// then stays at chunked so a later run can retry the missing vectors.
	if status == models.StatusChunked && !p.cfg.SkipEmbedding {
		p.tracker.StartStep(StageEmbed)

		chunks, err := p.store.GetChunksByDocument(ctx, documentID)
		if err != nil {
			return StageEmbed, fmt.Errorf("load chunks: %w", err)
		}

		// Structural tags reach the embedding model only when configured;
		// otherwise vectors are computed from plain chunk content.
		if !p.cfg.UseADEForEmbedding {
			for i := range chunks {
				chunks[i].ElementType = ""
				chunks[i].Page = nil
				chunks[i].Metadata = nil
			}
		}

		embeddings, failedBatches, err := p.embeds.Generate(ctx, chunks)
		if err != nil {
			return StageEmbed, err
		}

		newStatus := models.StatusProcessed
		if failedBatches > 0 {
			// Partial result: keep the document at chunked so embedding can be
			// retried without redoing earlier stages.
			newStatus = ""
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%d embedding batch(es) failed and were skipped; document remains chunked", failedBatches))
		}

		p.tracker.UpdateStepProgress(StageEmbed, 90, "persisting vectors")
		if err := p.store.InsertEmbeddings(ctx, documentID, embeddings, newStatus); err != nil {
			return StageEmbed, fmt.Errorf("persist embeddings: %w", err)
		}

		if newStatus != "" {
			status = newStatus
		}
		res.EmbeddingCount = len(embeddings)
		p.tracker.CompleteStep(StageEmbed, map[string]any{
			"embeddings":     len(embeddings),
			"failed_batches": failedBatches,
			"model":          p.embeds.ModelName(),
		})
	}

	res.Status = status
	return "", nil
}

// parseS3URL extracts the bucket and key from a virtual-hosted-style S3 URL.
// Example: https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf
func parseS3URL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		bucket = host[:i]
	}
	return bucket, key
}
