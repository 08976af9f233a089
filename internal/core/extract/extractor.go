// Package extract turns uploaded document bytes into clean, scored text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/veridian-labs/docstream/internal/core/retry"
)

var (
	// ErrUnsupportedFormat means the mime type has no extraction path. Fatal,
	// never retried.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrCorruptInput means pre-validation rejected the bytes before any
	// extraction attempt. Fatal, never retried.
	ErrCorruptInput = errors.New("document is empty or corrupt")
)

// minPDFSize is the smallest byte count a real PDF can plausibly have. Anything
// under it is rejected up front instead of burning retry attempts.
const minPDFSize = 100

// Supported mime types after parameter stripping.
const (
	MimePDF      = "application/pdf"
	MimeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDoc      = "application/msword"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
)

// Result is the outcome of text extraction. Persistence is the caller's job.
type Result struct {
	Text       string
	PageCount  int
	CharCount  int
	WordCount  int
	Confidence float64
	Warnings   []string
	Language   string
}

// converter runs the actual document conversion. Overridable in tests so the
// retry and dispatch logic can be exercised without real PDFs.
type converter func(data []byte, mimeType string) (body string, meta map[string]string, err error)

// TextExtractor dispatches extraction by mime type and wraps the flaky PDF path
// in bounded retries with exponential backoff.
type TextExtractor struct {
	maxRetries  int
	backoffBase time.Duration
	convert     converter
	logger      *slog.Logger
}

// Option configures a TextExtractor.
type Option func(*TextExtractor)

// WithMaxRetries bounds PDF extraction attempts. Default is 3.
func WithMaxRetries(n int) Option {
	return func(e *TextExtractor) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithBackoffBase overrides the backoff unit. Default is 1s, which yields
// 2s, 4s, 8s between attempts.
func WithBackoffBase(d time.Duration) Option {
	return func(e *TextExtractor) {
		if d > 0 {
			e.backoffBase = d
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *TextExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func withConverter(c converter) Option {
	return func(e *TextExtractor) { e.convert = c }
}

// NewTextExtractor builds an extractor backed by docconv.
func NewTextExtractor(opts ...Option) *TextExtractor {
	e := &TextExtractor{
		maxRetries:  3,
		backoffBase: time.Second,
		convert:     docconvConvert,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract pulls normalized text out of data according to mimeType. Unsupported
// types fail fast with ErrUnsupportedFormat. The result carries counts, a
// deterministic confidence score with warnings, and a language tag.
func (e *TextExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	switch normalizeMime(mimeType) {
	case MimePDF:
		return e.extractPDF(ctx, data)
	case MimeDocx, MimeDoc:
		return e.extractDocx(ctx, data, normalizeMime(mimeType))
	case MimeText:
		return finishPlain(Clean(string(data))), nil
	case MimeMarkdown:
		return finishPlain(CleanMarkdown(string(data))), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}
}

// extractPDF validates size, then retries conversion with exponential backoff.
// A file that fails every attempt surfaces an "after N attempts" error.
func (e *TextExtractor) extractPDF(ctx context.Context, data []byte) (*Result, error) {
	if len(data) < minPDFSize {
		return nil, fmt.Errorf("%w: %d bytes is below the minimum PDF size", ErrCorruptInput, len(data))
	}

	var body string
	var meta map[string]string
	attempt := 0
	err := retry.Do(ctx, func() error {
		attempt++
		var convErr error
		body, meta, convErr = e.convert(data, MimePDF)
		if convErr != nil {
			e.logger.Warn("pdf extraction attempt failed",
				"attempt", attempt, "max_attempts", e.maxRetries, "err", convErr)
		}
		return convErr
	}, e.maxRetries, retry.Exponential(e.backoffBase))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("pdf extraction failed after %d attempts: %w", e.maxRetries, err)
	}

	pages := pageCountFromMeta(meta)
	if pages == 0 {
		// pdftotext separates pages with form feeds.
		pages = strings.Count(body, "\f") + 1
	}

	res := finishPlain(Clean(body))
	res.PageCount = pages
	return res, nil
}

func (e *TextExtractor) extractDocx(ctx context.Context, data []byte, mime string) (*Result, error) {
	body, _, err := e.convert(data, mime)
	if err != nil {
		return nil, fmt.Errorf("docx extraction failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return finishPlain(Clean(body)), nil
}

// finishPlain derives counts, confidence, and language for cleaned text.
func finishPlain(text string) *Result {
	confidence, warnings := scoreQuality(text)
	return &Result{
		Text:       text,
		CharCount:  len([]rune(text)),
		WordCount:  len(strings.Fields(text)),
		Confidence: confidence,
		Warnings:   warnings,
		Language:   detectLanguage(text),
	}
}

// normalizeMime drops parameters ("text/plain; charset=utf-8" -> "text/plain")
// and collapses known aliases.
func normalizeMime(mimeType string) string {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "text/x-markdown" {
		return MimeMarkdown
	}
	return m
}

func pageCountFromMeta(meta map[string]string) int {
	for _, key := range []string{"Pages", "PageCount", "xmpTPg:NPages"} {
		if v, ok := meta[key]; ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}
