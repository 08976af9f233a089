package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentStatus tracks a document's position in the processing pipeline.
// Transitions are monotonic except StatusError, which is reachable from any state.
type DocumentStatus string

const (
	StatusUploaded      DocumentStatus = "uploaded"
	StatusTextExtracted DocumentStatus = "text_extracted"
	StatusADEProcessed  DocumentStatus = "ade_processed"
	StatusChunked       DocumentStatus = "chunked"
	StatusProcessed     DocumentStatus = "processed"
	StatusError         DocumentStatus = "error"
)

// Document represents a user-uploaded file tracked through the pipeline.
type Document struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"user_id"`
	FileName    string         `db:"file_name" json:"file_name"`
	StorageURL  string         `db:"storage_url" json:"storage_url"` // S3 URL
	ContentType string         `db:"content_type" json:"content_type"`
	SourceType  string         `db:"source_type" json:"source_type"` // "upload" or "url"
	Status      DocumentStatus `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ExtractedContent is the normalized text pulled out of a document, 1:1 with
// the document. Reprocessing replaces the row transactionally; it is never
// mutated in place.
type ExtractedContent struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	Text       string    `db:"text" json:"text"`
	PageCount  int       `db:"page_count" json:"page_count"`
	CharCount  int       `db:"char_count" json:"char_count"`
	WordCount  int       `db:"word_count" json:"word_count"`
	Confidence float64   `db:"confidence" json:"confidence"`
	Warnings   []string  `db:"warnings" json:"warnings"`
	Language   string    `db:"language" json:"language"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ElementType is the closed vocabulary for layout elements. Vendor types are
// mapped onto it at the layout adapter boundary; nothing downstream sees raw
// vendor strings.
type ElementType string

const (
	ElementTitle         ElementType = "title"
	ElementHeader        ElementType = "header"
	ElementFooter        ElementType = "footer"
	ElementParagraph     ElementType = "paragraph"
	ElementTableText     ElementType = "table_text"
	ElementFigureCaption ElementType = "figure_caption"
	ElementListItem      ElementType = "list_item"
	ElementFootnote      ElementType = "footnote"
)

// BoundingBox is a normalized page-space rectangle: [x1, y1, x2, y2].
type BoundingBox [4]float64

// StructuralElement is a typed, positioned piece of content detected by layout
// analysis. It is transient: consumed during chunking, never persisted directly.
type StructuralElement struct {
	ID         string       `json:"id"`
	Type       ElementType  `json:"type"`
	Content    string       `json:"content"`
	ImageURL   string       `json:"image_url,omitempty"`
	Page       int          `json:"page"`
	BBox       *BoundingBox `json:"bbox,omitempty"`
	Confidence float64      `json:"confidence"`
}

// Chunk represents one retrievable unit of document text. Indices per document
// are contiguous starting at 0; the full set is replaced atomically on
// reprocessing.
type Chunk struct {
	ID          string         `db:"id" json:"id"`
	DocumentID  string         `db:"document_id" json:"document_id"`
	Index       int            `db:"position" json:"index"`
	Content     string         `db:"content" json:"content"`
	TokenCount  int            `db:"token_count" json:"token_count"`
	ElementType ElementType    `db:"element_type" json:"element_type,omitempty"`
	Page        *int           `db:"page" json:"page,omitempty"`
	BBox        *BoundingBox   `db:"bbox" json:"bbox,omitempty"`
	Metadata    map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// ChunkEmbedding is the vector for one chunk (1:1). Deleted by cascade when its
// chunk is deleted.
type ChunkEmbedding struct {
	ID        string    `db:"id" json:"id"`
	ChunkID   string    `db:"chunk_id" json:"chunk_id"`
	Vector    []float32 `db:"embedding" json:"vector"`
	ModelName string    `db:"model_name" json:"model_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
