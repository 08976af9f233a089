package core

import (
	"context"
	"io"

	"github.com/veridian-labs/docstream/internal/models"
)

// StorageClient defines all persistence operations the pipeline and services
// need. It abstracts Postgres/pgvector so higher layers never depend on a
// specific DB. Stage-boundary writes (content, chunk set, embeddings) commit the
// payload and the document status update inside a single transaction.
type StorageClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error

	// InsertExtractedContent replaces any prior content row for the document and
	// moves the document to newStatus, in one transaction.
	InsertExtractedContent(ctx context.Context, content *models.ExtractedContent, newStatus models.DocumentStatus) error
	GetExtractedContent(ctx context.Context, documentID string) (*models.ExtractedContent, error)

	// ReplaceChunkSet atomically swaps the document's entire chunk set and moves
	// the document to newStatus. Readers never observe a partial set.
	ReplaceChunkSet(ctx context.Context, documentID string, chunks []models.Chunk, newStatus models.DocumentStatus) error
	GetChunksByDocument(ctx context.Context, documentID string) ([]models.Chunk, error)

	// InsertEmbeddings writes one row per chunk and moves the document to
	// newStatus in one transaction. An empty newStatus leaves the status alone
	// (used when some embedding batches failed and the document stays chunked).
	InsertEmbeddings(ctx context.Context, documentID string, embeddings []models.ChunkEmbedding, newStatus models.DocumentStatus) error

	SearchChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.Chunk, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
