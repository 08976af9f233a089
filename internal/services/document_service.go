package services

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/veridian-labs/docstream/internal/core"
	"github.com/veridian-labs/docstream/internal/models"
)

type DocumentService struct {
	db      core.StorageClient
	storage core.ObjectClient
	bucket  string
}

func NewDocumentService(db core.StorageClient, storage core.ObjectClient, bucket string) *DocumentService {
	return &DocumentService{db: db, storage: storage, bucket: bucket}
}

// UploadAndCreate stores the file bytes and creates the document row in
// "uploaded" state, ready for the pipeline to pick up.
func (s *DocumentService) UploadAndCreate(ctx context.Context, userID, filename, contentType string, data []byte, sourceType string) (*models.Document, error) {
	docID := uuid.NewString()
	key := s.objectKey(userID, docID, filename)

	url, err := s.storage.UploadFile(ctx, s.bucket, key, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:          docID,
		UserID:      userID,
		FileName:    filename,
		StorageURL:  url,
		ContentType: contentType,
		SourceType:  sourceType,
		Status:      models.StatusUploaded,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.db.GetDocumentByID(ctx, id)
}

func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	return s.db.ListDocumentsByUser(ctx, userID)
}

// objectKey creates a consistent S3 key layout.
func (s *DocumentService) objectKey(userID, docID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("users", userID, "documents", docID, filename)
}
