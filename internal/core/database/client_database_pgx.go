package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/veridian-labs/docstream/internal/config"
	"github.com/veridian-labs/docstream/internal/core"
	"github.com/veridian-labs/docstream/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.StorageClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: sqlDB}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.FirstName, user.Email, user.PasswordHash)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, user_id, file_name, storage_url, content_type, source_type, status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.UserID, doc.FileName, doc.StorageURL, doc.ContentType, doc.SourceType, string(doc.Status))
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, storage_url, content_type, source_type, status, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	var status string
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.UserID, &d.FileName, &d.StorageURL, &d.ContentType, &d.SourceType, &status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Status = models.DocumentStatus(status)
	return &d, nil
}

func (c *DatabaseClient) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, storage_url, content_type, source_type, status, created_at, updated_at
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		var status string
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.FileName, &d.StorageURL, &d.ContentType, &d.SourceType, &status, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		d.Status = models.DocumentStatus(status)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, string(status))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// InsertExtractedContent replaces the content row and advances the document
// status in one transaction, so an observer never sees a status that
// contradicts the stored content.
func (c *DatabaseClient) InsertExtractedContent(ctx context.Context, content *models.ExtractedContent, newStatus models.DocumentStatus) error {
	if content == nil {
		return errors.New("nil extracted content")
	}
	if content.ID == "" {
		content.ID = uuid.NewString()
	}

	warnings, err := json.Marshal(content.Warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM extracted_contents WHERE document_id = $1`, content.DocumentID); err != nil {
		_ = tx.Rollback()
		return err
	}

	const ins = `
		INSERT INTO extracted_contents
			(id, document_id, text, page_count, char_count, word_count, confidence, warnings, language, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`
	if _, err := tx.ExecContext(ctx, ins,
		content.ID, content.DocumentID, content.Text, content.PageCount, content.CharCount,
		content.WordCount, content.Confidence, warnings, content.Language); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := updateStatusTx(ctx, tx, content.DocumentID, newStatus); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (c *DatabaseClient) GetExtractedContent(ctx context.Context, documentID string) (*models.ExtractedContent, error) {
	const q = `
		SELECT id, document_id, text, page_count, char_count, word_count, confidence, warnings, language, created_at
		FROM extracted_contents
		WHERE document_id = $1
	`
	var ec models.ExtractedContent
	var warnings []byte
	err := c.db.QueryRowContext(ctx, q, documentID).Scan(
		&ec.ID, &ec.DocumentID, &ec.Text, &ec.PageCount, &ec.CharCount, &ec.WordCount,
		&ec.Confidence, &warnings, &ec.Language, &ec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &ec.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings: %w", err)
		}
	}
	return &ec, nil
}

// ReplaceChunkSet swaps a document's entire chunk set atomically. Deleting the
// old chunks cascades to their embeddings; the status update commits in the
// same transaction so readers never observe a partial set.
func (c *DatabaseClient) ReplaceChunkSet(ctx context.Context, documentID string, chunks []models.Chunk, newStatus models.DocumentStatus) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return err
	}

	const ins = `
		INSERT INTO document_chunks
			(id, document_id, position, content, token_count, element_type, page, bbox, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`
	stmt, err := tx.PrepareContext(ctx, ins)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if ch.ID == "" {
			ch.ID = uuid.NewString()
		}

		var elementType sql.NullString
		if ch.ElementType != "" {
			elementType = sql.NullString{String: string(ch.ElementType), Valid: true}
		}
		var page sql.NullInt64
		if ch.Page != nil {
			page = sql.NullInt64{Int64: int64(*ch.Page), Valid: true}
		}
		var bbox any
		if ch.BBox != nil {
			b, err := json.Marshal(ch.BBox)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("encode bbox: %w", err)
			}
			bbox = b
		}
		metadata, err := json.Marshal(ch.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			ch.ID, documentID, ch.Index, ch.Content, ch.TokenCount, elementType, page, bbox, metadata); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := updateStatusTx(ctx, tx, documentID, newStatus); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (c *DatabaseClient) GetChunksByDocument(ctx context.Context, documentID string) ([]models.Chunk, error) {
	const q = `
		SELECT id, document_id, position, content, token_count, element_type, page, bbox, metadata, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY position ASC
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		ch, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	return out, rows.Err()
}

// InsertEmbeddings writes one row per chunk. An empty newStatus leaves the
// document status alone (partial embedding runs keep the document at chunked).
func (c *DatabaseClient) InsertEmbeddings(ctx context.Context, documentID string, embeddings []models.ChunkEmbedding, newStatus models.DocumentStatus) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const ins = `
		INSERT INTO chunk_embeddings (id, chunk_id, embedding, model_name, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding, model_name = EXCLUDED.model_name
	`
	stmt, err := tx.PrepareContext(ctx, ins)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range embeddings {
		emb := &embeddings[i]
		if emb.ID == "" {
			emb.ID = uuid.NewString()
		}
		vec := pgvector.NewVector(emb.Vector)
		if _, err := stmt.ExecContext(ctx, emb.ID, emb.ChunkID, vec, emb.ModelName); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if newStatus != "" {
		if err := updateStatusTx(ctx, tx, documentID, newStatus); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// SearchChunks finds top-k similar chunks within a document for a query embedding.
func (c *DatabaseClient) SearchChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.Chunk, error) {
	const q = `
		SELECT ch.id, ch.document_id, ch.position, ch.content, ch.token_count,
		       ch.element_type, ch.page, ch.bbox, ch.metadata, ch.created_at
		FROM document_chunks ch
		JOIN chunk_embeddings emb ON emb.chunk_id = ch.id
		WHERE ch.document_id = $1
		ORDER BY emb.embedding <-> $2
		LIMIT $3
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, documentID, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		ch, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	return out, rows.Err()
}

func scanChunk(rows *sql.Rows) (*models.Chunk, error) {
	var ch models.Chunk
	var elementType sql.NullString
	var page sql.NullInt64
	var bbox, metadata []byte
	if err := rows.Scan(
		&ch.ID, &ch.DocumentID, &ch.Index, &ch.Content, &ch.TokenCount,
		&elementType, &page, &bbox, &metadata, &ch.CreatedAt,
	); err != nil {
		return nil, err
	}
	if elementType.Valid {
		ch.ElementType = models.ElementType(elementType.String)
	}
	if page.Valid {
		p := int(page.Int64)
		ch.Page = &p
	}
	if len(bbox) > 0 {
		var box models.BoundingBox
		if err := json.Unmarshal(bbox, &box); err == nil {
			ch.BBox = &box
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &ch.Metadata); err != nil {
			return nil, fmt.Errorf("decode chunk metadata: %w", err)
		}
	}
	return &ch, nil
}

func updateStatusTx(ctx context.Context, tx *sql.Tx, documentID string, status models.DocumentStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET status = $2, updated_at = now() WHERE id = $1`, documentID, string(status))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", documentID)
	}
	return nil
}

var _ core.StorageClient = (*DatabaseClient)(nil)
