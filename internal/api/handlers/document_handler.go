package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	middleware "github.com/veridian-labs/docstream/internal/api/middlewares"
	"github.com/veridian-labs/docstream/internal/core/pipeline"
	"github.com/veridian-labs/docstream/internal/services"
)

// maxUploadBytes caps multipart uploads at 50 MB.
const maxUploadBytes = 50 << 20

type DocumentHandler struct {
	docs   *services.DocumentService
	worker *pipeline.Worker
	runner *pipeline.Pipeline
}

func NewDocumentHandler(docs *services.DocumentService, worker *pipeline.Worker, runner *pipeline.Pipeline) *DocumentHandler {
	return &DocumentHandler{docs: docs, worker: worker, runner: runner}
}

// UploadDocument stores the file, creates the document row, and queues it for
// background processing.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "could not read file", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Strip any path components from the client-supplied name.
	cleanFilename := filepath.Base(header.Filename)

	doc, err := h.docs.UploadAndCreate(r.Context(), userID, cleanFilename, contentType, data, "upload")
	if err != nil {
		http.Error(w, "failed to store document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.worker.Enqueue(doc.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	documents, err := h.docs.ListByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documents)
}

// GetDocumentStatus reports where a document is in the pipeline.
func (h *DocumentHandler) GetDocumentStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "document_id"))
	if err != nil || doc == nil || doc.UserID != userID {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"document_id": doc.ID,
		"status":      string(doc.Status),
	})
}

// ReprocessDocument runs the pipeline synchronously for one document. The
// pipeline is resumable, so this continues from the first incomplete stage
// (or retries embedding for a document stuck at chunked).
func (h *DocumentHandler) ReprocessDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "document_id"))
	if err != nil || doc == nil || doc.UserID != userID {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	res := h.runner.Process(r.Context(), doc.ID)

	w.Header().Set("Content-Type", "application/json")
	if !res.Success {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	json.NewEncoder(w).Encode(res)
}
