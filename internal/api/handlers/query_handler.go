package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	middleware "github.com/veridian-labs/docstream/internal/api/middlewares"
	"github.com/veridian-labs/docstream/internal/core"
	"github.com/veridian-labs/docstream/internal/models"
)

const defaultTopK = 5

type QueryHandler struct {
	store    core.StorageClient
	embedder core.EmbeddingProvider
	llm      core.LLMProvider
}

func NewQueryHandler(store core.StorageClient, emb core.EmbeddingProvider, llm core.LLMProvider) *QueryHandler {
	return &QueryHandler{store: store, embedder: emb, llm: llm}
}

type QueryRequest struct {
	DocumentID string `json:"document_id"`
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
}

type queryChunk struct {
	Content     string             `json:"content"`
	ElementType models.ElementType `json:"element_type,omitempty"`
	Page        *int               `json:"page,omitempty"`
}

// QueryDocument embeds the query, retrieves the nearest chunks for the
// document, and asks the LLM to answer from them.
func (h *QueryHandler) QueryDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserID(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}

	// Confirm document belongs to user and finished the pipeline.
	doc, err := h.store.GetDocumentByID(ctx, req.DocumentID)
	if err != nil || doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if doc.UserID != userID {
		http.Error(w, "you are not authorized to access this document", http.StatusForbidden)
		return
	}
	if doc.Status != models.StatusProcessed {
		http.Error(w, fmt.Sprintf("document not ready for querying (status: %s)", doc.Status), http.StatusConflict)
		return
	}

	// Embed the query
	vecs, err := h.embedder.EmbedTexts(ctx, []string{req.Query})
	if err != nil || len(vecs) == 0 {
		http.Error(w, fmt.Sprintf("embedding failed: %v", err), http.StatusInternalServerError)
		return
	}
	queryVec := vecs[0]

	// Retrieve top chunks
	chunks, err := h.store.SearchChunks(ctx, req.DocumentID, queryVec, req.TopK)
	if err != nil {
		http.Error(w, fmt.Sprintf("search failed: %v", err), http.StatusInternalServerError)
		return
	}

	// Build context prompt
	var sb strings.Builder
	sources := make([]queryChunk, 0, len(chunks))
	for _, ch := range chunks {
		sb.WriteString(ch.Content)
		sb.WriteString("\n---\n")
		sources = append(sources, queryChunk{Content: ch.Content, ElementType: ch.ElementType, Page: ch.Page})
	}

	if h.llm == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"sources": sources})
		return
	}

	systemPrompt := "You are an intelligent assistant answering based only on the given document content. If unsure, say 'I cannot find this in the document.'"
	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", sb.String(), req.Query)

	// Generate response
	answer, err := h.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		http.Error(w, fmt.Sprintf("LLM failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"answer":  answer,
		"sources": sources,
	})
}
