// Package handler accepts collection documents over HTTP and hands them to
// the publisher. Published documents become searchable after the next
// index build.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
)

const maxBodyBytes = 64 << 20

// DocumentPublisher is satisfied by *publisher.Publisher.
type DocumentPublisher interface {
	Publish(ctx context.Context, docs []ingestion.Document) error
}

type Handler struct {
	publisher DocumentPublisher
	logger    *slog.Logger
}

func New(pub DocumentPublisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    logger.WithComponent("ingestion-handler"),
	}
}

// Register mounts the ingestion routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
}

// Ingest accepts a single document object or an array of them. The batch
// is all-or-nothing: one invalid document or a repeated id rejects the
// request. Publishing a known id again replaces the earlier version.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	docs, err := decodeDocuments(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(docs) == 0 {
		h.writeError(w, http.StatusBadRequest, "no documents in request")
		return
	}
	for _, doc := range docs {
		if err := validator.ValidateDocument(doc); err != nil {
			var validationErr *validator.ValidationError
			if errors.As(err, &validationErr) {
				h.writeJSON(w, http.StatusBadRequest, map[string]any{
					"error":  "validation failed",
					"doc_id": validationErr.DocumentID,
					"fields": validationErr.Fields,
				})
				return
			}
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.publisher.Publish(ctx, docs); err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed", "documents", len(docs), "error", err, "status_code", status)
		message := "ingestion failed"
		if status < http.StatusInternalServerError {
			message = err.Error()
		}
		h.writeError(w, status, message)
		return
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	log.Info("documents ingested", "count", len(docs))
	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"document_ids": ids,
	})
}

func decodeDocuments(body io.Reader) ([]ingestion.Document, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		var docs []ingestion.Document
		err := json.Unmarshal(raw, &docs)
		return docs, err
	}
	var doc ingestion.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return []ingestion.Document{doc}, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
