package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"campusassist/internal/apperr"
	appMiddleware "campusassist/internal/api/middlewares"
	"campusassist/internal/config"
	"campusassist/internal/core"
	"campusassist/internal/core/ingestion"
	"campusassist/internal/models"
)

type DocumentHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient // nil when archival is not configured
	extractor    core.TextExtractor
	pipeline     *ingestion.Pipeline
	cfg          *config.Config
}

func NewDocumentHandler(dbclient core.DbClient, objectclient core.ObjectClient, extractor core.TextExtractor, pipeline *ingestion.Pipeline, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{dbclient: dbclient, objectclient: objectclient, extractor: extractor, pipeline: pipeline, cfg: cfg}
}

type ingestRequest struct {
	Title    string                   `json:"title"`
	Content  string                   `json:"content"`
	Category models.Category          `json:"category"`
	Tags     []string                 `json:"tags"`
	Metadata *models.DocumentMetadata `json:"metadata"`
}

// IngestDocument ingests plain text posted as JSON. Admin only.
func (h *DocumentHandler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	res, err := h.pipeline.Ingest(r.Context(), ingestion.Input{
		Title:      req.Title,
		Content:    req.Content,
		UploaderID: userID,
		Category:   req.Category,
		Tags:       req.Tags,
		Metadata:   req.Metadata,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("ingest failed: %v", err)
		http.Error(w, "ingestion failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// UploadDocument handles multipart file upload: the raw file is
// archived to object storage when configured, text is extracted, then
// the ingestion pipeline runs. Admin only.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read file", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}
	category := models.Category(r.FormValue("category"))
	var tags []string
	if raw := r.FormValue("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	var archiveKey string
	if h.objectclient != nil {
		cleanName := filepath.Base(header.Filename)
		key := fmt.Sprintf("%s/%s/%s", userID, uuid.NewString(), cleanName)
		upCtx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		if _, err := h.objectclient.UploadFile(upCtx, h.cfg.BucketName, key, data, contentType); err != nil {
			log.Printf("archive upload failed for %s: %v", cleanName, err)
		} else {
			archiveKey = key
		}
		cancel()
	}

	text, err := h.extractor.Extract(r.Context(), data, contentType)
	if err != nil {
		http.Error(w, fmt.Sprintf("text extraction failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	res, err := h.pipeline.Ingest(r.Context(), ingestion.Input{
		Title:         title,
		Content:       text,
		UploaderID:    userID,
		Category:      category,
		Tags:          tags,
		SourceFileKey: archiveKey,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("ingest failed for %s: %v", header.Filename, err)
		http.Error(w, "ingestion failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	documents, err := h.dbclient.ListDocuments(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if documents == nil {
		documents = []models.Document{}
	}
	writeJSON(w, http.StatusOK, documents)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.dbclient.GetDocumentByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DownloadDocument streams the archived original file of a document.
func (h *DocumentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.dbclient.GetDocumentByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc.SourceFileKey == "" || h.objectclient == nil {
		http.Error(w, "no archived file for this document", http.StatusNotFound)
		return
	}

	reader, err := h.objectclient.GetObjectReader(r.Context(), h.cfg.BucketName, doc.SourceFileKey)
	if err != nil {
		log.Printf("archive read failed for %s: %v", doc.SourceFileKey, err)
		http.Error(w, "archived file unavailable", http.StatusBadGateway)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(doc.SourceFileKey)))
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("archive stream failed for %s: %v", doc.SourceFileKey, err)
	}
}

// DeleteDocument removes a document, cascades to its chunks, and drops
// the archived original from object storage. Admin only.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")
	doc, err := h.dbclient.GetDocumentByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.dbclient.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc.SourceFileKey != "" && h.objectclient != nil {
		// Best effort; the document is already gone either way.
		delCtx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		if err := h.objectclient.DeleteFile(delCtx, h.cfg.BucketName, doc.SourceFileKey); err != nil {
			log.Printf("archive delete failed for %s: %v", doc.SourceFileKey, err)
		}
		cancel()
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := appMiddleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	if appMiddleware.Role(r.Context()) != "admin" {
		http.Error(w, "admin only", http.StatusForbidden)
		return "", false
	}
	return userID, true
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, offset = 20, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
