package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"rowbook/internal/document/model"
	"rowbook/internal/document/service"
	"rowbook/pkg/logger"
)

type DocumentHandler struct {
	Service      *service.DocumentService
	PagePath     string
	MaxBodyBytes int64
}

func NewDocumentHandler(service *service.DocumentService, pagePath string, maxBodyBytes int64) *DocumentHandler {
	return &DocumentHandler{Service: service, PagePath: pagePath, MaxBodyBytes: maxBodyBytes}
}

// Index serves the editor page.
func (h *DocumentHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	page, err := os.ReadFile(h.PagePath)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to read page %s: %v", h.PagePath, err)
		http.Error(w, "Page unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// GetData returns the stored document.
func (h *DocumentHandler) GetData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	doc, err := h.Service.Load(r.Context())
	if errors.Is(err, service.ErrDocumentNotFound) {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to load document: %v", err)
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// Save replaces the stored document with the request body.
func (h *DocumentHandler) Save(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		logger.Sugar.Warnf("Handler: Failed to read save body: %v", err)
		writeJSON(w, http.StatusInternalServerError, model.Failed(err))
		return
	}

	result := h.Service.Save(r.Context(), body)
	if !result.OK() {
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	logger.Sugar.Infof("Document saved (%d bytes)", len(body))
	writeJSON(w, http.StatusOK, result)
}

// Health reports that the process is serving.
func (h *DocumentHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Handler: Failed to encode response: %v", err)
	}
}
