// Package handler exposes grading over HTTP: upload a scanned sheet,
// get the evaluation back as JSON.
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gradescan/gradescan/internal/eval"
	"github.com/gradescan/gradescan/internal/model"
	"github.com/gradescan/gradescan/internal/ocr"
	"github.com/gradescan/gradescan/internal/submission"
)

// maxSheetBytes bounds uploaded sheet size (scans run large).
const maxSheetBytes = 32 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	key        *model.AnswerKey
	recognizer ocr.Recognizer
	engine     *eval.Engine
}

// New creates a Handler grading against a fixed answer key.
func New(key *model.AnswerKey, r ocr.Recognizer, e *eval.Engine) *Handler {
	return &Handler{key: key, recognizer: r, engine: e}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/api/key", h.handleKey)
	r.Post("/api/grade", h.handleGrade)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.key)
}

// handleGrade accepts a multipart upload (field "sheet") of a scanned
// answer sheet, recognizes it, and returns the evaluation.
func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSheetBytes)

	file, header, err := r.FormFile("sheet")
	if err != nil {
		http.Error(w, "missing sheet upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	text, err := h.recognizer.Recognize(r.Context(), data)
	if err != nil {
		slog.Error("recognition failed", "file", header.Filename, "error", err)
		http.Error(w, "text recognition failed", http.StatusBadGateway)
		return
	}

	answers := submission.Parse(text)
	ev := h.engine.Evaluate(r.Context(), h.key, answers)

	writeJSON(w, ev)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
