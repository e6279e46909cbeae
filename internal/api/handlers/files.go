package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/docchat/internal/apperr"
	"github.com/nikhilbhutani/docchat/internal/document"
	"github.com/nikhilbhutani/docchat/internal/models"
)

type FileHandler struct {
	svc            *document.Service
	maxUploadBytes int64
}

func NewFileHandler(svc *document.Service, maxUploadBytes int64) *FileHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &FileHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

type uploadResponse struct {
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
	TotalFiles int    `json:"total_files"`
}

type filesResponse struct {
	Files      map[string]int    `json:"files"`
	TotalFiles int               `json:"total_files"`
	Documents  []models.Document `json:"documents"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, apperr.Ingestion(err, "could not read "+header.Filename))
		return
	}

	res, err := h.svc.Upload(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Filename:   res.Document.Filename,
		Status:     "success",
		Pages:      res.Document.Pages,
		Chunks:     res.Document.ChunkCount,
		TotalFiles: res.TotalFiles,
	})
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Counts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filesResponse{Files: counts, TotalFiles: len(counts), Documents: h.svc.List()})
}

func (h *FileHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAll(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "all files cleared"})
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := h.svc.Delete(r.Context(), filename); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: filename + " deleted"})
}
