package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/markdave123-py/Learnify/internal/services"
)

const (
	uploadTimeout = 5 * time.Minute
	// room for the multipart boundaries and the other form fields
	formOverhead = 1 << 20
)

type UploadHandler struct {
	uploads  *services.UploadService
	maxBytes int64
}

func NewUploadHandler(uploads *services.UploadService, maxBytes int64) *UploadHandler {
	return &UploadHandler{uploads: uploads, maxBytes: maxBytes}
}

// Upload accepts a multipart "file" plus an optional "kind" (quiz or summary)
// and answers once the study material has been generated and saved.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		writeMessage(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	res, err := h.uploads.UploadAndGenerate(ctx, uid, services.UploadInput{
		FileName:    filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Kind:        r.FormValue("kind"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"kind":     res.Kind,
		"id":       res.ID,
		"filename": res.FileName,
		"title":    res.Title,
	})
}
