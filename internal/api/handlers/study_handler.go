package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Learnify/internal/services"
)

type StudyHandler struct {
	study *services.StudyService
}

func NewStudyHandler(study *services.StudyService) *StudyHandler {
	return &StudyHandler{study: study}
}

func (h *StudyHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	v, err := h.study.Progress(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type progressRequest struct {
	Action string `json:"action"`
}

// PostProgress applies one of known, unknown, next, prev or reset.
func (h *StudyHandler) PostProgress(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	v, err := h.study.Apply(r.Context(), uid, chi.URLParam(r, "id"), req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
