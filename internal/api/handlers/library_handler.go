package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Learnify/internal/models"
	"github.com/markdave123-py/Learnify/internal/services"
)

type LibraryHandler struct {
	library *services.LibraryService
}

func NewLibraryHandler(library *services.LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

// GetQuizzes returns one quiz with its questions when ?id= is set, otherwise the user's quizzes.
func (h *LibraryHandler) GetQuizzes(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	if id := r.URL.Query().Get("id"); id != "" {
		quiz, err := h.library.Quiz(r.Context(), uid, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, quiz)
		return
	}
	h.ListQuizzes(w, r)
}

func (h *LibraryHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	quizzes, err := h.library.Quizzes(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *LibraryHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.library.DeleteQuiz(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSummaries returns one summary with its slides when ?id= is set, otherwise the user's summaries.
func (h *LibraryHandler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	if id := r.URL.Query().Get("id"); id != "" {
		summary, err := h.library.Summary(r.Context(), uid, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summaries, err := h.library.Summaries(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *LibraryHandler) DeleteSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.library.DeleteSummary(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard lists the user's items for ?feature=quiz (default) or ?feature=summary.
func (h *LibraryHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	feature := r.URL.Query().Get("feature")
	var (
		items any
		err   error
	)
	switch feature {
	case "", models.KindQuiz:
		feature = models.KindQuiz
		items, err = h.library.Quizzes(r.Context(), uid)
	case models.KindSummary:
		items, err = h.library.Summaries(r.Context(), uid)
	default:
		writeMessage(w, http.StatusBadRequest, "unknown feature")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feature": feature, "items": items})
}

type completeRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (h *LibraryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.ID == "" {
		writeMessage(w, http.StatusBadRequest, "missing id")
		return
	}

	updated, err := h.library.MarkComplete(r.Context(), uid, req.ID, req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// QuizSource streams the PDF a quiz was generated from.
func (h *LibraryHandler) QuizSource(w http.ResponseWriter, r *http.Request) {
	h.source(w, r, models.KindQuiz)
}

// SummarySource streams the PDF a summary was generated from.
func (h *LibraryHandler) SummarySource(w http.ResponseWriter, r *http.Request) {
	h.source(w, r, models.KindSummary)
}

func (h *LibraryHandler) source(w http.ResponseWriter, r *http.Request, kind string) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	data, name, err := h.library.SourceFile(r.Context(), uid, chi.URLParam(r, "id"), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
